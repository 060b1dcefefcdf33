package services

import (
	"context"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/mock"

	"github.com/irfndi/arbscan/internal/models"
)

type MockAdapter struct {
	mock.Mock
	name string
}

func newMockAdapter(name string) *MockAdapter {
	return &MockAdapter{name: name}
}

func (m *MockAdapter) Name() string { return m.name }

func (m *MockAdapter) FetchTickers(ctx context.Context) ([]models.RawTicker, error) {
	args := m.Called(ctx)
	tickers, _ := args.Get(0).([]models.RawTicker)
	return tickers, args.Error(1)
}

type MockAlertSink struct {
	mock.Mock
}

func (m *MockAlertSink) Send(ctx context.Context, message string) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*tgmodels.Message)
	return msg, args.Error(1)
}

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
