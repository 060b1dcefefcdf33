package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/arbscan/internal/config"
	"github.com/irfndi/arbscan/internal/logging"
	"github.com/irfndi/arbscan/internal/models"
)

// AlertSink delivers a formatted alert. Failures are reported, not retried.
type AlertSink interface {
	Send(ctx context.Context, message string) error
}

// messageSender is the subset of *bot.Bot the sink needs.
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramSink posts Markdown messages to a single chat.
type TelegramSink struct {
	bot    messageSender
	chatID any
}

// NewTelegramSink builds a sink from credentials. It performs no network call.
func NewTelegramSink(cfg config.TelegramConfig) (*TelegramSink, error) {
	if !cfg.TelegramEnabled() {
		return nil, errors.New("telegram bot token and chat id are required")
	}

	opts := []bot.Option{bot.WithSkipGetMe()}
	if cfg.APIURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.APIURL))
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSink{bot: b, chatID: parseChatID(cfg.ChatID)}, nil
}

// parseChatID keeps numeric ids numeric and passes @channel names through.
func parseChatID(raw string) any {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id
	}
	return raw
}

func (s *TelegramSink) Send(ctx context.Context, message string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    s.chatID,
		Text:      message,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// FormatHitMessage renders one opportunity as a Telegram Markdown alert.
func FormatHitMessage(h models.Hit) string {
	return fmt.Sprintf("*%s*\nBUY %s @%.8f\nSELL %s @%.8f\nNet: %.2f%%   (Gross: %.2f%%)\nVol24h: %d / %d",
		h.Pair,
		h.Buy, h.BuyAsk,
		h.Sell, h.SellBid,
		h.NetPct, h.GrossPct,
		int64(h.BuyVol), int64(h.SellVol),
	)
}

// FormatHeartbeat is the periodic liveness message.
func FormatHeartbeat(now time.Time) string {
	return "✅ Bot alive. Time: " + now.Format("2006-01-02 15:04:05")
}

// NotificationService sends cycle alerts through a sink. A nil sink turns
// every call into a no-op, which is how alerting is disabled.
type NotificationService struct {
	sink   AlertSink
	logger *logrus.Entry
}

func NewNotificationService(sink AlertSink, logger logrus.FieldLogger) *NotificationService {
	return &NotificationService{sink: sink, logger: logging.WithComponent(logger, "notification")}
}

func (ns *NotificationService) Enabled() bool {
	return ns.sink != nil
}

// NotifyHits sends one message per hit and returns how many were delivered.
// Delivery failures are logged and do not stop the remaining sends.
func (ns *NotificationService) NotifyHits(ctx context.Context, hits []models.Hit) int {
	if ns.sink == nil {
		return 0
	}
	delivered := 0
	for _, h := range hits {
		if err := ns.sink.Send(ctx, FormatHitMessage(h)); err != nil {
			logging.WithSymbol(ns.logger, h.Pair).WithError(err).WithFields(logrus.Fields{
				"buy":  h.Buy,
				"sell": h.Sell,
			}).Warn("Failed to deliver alert")
			continue
		}
		delivered++
	}
	return delivered
}

// Heartbeat sends the liveness message.
func (ns *NotificationService) Heartbeat(ctx context.Context, now time.Time) {
	if ns.sink == nil {
		return
	}
	if err := ns.sink.Send(ctx, FormatHeartbeat(now)); err != nil {
		ns.logger.WithError(err).Warn("Failed to deliver heartbeat")
	}
}
