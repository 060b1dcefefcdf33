package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewClient(ClientConfig{
		Timeout:        time.Second,
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		Multiplier:     2,
	}, logger)
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 300*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 3*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.Equal(t, "arb-scanner/2.0", cfg.UserAgent)
}

func TestClient_GetJSON_Success(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.RawQuery
		jsonHandler(`{"value": 42}`)(w, r)
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}
	err := testClient(t).GetJSON(context.Background(), srv.URL+"/x", url.Values{"instType": {"SPOT"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, "arb-scanner/2.0", gotUA)
	assert.Equal(t, "instType=SPOT", gotQuery)
}

func TestClient_GetJSON_AppendsToExistingQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		jsonHandler(`{}`)(w, r)
	}))
	defer srv.Close()

	var out map[string]interface{}
	require.NoError(t, testClient(t).GetJSON(context.Background(), srv.URL+"/x?a=1", url.Values{"b": {"2"}}, &out))
	assert.Equal(t, "a=1&b=2", gotQuery)
}

func TestClient_GetJSON_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusBadGateway)
		case 2:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		case 3:
			jsonHandler(`{"value": `)(w, r)
		default:
			jsonHandler(`{"value": 7}`)(w, r)
		}
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, testClient(t).GetJSON(context.Background(), srv.URL, nil, &out))
	assert.Equal(t, 7, out.Value)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_GetJSON_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := testClient(t).GetJSON(context.Background(), srv.URL, nil, &out)
	require.Error(t, err)
	assert.Equal(t, int32(5), calls.Load())

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestClient_GetJSON_NonJSONContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`{"value": 1}`))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := testClient(t).GetJSON(context.Background(), srv.URL, nil, &out)
	assert.ErrorIs(t, err, ErrNotJSON)
}

func TestClient_GetJSON_ShapeMismatchIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		jsonHandler(`{"data": {"unexpected": true}}`)(w, r)
	}))
	defer srv.Close()

	var out struct {
		Data []string `json:"data"`
	}
	err := testClient(t).GetJSON(context.Background(), srv.URL, nil, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedPayload)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GetJSON_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]interface{}
	err := testClient(t).GetJSON(ctx, srv.URL, nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewClient_AppliesDefaults(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewClient(ClientConfig{}, logger)
	assert.Equal(t, DefaultClientConfig(), c.cfg)
}
