package logging

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
)

// OTLPHook forwards logrus entries to an OpenTelemetry logger.
type OTLPHook struct {
	logger otellog.Logger
	levels []logrus.Level
}

// NewOTLPHook wraps an OpenTelemetry logger. Entries below minLevel are not exported.
func NewOTLPHook(logger otellog.Logger, minLevel logrus.Level) *OTLPHook {
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, l := range logrus.AllLevels {
		if l <= minLevel {
			levels = append(levels, l)
		}
	}
	return &OTLPHook{logger: logger, levels: levels}
}

// Levels implements logrus.Hook.
func (h *OTLPHook) Levels() []logrus.Level {
	return h.levels
}

// Fire implements logrus.Hook.
func (h *OTLPHook) Fire(entry *logrus.Entry) error {
	record := otellog.Record{}
	record.SetTimestamp(entry.Time)
	record.SetObservedTimestamp(time.Now())
	record.SetSeverity(convertLogrusLevelToSeverity(entry.Level))
	record.SetSeverityText(entry.Level.String())
	record.SetBody(otellog.StringValue(entry.Message))

	attrs := make([]otellog.KeyValue, 0, len(entry.Data))
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			attrs = append(attrs, otellog.String(k, err.Error()))
			continue
		}
		attrs = append(attrs, otellog.String(k, fmt.Sprint(v)))
	}
	record.AddAttributes(attrs...)

	ctx := entry.Context
	if ctx == nil {
		ctx = context.Background()
	}
	h.logger.Emit(ctx, record)
	return nil
}

func convertLogrusLevelToSeverity(level logrus.Level) otellog.Severity {
	switch level {
	case logrus.TraceLevel:
		return otellog.SeverityTrace
	case logrus.DebugLevel:
		return otellog.SeverityDebug
	case logrus.InfoLevel:
		return otellog.SeverityInfo
	case logrus.WarnLevel:
		return otellog.SeverityWarn
	case logrus.ErrorLevel:
		return otellog.SeverityError
	case logrus.FatalLevel, logrus.PanicLevel:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityInfo
	}
}

// InstallOTLPHook exports the logger's entries over OTLP/HTTP. The returned
// function flushes and stops the exporter.
func InstallOTLPHook(ctx context.Context, logger *logrus.Logger, endpoint string, res *resource.Resource) (func(context.Context) error, error) {
	opts := []otlploghttp.Option{otlploghttp.WithURLPath("/v1/logs")}
	host, insecure := SplitEndpoint(endpoint)
	opts = append(opts, otlploghttp.WithEndpoint(host))
	if insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}

	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	providerOpts := []log.LoggerProviderOption{log.WithProcessor(log.NewBatchProcessor(exporter))}
	if res != nil {
		providerOpts = append(providerOpts, log.WithResource(res))
	}
	provider := log.NewLoggerProvider(providerOpts...)

	logger.AddHook(NewOTLPHook(provider.Logger("arbscan"), logger.GetLevel()))
	return provider.Shutdown, nil
}

// SplitEndpoint turns "http://collector:4318" into ("collector:4318", true).
// A bare host:port is accepted and treated as insecure.
func SplitEndpoint(endpoint string) (string, bool) {
	if endpoint == "" {
		return "localhost:4318", true
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint, true
	}
	return u.Host, u.Scheme != "https"
}
