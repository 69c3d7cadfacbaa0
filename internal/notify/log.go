package notify

import "go.uber.org/zap"

// LogSink writes every event to the structured log.
type LogSink struct {
	logger *zap.Logger
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a sink logging events at info level.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(event Event) {
	s.logger.Info("Event",
		zap.String("type", event.Type),
		zap.Any("data", event.Data),
	)
}
