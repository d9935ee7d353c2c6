package service

import (
	"go.uber.org/zap"

	"smscast/internal/domain"
	"smscast/internal/status"
)

// progressFunc adapts a closure to status.ProgressSink.
type progressFunc func(batchID string, counts domain.BatchCounts)

func (f progressFunc) Publish(batchID string, counts domain.BatchCounts) {
	f(batchID, counts)
}

type multiProgressSink []status.ProgressSink

func (m multiProgressSink) Publish(batchID string, counts domain.BatchCounts) {
	for _, sink := range m {
		if sink != nil {
			sink.Publish(batchID, counts)
		}
	}
}

// LoggingProgressSink emits one info line per aggregation change.
type LoggingProgressSink struct {
	logger *zap.Logger
}

func NewLoggingProgressSink(logger *zap.Logger) *LoggingProgressSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProgressSink{logger: logger}
}

func (s *LoggingProgressSink) Publish(batchID string, counts domain.BatchCounts) {
	s.logger.Info("batch progress",
		zap.String("batchId", batchID),
		zap.Int("sent", counts.SentOrBetter()),
		zap.Int("delivered", counts.Delivered),
		zap.Int("failed", counts.Failed),
		zap.Int("total", counts.Total()),
	)
}
