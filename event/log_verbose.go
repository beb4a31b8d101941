package event

import (
	"context"

	"github.com/get-eventually/go-replay/logger"
	"github.com/get-eventually/go-replay/version"
)

// VerboseLog is an Event Log wrapper that logs every Domain Event
// successfully appended to the inner Event Log, and every failed append.
type VerboseLog struct {
	Log
	Logger logger.Logger
}

// NewVerboseLog wraps the provided Event Log with a VerboseLog.
func NewVerboseLog(log Log, l logger.Logger) VerboseLog {
	return VerboseLog{Log: log, Logger: l}
}

// Append delegates to the inner Event Log and logs the produced events.
func (l VerboseLog) Append(ctx context.Context, id StreamID, events ...Envelope) (version.Version, error) {
	v, err := l.Log.Append(ctx, id, events...)
	if err != nil {
		logger.Error(l.Logger, "Failed to append events",
			logger.With("stream_id", id),
			logger.With("count", len(events)),
			logger.Err(err),
		)

		return v, err
	}

	first := v - version.Version(len(events)) + 1

	for i, evt := range events {
		logger.Info(l.Logger, "Appended event",
			logger.With("stream_id", id),
			logger.With("version", first+version.Version(i)),
			logger.With("type", evt.Message.Name()),
		)
	}

	return v, nil
}
