package catchup

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/rickgao/notify-relay/internal/model"
)

// RecordSource is the store slice consumed by catch-up delivery.
type RecordSource interface {
	FetchUndelivered(ctx context.Context, ownerID string) ([]model.NotificationRecord, error)
	MarkDelivered(ctx context.Context, ownerID string) (int64, error)
}

// PushConn is the delivery target.
type PushConn interface {
	Send(payload []byte) error
}

// Loader replays missed records at connection time.
type Loader struct {
	src    RecordSource
	logger *slog.Logger
}

// NewLoader creates a Loader reading from src.
func NewLoader(src RecordSource, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		src:    src,
		logger: logger,
	}
}

// catchupFrame is the per-record payload pushed to the client.
type catchupFrame struct {
	Message string `json:"message"`
}

// Run fetches the client's undelivered records and pushes them in store
// order, then marks them delivered in one update. Returns the number of
// records pushed.
func (l *Loader) Run(ctx context.Context, clientID string, conn PushConn) int {
	records, err := l.src.FetchUndelivered(ctx, clientID)
	if err != nil {
		// Treated as nothing to deliver; the session proceeds to live mode.
		l.logger.Warn("catch-up fetch failed", "client", clientID, "error", err)
		return 0
	}
	if len(records) == 0 {
		return 0
	}

	sent := 0
	for _, rec := range records {
		payload, err := json.Marshal(catchupFrame{Message: rec.Message})
		if err != nil {
			l.logger.Warn("catch-up encode failed", "client", clientID, "record", rec.ID, "error", err)
			continue
		}
		if err := conn.Send(payload); err != nil {
			l.logger.Warn("catch-up send failed", "client", clientID, "record", rec.ID, "error", err)
			continue
		}
		sent++
	}

	if _, err := l.src.MarkDelivered(ctx, clientID); err != nil {
		// The records stay pending and will replay on the next connect;
		// the session itself is unaffected.
		l.logger.Warn("catch-up mark delivered failed", "client", clientID, "error", err)
	}

	l.logger.Info("catch-up complete", "client", clientID, "records", len(records), "sent", sent)
	return sent
}
