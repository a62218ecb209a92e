package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/notify-relay/internal/model"
)

const recordColumns = "id, user_id, message, channel_type, is_sent, created_at"

// Store is the PostgreSQL-backed notification store.
type Store struct {
	db      *pgxpool.Pool
	channel string
	logger  *slog.Logger
}

// New creates a Store. channel is recorded on inserted rows as channel_type.
func New(db *pgxpool.Pool, channel string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:      db,
		channel: channel,
		logger:  logger,
	}
}

// FetchUndelivered returns the owner's records with is_sent = FALSE in
// creation order. An empty result is normal.
func (s *Store) FetchUndelivered(ctx context.Context, ownerID string) ([]model.NotificationRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM notifications
		 WHERE user_id = $1 AND is_sent = FALSE
		 ORDER BY created_at, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch undelivered for %s: %w", ownerID, err)
	}
	defer rows.Close()

	var records []model.NotificationRecord
	for rows.Next() {
		var rec model.NotificationRecord
		if err := scanRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch undelivered for %s: %w", ownerID, err)
	}

	return records, nil
}

// MarkDelivered flips is_sent for the owner's pending records and returns the
// number of rows updated.
func (s *Store) MarkDelivered(ctx context.Context, ownerID string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_sent = TRUE WHERE user_id = $1 AND is_sent = FALSE`,
		ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark delivered for %s: %w", ownerID, err)
	}
	return tag.RowsAffected(), nil
}

// Insert creates a new undelivered record for the owner.
func (s *Store) Insert(ctx context.Context, ownerID, message string) (model.NotificationRecord, error) {
	var rec model.NotificationRecord
	row := s.db.QueryRow(ctx,
		`INSERT INTO notifications (message, channel_type, user_id)
		 VALUES ($1, $2, $3)
		 RETURNING `+recordColumns,
		message, s.channel, ownerID,
	)
	if err := scanRecord(row, &rec); err != nil {
		return rec, fmt.Errorf("insert record for %s: %w", ownerID, err)
	}
	return rec, nil
}

// FetchByID returns a record by id, or nil when it does not exist.
func (s *Store) FetchByID(ctx context.Context, id int64) (*model.NotificationRecord, error) {
	var rec model.NotificationRecord
	row := s.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM notifications WHERE id = $1`,
		id,
	)
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch record %d: %w", id, err)
	}
	return &rec, nil
}

func scanRecord(row pgx.Row, rec *model.NotificationRecord) error {
	return row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.Message,
		&rec.ChannelType,
		&rec.Delivered,
		&rec.CreatedAt,
	)
}
