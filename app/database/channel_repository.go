package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var channelColumns = map[string]bool{
	"id": true, "name": true, "source_type": true, "url": true,
	"active": true, "last_update": true,
}

type channelRepository struct {
	db *DB
}

func NewChannelRepository(db *DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) FindOne(ctx context.Context, id string) (*Channel, error) {
	var ch Channel
	err := r.db.GetContext(ctx, &ch, `SELECT * FROM channels WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return &ch, nil
}

func (r *channelRepository) FindAll(ctx context.Context, filter Filter, limit int) ([]Channel, error) {
	query, args, err := buildSelect(`SELECT * FROM channels`, filter, channelColumns, "name", limit)
	if err != nil {
		return nil, err
	}

	var channels []Channel
	if err := r.db.SelectContext(ctx, &channels, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

func (r *channelRepository) Insert(ctx context.Context, ch *Channel) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	now := dbTime(time.Now())
	ch.CreatedAt, ch.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO channels (
			id, name, source_type, rss, list_page_url, url, active,
			interval_update, last_update, request_link, scraping_config, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ch.ID, ch.Name, ch.SourceType, ch.RSS, ch.ListPageURL, ch.URL, ch.Active,
		ch.IntervalUpdate, optionalTime(ch.LastUpdate), ch.RequestLink, ch.ScrapingConfig, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("channel %q: %w", ch.Name, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}
	return nil
}

// Upsert inserts or updates a channel by name, leaving last_update alone.
func (r *channelRepository) Upsert(ctx context.Context, ch *Channel) (string, error) {
	id := ch.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := dbTime(time.Now())

	var dbID string
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO channels (
			id, name, source_type, rss, list_page_url, url, active,
			interval_update, request_link, scraping_config, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			source_type = excluded.source_type,
			rss = excluded.rss,
			list_page_url = excluded.list_page_url,
			url = excluded.url,
			active = excluded.active,
			interval_update = excluded.interval_update,
			request_link = excluded.request_link,
			scraping_config = excluded.scraping_config,
			updated_at = excluded.updated_at
		RETURNING id
	`, id, ch.Name, ch.SourceType, ch.RSS, ch.ListPageURL, ch.URL, ch.Active,
		ch.IntervalUpdate, ch.RequestLink, ch.ScrapingConfig, now, now).Scan(&dbID)
	if err != nil {
		return "", fmt.Errorf("failed to upsert channel: %w", err)
	}
	return dbID, nil
}

func (r *channelRepository) UpdateLastUpdate(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE channels SET last_update = ?, updated_at = ? WHERE id = ?`,
		dbTime(at), dbTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update channel last_update: %w", err)
	}
	return requireAffected(res)
}

func optionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
