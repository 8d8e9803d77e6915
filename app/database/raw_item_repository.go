package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var rawItemColumns = map[string]bool{
	"id": true, "link": true, "channel": true, "status": true,
	"feed_type": true, "pub_date": true,
}

type rawItemRepository struct {
	db *DB
}

func NewRawItemRepository(db *DB) RawItemRepository {
	return &rawItemRepository{db: db}
}

func (r *rawItemRepository) FindOneByLink(ctx context.Context, link string) (*RawItem, error) {
	var item RawItem
	err := r.db.GetContext(ctx, &item, `SELECT * FROM feed_raw WHERE link = ?`, link)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item by link: %w", err)
	}
	return &item, nil
}

func (r *rawItemRepository) FindAll(ctx context.Context, filter Filter, limit int) ([]RawItem, error) {
	query, args, err := buildSelect(`SELECT * FROM feed_raw`, filter, rawItemColumns, "pub_date DESC", limit)
	if err != nil {
		return nil, err
	}

	var items []RawItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// Insert stores a new item. A link that is already stored yields ErrDuplicate.
func (r *rawItemRepository) Insert(ctx context.Context, item *RawItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = StatusPending
	}
	now := dbTime(time.Now())
	item.CreatedAt, item.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feed_raw (
			id, title, content, feature_image, link, pub_date, category, channel,
			feed_type, has_parser, parsed_by, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.Title, item.Content, item.FeatureImage, item.Link, dbTime(item.PubDate),
		item.Category, item.Channel, item.FeedType, item.HasParser, item.ParsedBy, item.Status, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("item %s: %w", item.Link, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}
