package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var aiContentColumns = map[string]bool{
	"id": true, "raw_id": true, "post_ref": true,
}

type aiContentRepository struct {
	db *DB
}

func NewAIContentRepository(db *DB) AIContentRepository {
	return &aiContentRepository{db: db}
}

func (r *aiContentRepository) FindAll(ctx context.Context, filter Filter, limit int) ([]AIContent, error) {
	query, args, err := buildSelect(`SELECT * FROM feed_ai_content`, filter, aiContentColumns, "created_at DESC", limit)
	if err != nil {
		return nil, err
	}

	var contents []AIContent
	if err := r.db.SelectContext(ctx, &contents, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list AI content: %w", err)
	}
	return contents, nil
}

func (r *aiContentRepository) Insert(ctx context.Context, c *AIContent) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := dbTime(time.Now())
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feed_ai_content (
			id, raw_id, title, content, feature_image, suggested_tags,
			suggested_categories, post_ref, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.RawID, c.Title, c.Content, c.FeatureImage, c.SuggestedTags,
		c.SuggestedCategories, c.PostRef, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert AI content: %w", err)
	}
	return nil
}

func (r *aiContentRepository) Update(ctx context.Context, c *AIContent) error {
	c.UpdatedAt = dbTime(time.Now())

	res, err := r.db.ExecContext(ctx, `
		UPDATE feed_ai_content
		SET title = ?, content = ?, feature_image = ?, suggested_tags = ?,
		    suggested_categories = ?, post_ref = ?, updated_at = ?
		WHERE id = ?
	`, c.Title, c.Content, c.FeatureImage, c.SuggestedTags, c.SuggestedCategories, c.PostRef, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update AI content: %w", err)
	}
	return requireAffected(res)
}
