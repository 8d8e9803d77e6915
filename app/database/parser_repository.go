package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var parserColumns = map[string]bool{
	"id": true, "channel": true, "name": true,
}

const insertParserSQL = `
	INSERT INTO feed_parsers (
		id, channel, name, title, content, category, feature_image, tags, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type parserRepository struct {
	db *DB
}

func NewParserRepository(db *DB) ParserRepository {
	return &parserRepository{db: db}
}

func (r *parserRepository) FindOne(ctx context.Context, id string) (*Parser, error) {
	var p Parser
	err := r.db.GetContext(ctx, &p, `SELECT * FROM feed_parsers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parser: %w", err)
	}
	return &p, nil
}

func (r *parserRepository) FindAll(ctx context.Context, filter Filter, limit int) ([]Parser, error) {
	query, args, err := buildSelect(`SELECT * FROM feed_parsers`, filter, parserColumns, "created_at, id", limit)
	if err != nil {
		return nil, err
	}

	var parsers []Parser
	if err := r.db.SelectContext(ctx, &parsers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list parsers: %w", err)
	}
	return parsers, nil
}

func (r *parserRepository) Insert(ctx context.Context, p *Parser) error {
	return insertParser(ctx, r.db, p)
}

func (r *parserRepository) Update(ctx context.Context, p *Parser) error {
	p.UpdatedAt = dbTime(time.Now())

	res, err := r.db.ExecContext(ctx, `
		UPDATE feed_parsers
		SET channel = ?, name = ?, title = ?, content = ?, category = ?,
		    feature_image = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, p.Channel, p.Name, p.Title, p.Content, p.Category, p.FeatureImage, p.Tags, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update parser: %w", err)
	}
	return requireAffected(res)
}

// ReplaceForChannel swaps every parser of a channel for parsers in one transaction.
func (r *parserRepository) ReplaceForChannel(ctx context.Context, channelID string, parsers []Parser) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM feed_parsers WHERE channel = ?`, channelID); err != nil {
		return fmt.Errorf("failed to delete channel parsers: %w", err)
	}

	for i := range parsers {
		parsers[i].Channel = channelID
		if err := insertParser(ctx, tx, &parsers[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit parsers: %w", err)
	}
	return nil
}

func insertParser(ctx context.Context, exec sqlx.ExecerContext, p *Parser) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := dbTime(time.Now())
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := exec.ExecContext(ctx, insertParserSQL,
		p.ID, p.Channel, p.Name, p.Title, p.Content, p.Category, p.FeatureImage, p.Tags, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert parser: %w", err)
	}
	return nil
}
