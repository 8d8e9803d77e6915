package database

import (
	"context"
	"time"
)

type ChannelRepository interface {
	FindOne(ctx context.Context, id string) (*Channel, error)
	FindAll(ctx context.Context, filter Filter, limit int) ([]Channel, error)
	Insert(ctx context.Context, ch *Channel) error
	Upsert(ctx context.Context, ch *Channel) (string, error)
	UpdateLastUpdate(ctx context.Context, id string, at time.Time) error
}

type RawItemRepository interface {
	FindOneByLink(ctx context.Context, link string) (*RawItem, error)
	FindAll(ctx context.Context, filter Filter, limit int) ([]RawItem, error)
	Insert(ctx context.Context, item *RawItem) error
}

type ParserRepository interface {
	FindOne(ctx context.Context, id string) (*Parser, error)
	FindAll(ctx context.Context, filter Filter, limit int) ([]Parser, error)
	Insert(ctx context.Context, p *Parser) error
	Update(ctx context.Context, p *Parser) error
	ReplaceForChannel(ctx context.Context, channelID string, parsers []Parser) error
}

type AIContentRepository interface {
	FindAll(ctx context.Context, filter Filter, limit int) ([]AIContent, error)
	Insert(ctx context.Context, c *AIContent) error
	Update(ctx context.Context, c *AIContent) error
}
