package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/news-harvest/app/config"
	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/parser"
)

// SyncChannelConfigTask upserts a channel seed file and, when the file lists
// parsers, replaces the channel's parser definitions with them.
type SyncChannelConfigTask struct {
	Task
	Config      *config.ChannelConfig
	channelRepo database.ChannelRepository
	parserRepo  database.ParserRepository
}

func NewSyncChannelConfigTask(channelConfig *config.ChannelConfig, channelRepo database.ChannelRepository, parserRepo database.ParserRepository) *SyncChannelConfigTask {
	return &SyncChannelConfigTask{
		Task:        NewTask(TaskTypeSyncChannelConfig, channelConfig.Key),
		Config:      channelConfig,
		channelRepo: channelRepo,
		parserRepo:  parserRepo,
	}
}

func (t *SyncChannelConfigTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	ch, err := t.Config.Channel()
	if err != nil {
		return fmt.Errorf("failed to build channel from config: %w", err)
	}

	channelID, err := t.channelRepo.Upsert(ctx, ch)
	if err != nil {
		slog.Error("Task failed", "type", "SyncChannelConfig", "channel", t.ChannelName, "error", err)
		return fmt.Errorf("failed to sync channel config to database: %w", err)
	}

	parsers := 0
	if t.Config.Parsers != nil {
		defs := t.Config.ParserDefinitions(channelID)
		for i := range defs {
			if err := parser.ValidateParser(&defs[i]); err != nil {
				return fmt.Errorf("parser %q: %w", defs[i].Name, err)
			}
		}
		if err := t.parserRepo.ReplaceForChannel(ctx, channelID, defs); err != nil {
			return fmt.Errorf("failed to sync parsers: %w", err)
		}
		parsers = len(defs)
	}

	slog.Info("Task completed",
		"type", "SyncChannelConfig",
		"channel", t.ChannelName,
		"duration", t.GetDuration(),
		"parsers", parsers)

	return nil
}
