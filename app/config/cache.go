package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/news-harvest/app/database"
)

type ChannelConfigCache struct {
	dir   string
	cache map[string]*ChannelConfig
	mu    sync.RWMutex
}

func NewChannelConfigCache(dir string) *ChannelConfigCache {
	return &ChannelConfigCache{
		dir:   dir,
		cache: make(map[string]*ChannelConfig),
	}
}

// Run loads every *.yml file of the channels directory. A missing directory is not an error.
func (cc *ChannelConfigCache) Run() error {
	if _, err := os.Stat(cc.dir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		key := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(key)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Channel configuration loaded", "channel", key, "active", config.Settings.Active, "parsers", len(config.Parsers))
	}

	return nil
}

func (cc *ChannelConfigCache) LoadConfig(key string) (*ChannelConfig, error) {
	configFile := cc.configFilePath(key)
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Key = key

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[key] = config

	return config, nil
}

func (cc *ChannelConfigCache) GetConfig(key string) (*ChannelConfig, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[key]
	if !ok {
		return nil, fmt.Errorf("channel config with name '%s' not found", key)
	}
	return config, nil
}

func (cc *ChannelConfigCache) GetConfigs() map[string]*ChannelConfig {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*ChannelConfig, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ChannelConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

// Watch reloads a channel file whenever it is written and passes the fresh
// config to onChange. It blocks until ctx is done.
func (cc *ChannelConfigCache) Watch(ctx context.Context, onChange func(*ChannelConfig)) error {
	if _, err := os.Stat(cc.dir); os.IsNotExist(err) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cc.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cc.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".yml" || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			key := strings.TrimSuffix(filepath.Base(event.Name), ".yml")
			config, err := cc.LoadConfig(key)
			if err != nil {
				slog.Warn("Failed to reload channel configuration", "channel", key, "error", err)
				continue
			}

			slog.Info("Channel configuration reloaded", "channel", key)
			if onChange != nil {
				onChange(config)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Channel configuration watcher error", "error", err)
		}
	}
}

func (cc *ChannelConfigCache) parseConfig(configFile string) (*ChannelConfig, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config ChannelConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Settings.RefreshInterval == 0 {
		config.Settings.RefreshInterval = 3600
	}
	if config.Source == "" {
		config.Source = database.SourceRSS
	}

	return &config, nil
}

func (cc *ChannelConfigCache) validateConfig(config *ChannelConfig) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	switch config.Source {
	case database.SourceRSS:
		if config.RSS == "" {
			return fmt.Errorf("rss is required for %s channels", database.SourceRSS)
		}
	case database.SourceWebScraping:
		if config.ListPage == "" {
			return fmt.Errorf("list_page_url is required for %s channels", database.SourceWebScraping)
		}
	default:
		return fmt.Errorf("unsupported source type: %s", config.Source)
	}

	if config.Settings.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must be non-negative")
	}

	for i, p := range config.Parsers {
		if p.Name == "" {
			return fmt.Errorf("parser at index %d must have a name", i)
		}
	}

	return nil
}

func (cc *ChannelConfigCache) configFilePath(key string) string {
	return filepath.Join(cc.dir, key+".yml")
}
