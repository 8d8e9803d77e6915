package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type rawCfg struct {
	// Storage
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./data/harvest.db" description:"Path to the SQLite database file"`
	ChannelsDir string `long:"channels-dir" env:"CHANNELS_DIR" default:"./channels" description:"Directory containing channel definition files"`

	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Scheduler
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Interval between channel sweeps in seconds"`
	ChannelRetries    int `long:"channel-retries" env:"CHANNEL_RETRIES" default:"0" description:"Retries for failed single-channel tasks"`

	// Fetching
	UserAgent string `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests"`

	// AI backend
	AIProvider   string `long:"ai-provider" env:"AI_PROVIDER" default:"gemini" choice:"gemini" choice:"grok" description:"AI backend used for parser refinement"`
	GeminiAPIKey string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key; AI refinement is disabled when empty"`
	GeminiModel  string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-1.5-flash" description:"Gemini model name"`
	GrokAPIKey   string `long:"grok-api-key" env:"GROK_API_KEY" description:"Grok API key"`
	GrokModel    string `long:"grok-model" env:"GROK_MODEL" default:"grok-2" description:"Grok model name"`
	GrokBaseURL  string `long:"grok-base-url" env:"GROK_BASE_URL" default:"https://api.x.ai/v1" description:"Grok chat completions base URL"`
	AITimeout    int    `long:"ai-timeout" env:"AI_TIMEOUT" default:"90" description:"AI generation timeout in seconds"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/Sao_Paulo)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses flags and environment. It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", raw.WorkerCount)
	}
	if raw.ChannelRetries < 0 {
		return nil, fmt.Errorf("channel retries must not be negative, got %d", raw.ChannelRetries)
	}
	if raw.SchedulerInterval < 1 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %d", raw.SchedulerInterval)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		ChannelsDir:       raw.ChannelsDir,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		ChannelRetries:    raw.ChannelRetries,
		UserAgent:         cmp.Or(raw.UserAgent, DefaultUserAgent),
		AIProvider:        raw.AIProvider,
		GeminiAPIKey:      raw.GeminiAPIKey,
		GeminiModel:       raw.GeminiModel,
		GrokAPIKey:        raw.GrokAPIKey,
		GrokModel:         raw.GrokModel,
		GrokBaseURL:       raw.GrokBaseURL,
		AITimeout:         time.Duration(cmp.Or(raw.AITimeout, 90)) * time.Second,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
