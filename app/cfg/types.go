package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath      string
	ChannelsDir string

	// HTTP server
	Port         string
	APIAccessKey string

	// Scheduler
	WorkerCount       int
	SchedulerInterval int
	ChannelRetries    int

	// Fetching
	UserAgent string

	// AI backend
	AIProvider   string
	GeminiAPIKey string
	GeminiModel  string
	GrokAPIKey   string
	GrokModel    string
	GrokBaseURL  string
	AITimeout    time.Duration

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
