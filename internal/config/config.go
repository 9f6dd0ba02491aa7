// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs for the coordinator and workers.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Index       IndexConfig       `mapstructure:"index"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig controls the coordinator's status HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CoordinatorConfig governs the task tracker and liveness monitor.
type CoordinatorConfig struct {
	SweepIntervalSeconds    int `mapstructure:"sweep_interval_seconds"`
	TaskTimeoutSeconds      int `mapstructure:"task_timeout_seconds"`
	LivenessIntervalSeconds int `mapstructure:"liveness_interval_seconds"`
	InactiveAfterSeconds    int `mapstructure:"inactive_after_seconds"`
	ForgetAfterSeconds      int `mapstructure:"forget_after_seconds"`
	ErrorBackoffSeconds     int `mapstructure:"error_backoff_seconds"`
	StatsIntervalSeconds    int `mapstructure:"stats_interval_seconds"`

	// Seeds are submitted to the frontier at startup.
	Seeds          []string `mapstructure:"seeds"`
	DepthLimit     int      `mapstructure:"depth_limit"`
	RestrictDomain bool     `mapstructure:"restrict_domain"`
}

// WorkerConfig governs the crawl worker's fetch pipeline.
type WorkerConfig struct {
	UserAgent                string `mapstructure:"user_agent"`
	CrawlDelaySeconds        int    `mapstructure:"crawl_delay_seconds"`
	FetchTimeoutSeconds      int    `mapstructure:"fetch_timeout_seconds"`
	RobotsTimeoutSeconds     int    `mapstructure:"robots_timeout_seconds"`
	MaxRetries               int    `mapstructure:"max_retries"`
	HeartbeatIntervalSeconds int    `mapstructure:"heartbeat_interval_seconds"`
	ContentType              string `mapstructure:"content_type"`
	IndexIntervalSeconds     int    `mapstructure:"index_interval_seconds"`
}

// QueueConfig selects and configures the message transport. Provider is one
// of "memory", "pubsub", or "redis".
type QueueConfig struct {
	Provider            string `mapstructure:"provider"`
	Depth               int    `mapstructure:"depth"`
	ProjectID           string `mapstructure:"project_id"`
	WorkTopic           string `mapstructure:"work_topic"`
	WorkSubscription    string `mapstructure:"work_subscription"`
	ResultsTopic        string `mapstructure:"results_topic"`
	ResultsSubscription string `mapstructure:"results_subscription"`
	CrawlerBeatsTopic   string `mapstructure:"crawler_beats_topic"`
	CrawlerBeatsSub     string `mapstructure:"crawler_beats_subscription"`
	IndexerBeatsTopic   string `mapstructure:"indexer_beats_topic"`
	IndexerBeatsSub     string `mapstructure:"indexer_beats_subscription"`
	RedisAddr           string `mapstructure:"redis_addr"`
	RedisPassword       string `mapstructure:"redis_password"`
	RedisDB             int    `mapstructure:"redis_db"`
}

// StorageConfig selects the blob store. Provider is "memory" or "gcs".
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// IndexConfig selects the search index sink. Provider is "memory" or "postgres".
type IndexConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// LoggingConfig controls the process logger. Level is one of zap's level
// names (debug, info, warn, error).
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLFLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("coordinator.sweep_interval_seconds", 15)
	v.SetDefault("coordinator.task_timeout_seconds", 180)
	v.SetDefault("coordinator.liveness_interval_seconds", 30)
	v.SetDefault("coordinator.inactive_after_seconds", 90)
	v.SetDefault("coordinator.forget_after_seconds", 300)
	v.SetDefault("coordinator.error_backoff_seconds", 5)
	v.SetDefault("coordinator.stats_interval_seconds", 30)
	v.SetDefault("coordinator.depth_limit", 2)
	v.SetDefault("coordinator.restrict_domain", true)
	v.SetDefault("worker.user_agent", "crawlfleet-bot/0.1")
	v.SetDefault("worker.crawl_delay_seconds", 1)
	v.SetDefault("worker.fetch_timeout_seconds", 10)
	v.SetDefault("worker.robots_timeout_seconds", 5)
	v.SetDefault("worker.max_retries", 3)
	v.SetDefault("worker.heartbeat_interval_seconds", 60)
	v.SetDefault("worker.content_type", "text/html; charset=utf-8")
	v.SetDefault("worker.index_interval_seconds", 30)
	v.SetDefault("queue.provider", "memory")
	v.SetDefault("queue.depth", 1024)
	v.SetDefault("queue.work_topic", "crawlfleet-work")
	v.SetDefault("queue.work_subscription", "crawlfleet-work-sub")
	v.SetDefault("queue.results_topic", "crawlfleet-results")
	v.SetDefault("queue.results_subscription", "crawlfleet-results-sub")
	v.SetDefault("queue.crawler_beats_topic", "crawlfleet-crawler-heartbeat")
	v.SetDefault("queue.crawler_beats_subscription", "crawlfleet-crawler-heartbeat-sub")
	v.SetDefault("queue.indexer_beats_topic", "crawlfleet-indexer-heartbeat")
	v.SetDefault("queue.indexer_beats_subscription", "crawlfleet-indexer-heartbeat-sub")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("index.provider", "memory")
	v.SetDefault("index.table", "pages")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Coordinator.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("coordinator.sweep_interval_seconds must be > 0")
	}
	if c.Coordinator.TaskTimeoutSeconds <= 0 {
		return fmt.Errorf("coordinator.task_timeout_seconds must be > 0")
	}
	if c.Coordinator.DepthLimit < 0 {
		return fmt.Errorf("coordinator.depth_limit must be >= 0")
	}
	if c.Worker.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("worker.fetch_timeout_seconds must be > 0")
	}
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("worker.max_retries must be >= 0")
	}
	switch c.Queue.Provider {
	case "memory", "pubsub", "redis":
	default:
		return fmt.Errorf("queue.provider must be one of memory, pubsub, redis")
	}
	if c.Queue.Provider == "pubsub" && c.Queue.ProjectID == "" {
		return fmt.Errorf("queue.project_id must be set when queue.provider is pubsub")
	}
	if c.Storage.Provider == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
	}
	if c.Index.Provider == "postgres" && c.Index.DSN == "" {
		return fmt.Errorf("index.dsn must be set when index.provider is postgres")
	}
	return nil
}

// SweepInterval returns the tracker sweep cadence.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Coordinator.SweepIntervalSeconds) * time.Second
}

// TaskTimeout returns how long a queued item may go unreported before requeue.
func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.Coordinator.TaskTimeoutSeconds) * time.Second
}
