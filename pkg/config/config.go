package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "FUNNELBOARD"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DatasetSourceCSV      = "csv"
	DatasetSourceBigQuery = "bigquery"
)

const (
	CacheBackendOff    = "off"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	App       AppConfig
	Redis     RedisConfig
	GCP       GCPConfig
	BigQuery  BigQueryConfig
	PubSub    PubSubConfig
	Dataset   DatasetConfig
	Analytics AnalyticsConfig
	Insight   InsightConfig
	Cache     CacheConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Dataset.Source {
	case DatasetSourceCSV:
		if strings.TrimSpace(c.Dataset.CSVPath) == "" {
			return fmt.Errorf("FUNNELBOARD_DATASET_CSV_PATH is required when the dataset source is csv")
		}
	case DatasetSourceBigQuery:
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			return fmt.Errorf("FUNNELBOARD_GCP_PROJECT_ID is required when the dataset source is bigquery")
		}
	default:
		return fmt.Errorf("unknown dataset source %q", c.Dataset.Source)
	}

	switch c.Cache.Backend {
	case CacheBackendOff, CacheBackendMemory:
	case CacheBackendRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("FUNNELBOARD_REDIS_URL or FUNNELBOARD_REDIS_ADDR is required when the cache backend is redis")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	return nil
}

type AppConfig struct {
	Env          string   `envconfig:"FUNNELBOARD_APP_ENV" required:"true"`
	Port         string   `envconfig:"FUNNELBOARD_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"FUNNELBOARD_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FUNNELBOARD_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"FUNNELBOARD_APP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"FUNNELBOARD_REDIS_URL"`
	Address      string        `envconfig:"FUNNELBOARD_REDIS_ADDR"`
	Password     string        `envconfig:"FUNNELBOARD_REDIS_PASSWORD"`
	DB           int           `envconfig:"FUNNELBOARD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FUNNELBOARD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FUNNELBOARD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FUNNELBOARD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FUNNELBOARD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FUNNELBOARD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FUNNELBOARD_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FUNNELBOARD_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FUNNELBOARD_GOOGLE_APPLICATION_CREDENTIALS"`
}

type BigQueryConfig struct {
	Dataset     string `envconfig:"FUNNELBOARD_BIGQUERY_DATASET" default:"analytics"`
	EventsTable string `envconfig:"FUNNELBOARD_BIGQUERY_EVENTS_TABLE" default:"ga4_events"`
	WindowDays  int    `envconfig:"FUNNELBOARD_BIGQUERY_WINDOW_DAYS" default:"90"`
	RowLimit    int    `envconfig:"FUNNELBOARD_BIGQUERY_ROW_LIMIT" default:"2000000"`
}

type PubSubConfig struct {
	InsightTopic string `envconfig:"FUNNELBOARD_PUBSUB_INSIGHT_TOPIC" default:"funnelboard-insight-payloads"`
}

type DatasetConfig struct {
	Source  string `envconfig:"FUNNELBOARD_DATASET_SOURCE" default:"csv"`
	CSVPath string `envconfig:"FUNNELBOARD_DATASET_CSV_PATH" default:"data/events.csv"`
}

// AnalyticsConfig names the event actions the default funnel and KPIs are
// built from. The four anchor actions mirror the stages of the landing-page
// journey: arrival, first question, qualifying question, completed submission.
type AnalyticsConfig struct {
	FunnelSteps     []string `envconfig:"FUNNELBOARD_ANALYTICS_FUNNEL_STEPS" default:"page_view,form_start,form_qualify,form_success"`
	EntryAction     string   `envconfig:"FUNNELBOARD_ANALYTICS_ENTRY_ACTION" default:"page_view"`
	StartAction     string   `envconfig:"FUNNELBOARD_ANALYTICS_START_ACTION" default:"form_start"`
	QualifierAction string   `envconfig:"FUNNELBOARD_ANALYTICS_QUALIFIER_ACTION" default:"form_qualify"`
	SuccessAction   string   `envconfig:"FUNNELBOARD_ANALYTICS_SUCCESS_ACTION" default:"form_success"`
	MaxEventRows    int      `envconfig:"FUNNELBOARD_ANALYTICS_MAX_EVENT_ROWS" default:"36"`
}

// LeadsAction is the terminal event whose total count is reported as leads.
func (a AnalyticsConfig) LeadsAction() string {
	return a.SuccessAction
}

type InsightConfig struct {
	Enabled  bool          `envconfig:"FUNNELBOARD_INSIGHT_ENABLED" default:"false"`
	Interval time.Duration `envconfig:"FUNNELBOARD_INSIGHT_INTERVAL" default:"24h"`
	OldURLs  []string      `envconfig:"FUNNELBOARD_INSIGHT_OLD_URLS"`
	NewURLs  []string      `envconfig:"FUNNELBOARD_INSIGHT_NEW_URLS"`
	// WindowDays is the trailing date window each scheduled comparison covers.
	WindowDays int `envconfig:"FUNNELBOARD_INSIGHT_WINDOW_DAYS" default:"30"`
}

type CacheConfig struct {
	Backend string        `envconfig:"FUNNELBOARD_CACHE_BACKEND" default:"memory"`
	TTL     time.Duration `envconfig:"FUNNELBOARD_CACHE_TTL" default:"15m"`
}
