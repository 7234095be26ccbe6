package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Pipeline struct {
		Start         string        `yaml:"start"` // yyyy-mm-dd
		End           string        `yaml:"end"`
		Workers       int           `yaml:"workers"`
		ProgressEvery int           `yaml:"progress_every"`
		RunOnStart    bool          `yaml:"run_on_start"`
		BuildTimeout  time.Duration `yaml:"build_timeout"`
	} `yaml:"pipeline"`
	Archive struct {
		BaseURL       string        `yaml:"base_url"`
		Timeout       time.Duration `yaml:"timeout"`
		RatePerSec    float64       `yaml:"rate_per_sec"`
		MinMentions   int           `yaml:"min_mentions"`
		MinEventCount int           `yaml:"min_event_count"`
		RootOnly      bool          `yaml:"root_only"`
		ToneThreshold float64       `yaml:"tone_threshold"` // 0 disables the magnitude filter
	} `yaml:"archive"`
	Quotes struct {
		BaseURL        string        `yaml:"base_url"`
		SymbolSuffix   string        `yaml:"symbol_suffix"`
		Timeout        time.Duration `yaml:"timeout"`
		CacheTTL       time.Duration `yaml:"cache_ttl"`
		MaxMissingFrac float64       `yaml:"max_missing_frac"`
		BufferDays     int           `yaml:"buffer_days"`
	} `yaml:"quotes"`
	Cache struct {
		DayDir      string `yaml:"day_dir"`
		DatasetPath string `yaml:"dataset_path"`
	} `yaml:"cache"`
	Storage struct {
		Backend string `yaml:"backend"` // file or clickhouse (file cache plus CH mirror)
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		SignalsTopic string   `yaml:"signals_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Model struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
		TopN       int           `yaml:"top_n"`
	} `yaml:"model"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PIPELINE_START"); v != "" {
		c.Pipeline.Start = v
	}
	if v := os.Getenv("PIPELINE_END"); v != "" {
		c.Pipeline.End = v
	}
	if v := os.Getenv("PIPELINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.Workers = n
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Model.ServiceURL = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 12
	}
	if c.Pipeline.ProgressEvery == 0 {
		c.Pipeline.ProgressEvery = 30
	}
	if c.Archive.BaseURL == "" {
		c.Archive.BaseURL = "http://data.gdeltproject.org/events"
	}
	if c.Archive.Timeout == 0 {
		c.Archive.Timeout = 90 * time.Second
	}
	if c.Archive.MinMentions == 0 {
		c.Archive.MinMentions = 1
	}
	if c.Archive.MinEventCount == 0 {
		c.Archive.MinEventCount = 1
	}
	if c.Quotes.BaseURL == "" {
		c.Quotes.BaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	if c.Quotes.SymbolSuffix == "" {
		c.Quotes.SymbolSuffix = "=X"
	}
	if c.Quotes.Timeout == 0 {
		c.Quotes.Timeout = 30 * time.Second
	}
	if c.Quotes.MaxMissingFrac == 0 {
		c.Quotes.MaxMissingFrac = 0.5
	}
	if c.Quotes.BufferDays == 0 {
		c.Quotes.BufferDays = 3
	}
	if c.Cache.DayDir == "" {
		c.Cache.DayDir = "data/raw/daily"
	}
	if c.Cache.DatasetPath == "" {
		c.Cache.DatasetPath = "data/processed/sentiment_fx.csv.gz"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Model.TopN == 0 {
		c.Model.TopN = 5
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Storage.Backend != "file" && c.Storage.Backend != "clickhouse" {
		return fmt.Errorf("storage.backend must be 'file' or 'clickhouse', got '%s'", c.Storage.Backend)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be positive")
	}
	if c.Quotes.MaxMissingFrac <= 0 || c.Quotes.MaxMissingFrac >= 1 {
		return fmt.Errorf("quotes.max_missing_frac must be in (0,1)")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.SignalsTopic == "" {
		return fmt.Errorf("kafka.signals_topic is required when kafka is enabled")
	}
	if c.Storage.Backend == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for clickhouse backend")
	}
	return nil
}
