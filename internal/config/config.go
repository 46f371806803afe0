package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentConfig holds the collector agent settings.
type AgentConfig struct {
	Host        string `yaml:"host"`
	Interval    string `yaml:"interval"`
	Transport   string `yaml:"transport"`
	HubURL      string `yaml:"hub_url"`
	SendTimeout string `yaml:"send_timeout"`
	ScoreInline bool   `yaml:"score_inline"`
}

// HubConfig holds the ingestion and broadcast hub settings.
type HubConfig struct {
	ListenAddr       string `yaml:"listen_addr"`
	WriteTimeout     string `yaml:"write_timeout"`
	SubscriberBuffer int    `yaml:"subscriber_buffer"`
	NATSIngest       bool   `yaml:"nats_ingest"`
}

// ModelConfig locates the fitted artifacts loaded at startup.
type ModelConfig struct {
	Dir string `yaml:"dir"`
}

// TrainingConfig drives the offline fitting pass.
type TrainingConfig struct {
	Samples       int     `yaml:"samples"`
	Contamination float64 `yaml:"contamination"`
	Trees         int     `yaml:"trees"`
	SubsampleSize int     `yaml:"subsample_size"`
	Seed          uint64  `yaml:"seed"`
	CSVPath       string  `yaml:"csv_path"`
}

// NATSConfig holds the connection settings for the NATS event transport.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// ClickHouseConfig holds the connection settings for the training corpus store.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
}

// PolicyConfig holds the policy administration service settings.
type PolicyConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	StorePath  string `yaml:"store_path"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	Hub        HubConfig        `yaml:"hub"`
	Model      ModelConfig      `yaml:"model"`
	Training   TrainingConfig   `yaml:"training"`
	NATS       NATSConfig       `yaml:"nats"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Policy     PolicyConfig     `yaml:"policy"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Agent.Interval == "" {
		c.Agent.Interval = "5s"
	}
	if c.Agent.Transport == "" {
		c.Agent.Transport = "http"
	}
	if c.Agent.HubURL == "" {
		c.Agent.HubURL = "http://localhost:8005"
	}
	if c.Agent.SendTimeout == "" {
		c.Agent.SendTimeout = "1500ms"
	}
	if c.Hub.ListenAddr == "" {
		c.Hub.ListenAddr = ":8005"
	}
	if c.Hub.WriteTimeout == "" {
		c.Hub.WriteTimeout = "2s"
	}
	if c.Hub.SubscriberBuffer <= 0 {
		c.Hub.SubscriberBuffer = 64
	}
	if c.Model.Dir == "" {
		c.Model.Dir = "models"
	}
	if c.Training.Samples <= 0 {
		c.Training.Samples = 1000
	}
	if c.Training.Contamination <= 0 {
		c.Training.Contamination = 0.03
	}
	if c.Training.Trees <= 0 {
		c.Training.Trees = 100
	}
	if c.Training.Seed == 0 {
		c.Training.Seed = 42
	}
	if c.Training.CSVPath == "" {
		c.Training.CSVPath = "data/network_dataset.csv"
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "netsentry.events"
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "training_features"
	}
	if c.Policy.ListenAddr == "" {
		c.Policy.ListenAddr = ":8006"
	}
	if c.Policy.StorePath == "" {
		c.Policy.StorePath = "data/policies.gob"
	}
}
