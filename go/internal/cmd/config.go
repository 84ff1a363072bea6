package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Everything in it has
// an environment variable fallback.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Thread struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"thread"`
	Validator struct {
		URL string `yaml:"url"`
	} `yaml:"validator"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Polling struct {
		IntervalSec int `yaml:"interval_sec"`
	} `yaml:"polling"`
	Snapshot struct {
		IntervalSec int `yaml:"interval_sec"`
	} `yaml:"snapshot"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// resolveConfig merges the YAML file (if present) with environment
// variables. Environment wins when both are set.
func resolveConfig() *Config {
	config := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if loaded, err := loadConfig(path); err == nil {
			config = loaded
		}
	}

	if v := getEnv("PORT", ""); v != "" || config.Server.Port == "" {
		config.Server.Port = getEnv("PORT", "8080")
	}
	if v := getEnv("THREAD_API_URL", ""); v != "" || config.Thread.BaseURL == "" {
		config.Thread.BaseURL = getEnv("THREAD_API_URL", "http://localhost:9000")
	}
	if v := getEnv("THREAD_API_KEY", ""); v != "" {
		config.Thread.APIKey = v
	}
	if v := getEnv("VALIDATOR_URL", ""); v != "" {
		config.Validator.URL = v
	}
	if v := getEnv("NATS_URL", ""); v != "" || config.NATS.URL == "" {
		config.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	}
	if config.Polling.IntervalSec == 0 {
		config.Polling.IntervalSec = getEnvAsInt("POLL_INTERVAL_SEC", 5)
	}
	if config.Snapshot.IntervalSec == 0 {
		config.Snapshot.IntervalSec = getEnvAsInt("SNAPSHOT_INTERVAL_SEC", 60)
	}

	return config
}

func (c *Config) pollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalSec) * time.Second
}

func (c *Config) snapshotInterval() time.Duration {
	return time.Duration(c.Snapshot.IntervalSec) * time.Second
}
