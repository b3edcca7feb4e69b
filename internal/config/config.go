package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains application configuration
type Config struct {
	// DigitalOcean API token. Optional at load time: the HTTP server can
	// start without it, droplet creation fails with a configuration error.
	Token string `yaml:"token"`

	// Droplet parameters
	Region  string `yaml:"region"`
	Size    string `yaml:"size"`
	Image   string `yaml:"image"`
	SSHKeys []int  `yaml:"ssh_keys"` // account key IDs passed through on create
	Tag     string `yaml:"tag"`

	// HTTP server
	Port int `yaml:"port"`

	// Convergence polling
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	PollMaxAttempts     int `yaml:"poll_max_attempts"`
}

// PollInterval returns the delay between convergence poll attempts.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Load loads configuration from YAML file
func Load() (*Config, error) {
	config := &Config{
		Region:              "nyc3",
		Size:                "s-1vcpu-1gb",
		Image:               "ubuntu-22-04-x64",
		Tag:                 "openclaw",
		Port:                8080,
		PollIntervalSeconds: 5,
		PollMaxAttempts:     60,
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "openclaw.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	// Expand environment variables in string fields
	config.Token = os.ExpandEnv(config.Token)
	config.Region = os.ExpandEnv(config.Region)
	config.Size = os.ExpandEnv(config.Size)
	config.Image = os.ExpandEnv(config.Image)
	config.Tag = os.ExpandEnv(config.Tag)

	// Override with environment variables if set
	if token := os.Getenv("DO_TOKEN"); token != "" {
		config.Token = token
	}
	if token := os.Getenv("DIGITALOCEAN_ACCESS_TOKEN"); token != "" {
		config.Token = token
	}

	// Validate tunables; a missing token is deliberately not a load error,
	// creation reports it per-request instead.
	if config.Port <= 0 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", config.Port)
	}
	if config.PollIntervalSeconds <= 0 {
		return nil, fmt.Errorf("poll_interval_seconds must be positive, got %d", config.PollIntervalSeconds)
	}
	if config.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("poll_max_attempts must be positive, got %d", config.PollMaxAttempts)
	}

	return config, nil
}
