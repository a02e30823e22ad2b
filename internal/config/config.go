package config

import (
	"fmt"
	"os"
	"time"

	"siteops/pkg/config"
)

// Config is the full runtime configuration shared by the api and trigger
// binaries. Each binary validates only the sections it needs.
type Config struct {
	Server  config.ServerConfig  `yaml:"server"`
	Relay   config.RelayConfig   `yaml:"relay"`
	Backend config.BackendConfig `yaml:"backend"`
	DB      config.DBConfig      `yaml:"db"`
	Redis   config.RedisConfig   `yaml:"redis"`
	MQ      config.MQConfig      `yaml:"mq"`
	Contact ContactConfig        `yaml:"contact"`
	Trigger TriggerConfig        `yaml:"trigger"`
}

// ContactConfig tunes the public contact endpoint
type ContactConfig struct {
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

// TriggerConfig tunes the scheduled trigger
type TriggerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	HealthPort string        `yaml:"health_port"`
}

const (
	DefaultServerPort  = "8080"
	DefaultHealthPort  = "8084"
	DefaultDedupTTL    = 10 * time.Minute
	DefaultRelayTarget = "https://api.web3forms.com/submit"
)

// Defaults returns a Config with every optional value filled in
func Defaults() *Config {
	return &Config{
		Server:  config.ServerConfig{Port: DefaultServerPort},
		Relay:   config.RelayConfig{Endpoint: DefaultRelayTarget},
		Contact: ContactConfig{DedupTTL: DefaultDedupTTL},
		Trigger: TriggerConfig{HealthPort: DefaultHealthPort},
	}
}

// Load reads CONFIG_DIR/base.yaml and CONFIG_ENV overlays, then applies
// environment overrides (highest priority)
func Load() (*Config, error) {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")
	return LoadFrom(env, configDir, os.Getenv)
}

// LoadFrom is Load with explicit inputs
func LoadFrom(env, configDir string, getenv config.Getenv) (*Config, error) {
	// 使用统一配置中心
	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := Defaults()
	if err := config.Decode(cfgMap, cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideServerFromEnv(&cfg.Server, getenv)
	config.OverrideRelayFromEnv(&cfg.Relay, getenv)
	config.OverrideBackendFromEnv(&cfg.Backend, getenv)
	config.OverrideDBFromEnv(&cfg.DB, getenv)
	config.OverrideRedisFromEnv(&cfg.Redis, getenv)
	config.OverrideMQFromEnv(&cfg.MQ, getenv)

	return cfg, nil
}
