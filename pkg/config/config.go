package config

import (
	"fmt"
	"strconv"
	"strings"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	// DSN takes precedence over the discrete fields when set
	DSN string `yaml:"dsn"`
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

// RelayConfig 表单转发服务配置 (Web3Forms)
type RelayConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	Website   string `yaml:"website"`
}

// BackendConfig 托管后端配置 (Supabase)
type BackendConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
	Driver     string `yaml:"driver"`
	Schema     string `yaml:"schema"`
}

// MissingError reports required configuration values that were not provided
type MissingError struct {
	Section string
	Keys    []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing %s configuration: %s",
		e.Section, strings.Join(e.Keys, ", "))
}

// Validate checks that the backend address and privileged key are present
func (c BackendConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.URL) == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if strings.TrimSpace(c.ServiceKey) == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}
	if len(missing) > 0 {
		return &MissingError{Section: "backend", Keys: missing}
	}
	return nil
}

// Validate checks that the relay can be reached and authenticated
func (c RelayConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		missing = append(missing, "WEB3FORMS_ACCESS_KEY")
	}
	if len(missing) > 0 {
		return &MissingError{Section: "relay", Keys: missing}
	}
	return nil
}

// Getenv 读取环境变量的函数签名，便于测试时替换
type Getenv func(string) string

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig, getenv Getenv) {
	if dsn := getenv("DATABASE_URL"); dsn != "" {
		cfg.DSN = dsn
	}
	if host := getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig, getenv Getenv) {
	if url := getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig, getenv Getenv) {
	if addr := getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig, getenv Getenv) {
	if port := getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideRelayFromEnv 从环境变量覆盖表单转发配置
func OverrideRelayFromEnv(cfg *RelayConfig, getenv Getenv) {
	if key := getenv("WEB3FORMS_ACCESS_KEY"); key != "" {
		cfg.AccessKey = key
	}
	if endpoint := getenv("WEB3FORMS_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
}

// OverrideBackendFromEnv 从环境变量覆盖后端配置
// The front-end build variable VITE_SUPABASE_URL is accepted as a fallback.
func OverrideBackendFromEnv(cfg *BackendConfig, getenv Getenv) {
	if url := getenv("SUPABASE_URL"); url != "" {
		cfg.URL = url
	} else if url := getenv("VITE_SUPABASE_URL"); url != "" {
		cfg.URL = url
	}
	if key := getenv("SUPABASE_SERVICE_ROLE_KEY"); key != "" {
		cfg.ServiceKey = key
	}
	if driver := getenv("BACKEND_DRIVER"); driver != "" {
		cfg.Driver = driver
	}
}
