package intercom

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 控制 channel 连接行为。
type Config struct {
	// Endpoint 支持 vsock://cid:port、unix://path 与裸 tcp host:port。
	Endpoint string `yaml:"endpoint"`

	DialTimeout    time.Duration `yaml:"dial_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`

	Backoff BackoffConfig `yaml:"backoff"`

	// BreakerThreshold/BreakerCooldown 控制重连风暴保护。
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// BackoffConfig 决定断线重连指数退避参数。
type BackoffConfig struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
	Jitter  float64       `yaml:"jitter"`
}

// DefaultConfig 返回安全默认值。
func DefaultConfig() Config {
	return Config{
		DialTimeout:    500 * time.Millisecond,
		RequestTimeout: 30 * time.Second,
		WriteTimeout:   2 * time.Second,
		Backoff: BackoffConfig{
			Initial: 25 * time.Millisecond,
			Max:     2 * time.Second,
			Jitter:  0.2,
		},
		BreakerThreshold: 5,
		BreakerCooldown:  time.Second,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.Backoff.Initial <= 0 {
		c.Backoff.Initial = def.Backoff.Initial
	}
	if c.Backoff.Max <= 0 {
		c.Backoff.Max = def.Backoff.Max
	}
	if c.Backoff.Jitter < 0 {
		c.Backoff.Jitter = def.Backoff.Jitter
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = def.BreakerThreshold
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = def.BreakerCooldown
	}
	return c
}

// LoadConfigFromEnv 解析环境变量覆盖项。
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("FRONT_AUTHORITY_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if d := readDuration("FRONT_CHANNEL_DIAL_TIMEOUT"); d > 0 {
		cfg.DialTimeout = d
	}
	if d := readDuration("FRONT_CHANNEL_REQUEST_TIMEOUT"); d > 0 {
		cfg.RequestTimeout = d
	}
	if d := readDuration("FRONT_CHANNEL_WRITE_TIMEOUT"); d > 0 {
		cfg.WriteTimeout = d
	}
	if d := readDuration("FRONT_CHANNEL_RETRY_INITIAL"); d > 0 {
		cfg.Backoff.Initial = d
	}
	if d := readDuration("FRONT_CHANNEL_RETRY_MAX"); d > 0 {
		cfg.Backoff.Max = d
	}
	if j := readFloat("FRONT_CHANNEL_RETRY_JITTER"); j >= 0 {
		cfg.Backoff.Jitter = j
	}
	if v := readInt("FRONT_CHANNEL_BREAKER_THRESHOLD"); v > 0 {
		cfg.BreakerThreshold = v
	}
	if d := readDuration("FRONT_CHANNEL_BREAKER_COOLDOWN"); d > 0 {
		cfg.BreakerCooldown = d
	}
	return cfg
}

// LoadConfigFile 从 YAML 文件读取配置，文件中缺省的字段取默认值。
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg.normalize(), nil
}

func readInt(key string) int {
	value := os.Getenv(key)
	if value == "" {
		return 0
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return v
}

func readDuration(key string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func readFloat(key string) float64 {
	value := os.Getenv(key)
	if value == "" {
		return -1
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return -1
	}
	return v
}
