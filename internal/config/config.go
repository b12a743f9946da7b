package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrMissingSecret = errors.New("auth secret is required")
)

type Config struct {
	Env             string `yaml:"env"`
	ShortCodeLength int    `yaml:"short_code_length"`
	Log             `yaml:"log"`
	HTTPServer      `yaml:"http_server"`
	Storage         `yaml:"storage"`
	Lifetime        `yaml:"lifetime"`
	Auth            `yaml:"auth"`
	Postgres        `yaml:"postgres"`
	Redis           `yaml:"redis"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Storage selects the durable store backing the registry.
type Storage struct {
	Driver        string        `yaml:"driver"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

var defaultStorage = Storage{
	Driver:        DriverMemory,
	PurgeInterval: time.Hour,
}

// Lifetime is the renewal window applied to registry entries after each mutation.
type Lifetime struct {
	Threshold time.Duration `yaml:"threshold"`
	ExtendTo  time.Duration `yaml:"extend_to"`
}

// 100000 ledgers of 5 seconds.
var defaultLifetime = Lifetime{
	Threshold: 500000 * time.Second,
	ExtendTo:  500000 * time.Second,
}

type Auth struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

var defaultAuth = Auth{
	TokenTTL: 72 * time.Hour,
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
	MigrationsPath:  "file://migrations",
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type Redis struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
}

var defaultRedis = Redis{
	Host:      "localhost",
	Port:      6379,
	PoolSize:  10,
	KeyPrefix: "url-registry:",
}

func (r *Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverRedis, DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Storage.Driver)
	}

	if c.Auth.Secret == "" {
		return ErrMissingSecret
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.ShortCodeLength = 7
	cfg.Log = Log{Level: "info"}
	cfg.HTTPServer = defaultHTTPServer
	cfg.Storage = defaultStorage
	cfg.Lifetime = defaultLifetime
	cfg.Auth = defaultAuth
	cfg.Postgres = defaultPostgres
	cfg.Redis = defaultRedis
}
