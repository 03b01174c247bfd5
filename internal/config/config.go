// Package config loads poolbench settings from a YAML file, a .env file and
// the process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full load-generator configuration.
type Config struct {
	Pool PoolConfig `yaml:"pool"`
	Load LoadConfig `yaml:"load"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr"`
}

// PoolConfig describes the pool under test.
type PoolConfig struct {
	Name       string `yaml:"name"`
	Workers    int    `yaml:"workers"`
	PinThreads bool   `yaml:"pin_threads"`
}

// LoadConfig describes the synthetic workload.
type LoadConfig struct {
	Tasks     int     `yaml:"tasks"`
	FailEvery int     `yaml:"fail_every"` // every n-th task fails; 0 = never
	Work      string  `yaml:"work"`       // simulated duration per task, e.g. "2ms"
	Rate      float64 `yaml:"rate"`       // submissions per second; 0 = unlimited
	Burst     int     `yaml:"burst"`
	Retries   int     `yaml:"retries"` // extra attempts per failed task
}

// environment mirrors the overridable settings. go-env fills plain strings;
// conversion happens in apply.
type environment struct {
	Workers     string `env:"POOLBENCH_WORKERS"`
	Tasks       string `env:"POOLBENCH_TASKS"`
	FailEvery   string `env:"POOLBENCH_FAIL_EVERY"`
	Work        string `env:"POOLBENCH_WORK"`
	Rate        string `env:"POOLBENCH_RATE"`
	Burst       string `env:"POOLBENCH_BURST"`
	Retries     string `env:"POOLBENCH_RETRIES"`
	PinThreads  string `env:"POOLBENCH_PIN_THREADS"`
	MetricsAddr string `env:"POOLBENCH_METRICS_ADDR"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Name:    "poolbench",
			Workers: 8,
		},
		Load: LoadConfig{
			Tasks: 1000,
			Work:  "2ms",
			Burst: 1,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (if not
// empty), then envFile (if it exists), then the environment.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	var e environment
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.apply(e); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func (c *Config) apply(e environment) error {
	var err error
	setInt := func(dst *int, name, v string) {
		if v == "" || err != nil {
			return
		}
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			err = fmt.Errorf("invalid %s %q: %w", name, v, convErr)
			return
		}
		*dst = n
	}

	setInt(&c.Pool.Workers, "POOLBENCH_WORKERS", e.Workers)
	setInt(&c.Load.Tasks, "POOLBENCH_TASKS", e.Tasks)
	setInt(&c.Load.FailEvery, "POOLBENCH_FAIL_EVERY", e.FailEvery)
	setInt(&c.Load.Burst, "POOLBENCH_BURST", e.Burst)
	setInt(&c.Load.Retries, "POOLBENCH_RETRIES", e.Retries)
	if err != nil {
		return err
	}

	if e.Rate != "" {
		r, convErr := strconv.ParseFloat(e.Rate, 64)
		if convErr != nil {
			return fmt.Errorf("invalid POOLBENCH_RATE %q: %w", e.Rate, convErr)
		}
		c.Load.Rate = r
	}
	if e.PinThreads != "" {
		b, convErr := strconv.ParseBool(e.PinThreads)
		if convErr != nil {
			return fmt.Errorf("invalid POOLBENCH_PIN_THREADS %q: %w", e.PinThreads, convErr)
		}
		c.Pool.PinThreads = b
	}
	if e.Work != "" {
		c.Load.Work = e.Work
	}
	if e.MetricsAddr != "" {
		c.MetricsAddr = e.MetricsAddr
	}
	return nil
}

// Validate checks the values that the pool or the load generator would
// otherwise reject later.
func (c *Config) Validate() error {
	if c.Pool.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Pool.Workers)
	}
	if c.Load.Tasks < 0 {
		return fmt.Errorf("tasks must not be negative, got %d", c.Load.Tasks)
	}
	if c.Load.FailEvery < 0 {
		return fmt.Errorf("fail_every must not be negative, got %d", c.Load.FailEvery)
	}
	if c.Load.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Load.Retries)
	}
	if c.Load.Rate < 0 {
		return fmt.Errorf("rate must not be negative, got %v", c.Load.Rate)
	}
	if c.Load.Rate > 0 && c.Load.Burst < 1 {
		return fmt.Errorf("burst must be at least 1 when rate is set, got %d", c.Load.Burst)
	}
	if _, err := c.WorkDuration(); err != nil {
		return err
	}
	return nil
}

// WorkDuration parses Load.Work. An empty value means no simulated work.
func (c *Config) WorkDuration() (time.Duration, error) {
	if c.Load.Work == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Load.Work)
	if err != nil {
		return 0, fmt.Errorf("invalid work duration: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("work duration must not be negative, got %v", d)
	}
	return d, nil
}
