package config

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/boincctl/client"
	"github.com/danmuck/boincctl/internal/exporter"
)

// Config is the resolved boincctl configuration.
type Config struct {
	Client   client.Config
	Exporter exporter.Config
	// PasswordFile is kept for display; its contents are already in Client.Password.
	PasswordFile string
}

func Default() Config {
	return Config{
		Client:   client.DefaultConfig(),
		Exporter: exporter.DefaultConfig(),
	}
}

type fileConfig struct {
	Address          string          `toml:"address"`
	Password         string          `toml:"password"`
	PasswordFile     string          `toml:"password_file"`
	MaxRetries       int             `toml:"max_retries"`
	ConnectTimeout   string          `toml:"connect_timeout"`
	HandshakeTimeout string          `toml:"handshake_timeout"`
	ReadTimeout      string          `toml:"read_timeout"`
	WriteTimeout     string          `toml:"write_timeout"`
	Backoff          backoffConfig   `toml:"backoff"`
	Exporter         exporterSection `toml:"exporter"`
}

type backoffConfig struct {
	InitialDelay string  `toml:"initial_delay"`
	Multiplier   float64 `toml:"multiplier"`
	MaxDelay     string  `toml:"max_delay"`
	Jitter       bool    `toml:"jitter"`
}

type exporterSection struct {
	Listen       string   `toml:"listen"`
	PollInterval string   `toml:"poll_interval"`
	PollTimeout  string   `toml:"poll_timeout"`
	CORSOrigins  []string `toml:"cors_origins"`
}

// Load applies the keys present in path over Default. Keys absent from the
// file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("address") {
		cfg.Client.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("password") {
		cfg.Client.Password = raw.Password
	}
	if meta.IsDefined("password_file") {
		cfg.PasswordFile = strings.TrimSpace(raw.PasswordFile)
	}
	if meta.IsDefined("max_retries") {
		cfg.Client.MaxRetries = raw.MaxRetries
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.Client.Session.ConnectTimeout},
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.Client.Session.HandshakeTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.Client.Session.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Client.Session.WriteTimeout},
		{"backoff.initial_delay", raw.Backoff.InitialDelay, &cfg.Client.Session.Backoff.InitialDelay},
		{"backoff.max_delay", raw.Backoff.MaxDelay, &cfg.Client.Session.Backoff.MaxDelay},
		{"exporter.poll_interval", raw.Exporter.PollInterval, &cfg.Exporter.PollInterval},
		{"exporter.poll_timeout", raw.Exporter.PollTimeout, &cfg.Exporter.PollTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(strings.Split(d.key, ".")...) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("backoff", "multiplier") {
		cfg.Client.Session.Backoff.Multiplier = raw.Backoff.Multiplier
	}
	if meta.IsDefined("backoff", "jitter") {
		cfg.Client.Session.Backoff.Jitter = raw.Backoff.Jitter
	}
	if meta.IsDefined("exporter", "listen") {
		cfg.Exporter.Listen = strings.TrimSpace(raw.Exporter.Listen)
	}
	if meta.IsDefined("exporter", "cors_origins") {
		cfg.Exporter.CORSOrigins = normalizeOrigins(raw.Exporter.CORSOrigins)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// ResolvePassword loads PasswordFile when no password is set inline.
func (c *Config) ResolvePassword() error {
	if c.Client.Password != "" || c.PasswordFile == "" {
		return nil
	}
	pw, err := ReadPasswordFile(c.PasswordFile)
	if err != nil {
		return err
	}
	c.Client.Password = pw
	return nil
}

// ReadPasswordFile returns the first line of a gui_rpc_auth.cfg style file.
func ReadPasswordFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}
	return "", nil
}

func Validate(cfg Config) error {
	if _, _, err := net.SplitHostPort(cfg.Client.Address); err != nil {
		return fmt.Errorf("address %q: %w", cfg.Client.Address, err)
	}
	if cfg.Client.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", cfg.Client.MaxRetries)
	}
	s := cfg.Client.Session
	for name, d := range map[string]time.Duration{
		"connect_timeout":       s.ConnectTimeout,
		"handshake_timeout":     s.HandshakeTimeout,
		"read_timeout":          s.ReadTimeout,
		"write_timeout":         s.WriteTimeout,
		"backoff.initial_delay": s.Backoff.InitialDelay,
		"backoff.max_delay":     s.Backoff.MaxDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if s.Backoff.Multiplier != 0 && s.Backoff.Multiplier < 1 {
		return fmt.Errorf("backoff.multiplier must be >= 1, got %v", s.Backoff.Multiplier)
	}
	if cfg.Exporter.PollInterval <= 0 {
		return fmt.Errorf("exporter.poll_interval must be positive")
	}
	if strings.TrimSpace(cfg.Exporter.Listen) == "" {
		return fmt.Errorf("exporter.listen is required")
	}
	return nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	return out
}
