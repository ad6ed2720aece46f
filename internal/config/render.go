package config

import (
	"github.com/pelletier/go-toml/v2"
)

const redacted = "********"

// Render encodes cfg in the file schema with the password redacted.
func Render(cfg Config) ([]byte, error) {
	s := cfg.Client.Session
	out := fileConfig{
		Address:          cfg.Client.Address,
		PasswordFile:     cfg.PasswordFile,
		MaxRetries:       cfg.Client.MaxRetries,
		ConnectTimeout:   s.ConnectTimeout.String(),
		HandshakeTimeout: s.HandshakeTimeout.String(),
		ReadTimeout:      s.ReadTimeout.String(),
		WriteTimeout:     s.WriteTimeout.String(),
		Backoff: backoffConfig{
			InitialDelay: s.Backoff.InitialDelay.String(),
			Multiplier:   s.Backoff.Multiplier,
			MaxDelay:     s.Backoff.MaxDelay.String(),
			Jitter:       s.Backoff.Jitter,
		},
		Exporter: exporterSection{
			Listen:       cfg.Exporter.Listen,
			PollInterval: cfg.Exporter.PollInterval.String(),
			PollTimeout:  cfg.Exporter.PollTimeout.String(),
			CORSOrigins:  cfg.Exporter.CORSOrigins,
		},
	}
	if cfg.Client.Password != "" {
		out.Password = redacted
	}
	return toml.Marshal(out)
}
