package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/danmuck/boincctl/client"
	"github.com/danmuck/boincctl/internal/config"
	"github.com/danmuck/boincctl/internal/logging"
	"github.com/danmuck/boincctl/internal/observability"
	"github.com/spf13/cobra"
)

// app carries global flags and the resolved configuration between commands.
type app struct {
	out io.Writer

	configPath   string
	address      string
	password     string
	passwordFile string
	maxRetries   int

	cfg config.Config
	// observer is attached to clients built by newClient; the exporter sets it.
	observer client.Observer
}

func (a *app) bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "path to a boincctl TOML config")
	f.StringVarP(&a.address, "address", "a", "", "daemon host:port (default 127.0.0.1:31416)")
	f.StringVarP(&a.password, "password", "p", "", "GUI RPC password")
	f.StringVar(&a.passwordFile, "password-file", "", "read the password from the first line of this file")
	f.IntVar(&a.maxRetries, "max-retries", 0, "retries after network failures (default 2)")
}

// load resolves config file, then flags, then the password file.
func (a *app) load(cmd *cobra.Command) error {
	logging.ConfigureRuntime()

	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("address") {
		cfg.Client.Address = a.address
	}
	if flags.Changed("password") {
		cfg.Client.Password = a.password
	}
	if flags.Changed("password-file") {
		cfg.PasswordFile = a.passwordFile
		if !flags.Changed("password") {
			cfg.Client.Password = ""
		}
	}
	if flags.Changed("max-retries") {
		cfg.Client.MaxRetries = a.maxRetries
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := cfg.ResolvePassword(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) newClient() *client.Client {
	cfg := a.cfg.Client
	logger := observability.Logger("client")
	cfg.Logger = &logger
	cfg.Observer = a.observer
	return client.New(cfg)
}

// withClient runs fn against a fresh client and closes it afterwards.
func (a *app) withClient(fn func(c *client.Client) error) error {
	c := a.newClient()
	defer c.Close()
	return fn(c)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
