package main

import (
	"fmt"

	"github.com/danmuck/boincctl/internal/exporter"
	"github.com/danmuck/boincctl/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func exporterCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "exporter",
		Short: "Serve daemon state as Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Exporter
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := observability.NewMetrics(reg)
			a.observer = metrics

			gin.SetMode(gin.ReleaseMode)
			c := a.newClient()
			defer c.Close()
			e, err := exporter.New(cfg, c, metrics, reg, observability.Logger("exporter"))
			if err != nil {
				return fmt.Errorf("exporter: %w", err)
			}
			return e.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (default from config)")
	return cmd
}
