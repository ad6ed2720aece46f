package main

import (
	"github.com/danmuck/boincctl/client"
	"github.com/danmuck/boincctl/model"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type statusReport struct {
	Address        string                   `json:"address"`
	DaemonVersion  string                   `json:"daemon_version"`
	Host           model.HostInfo           `json:"host"`
	AccountManager model.AccountManagerInfo `json:"account_manager"`
	ActiveResults  []model.TaskResult       `json:"active_results"`
}

// statusCmd fans out over one client; the shared session serializes the calls.
func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print version, host, account manager and active results together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(func(c *client.Client) error {
				report := statusReport{Address: c.Address()}
				g, ctx := errgroup.WithContext(cmd.Context())
				g.Go(func() error {
					v, err := c.ExchangeVersions(ctx, clientVersion)
					report.DaemonVersion = v.String()
					return err
				})
				g.Go(func() error {
					var err error
					report.Host, err = c.GetHostInfo(ctx)
					return err
				})
				g.Go(func() error {
					var err error
					report.AccountManager, err = c.GetAccountManagerInfo(ctx)
					return err
				})
				g.Go(func() error {
					var err error
					report.ActiveResults, err = c.GetResults(ctx, true)
					return err
				})
				if err := g.Wait(); err != nil {
					return err
				}
				return a.printJSON(report)
			})
		},
	}
}
