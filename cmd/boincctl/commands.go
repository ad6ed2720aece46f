package main

import (
	"github.com/danmuck/boincctl/client"
	"github.com/danmuck/boincctl/model"
	"github.com/spf13/cobra"
)

// clientVersion is announced in exchange_versions.
var clientVersion = model.VersionInfo{Major: 8, Minor: 0, Release: 0}

type outcome struct {
	OK bool `json:"ok"`
}

func messagesCmd(a *app) *cobra.Command {
	var seqno int64
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Print daemon log messages newer than --seqno",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(func(c *client.Client) error {
				msgs, err := c.GetMessages(cmd.Context(), seqno)
				if err != nil {
					return err
				}
				return a.printJSON(msgs)
			})
		},
	}
	cmd.Flags().Int64Var(&seqno, "seqno", 0, "only messages after this sequence number")
	return cmd
}

func projectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects known to the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(func(c *client.Client) error {
				projects, err := c.GetProjects(cmd.Context())
				if err != nil {
					return err
				}
				return a.printJSON(projects)
			})
		},
	}
}

func resultsCmd(a *app) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List task results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(func(c *client.Client) error {
				results, err := c.GetResults(cmd.Context(), active)
				if err != nil {
					return err
				}
				return a.printJSON(results)
			})
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "only results with an active task")
	return cmd
}

func hostInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "host-info",
		Short: "Print host hardware and OS information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(func(c *client.Client) error {
				info, err := c.GetHostInfo(cmd.Context())
				if err != nil {
					return err
				}
				return a.printJSON(info)
			})
		},
	}
}

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Exchange versions with the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(func(c *client.Client) error {
				daemon, err := c.ExchangeVersions(cmd.Context(), clientVersion)
				if err != nil {
					return err
				}
				return a.printJSON(map[string]string{
					"client": clientVersion.String(),
					"daemon": daemon.String(),
				})
			})
		},
	}
}

func acctMgrCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acct-mgr",
		Short: "Account manager operations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Print the configured account manager",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withClient(func(c *client.Client) error {
					info, err := c.GetAccountManagerInfo(cmd.Context())
					if err != nil {
						return err
					}
					return a.printJSON(info)
				})
			},
		},
		&cobra.Command{
			Use:   "poll",
			Short: "Print the error_num of the pending account manager RPC",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withClient(func(c *client.Client) error {
					code, err := c.GetAccountManagerRPCStatus(cmd.Context())
					if err != nil {
						return err
					}
					return a.printJSON(map[string]int{"error_num": code})
				})
			},
		},
		&cobra.Command{
			Use:   "attach <url> <name> <password>",
			Short: "Attach to an account manager",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withClient(func(c *client.Client) error {
					ok, err := c.ConnectToAccountManager(cmd.Context(), args[0], args[1], args[2])
					if err != nil {
						return err
					}
					return a.printJSON(outcome{OK: ok})
				})
			},
		},
	)
	return cmd
}

func modeCmd(a *app) *cobra.Command {
	var duration float64
	cmd := &cobra.Command{
		Use:   "mode <cpu|gpu|network> <always|auto|never|restore>",
		Short: "Set the run mode of a component",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			component, err := model.ParseComponent(args[0])
			if err != nil {
				return err
			}
			mode, err := model.ParseRunMode(args[1])
			if err != nil {
				return err
			}
			return a.withClient(func(c *client.Client) error {
				if err := c.SetMode(cmd.Context(), component, mode, duration); err != nil {
					return err
				}
				return a.printJSON(outcome{OK: true})
			})
		},
	}
	cmd.Flags().Float64Var(&duration, "duration", 0, "seconds before reverting; 0 keeps the mode")
	return cmd
}

func languageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "language <lang>",
		Short: "Set the daemon's message language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(c *client.Client) error {
				if err := c.SetLanguage(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.printJSON(outcome{OK: true})
			})
		},
	}
}

func projectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Attach to or control a project",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "attach <url> <authenticator> [name]",
			Short: "Attach to a project with an account key",
			Args:  cobra.RangeArgs(2, 3),
			RunE: func(cmd *cobra.Command, args []string) error {
				name := ""
				if len(args) == 3 {
					name = args[2]
				}
				return a.withClient(func(c *client.Client) error {
					ok, err := c.ProjectAttach(cmd.Context(), args[0], args[1], name)
					if err != nil {
						return err
					}
					return a.printJSON(outcome{OK: ok})
				})
			},
		},
		&cobra.Command{
			Use:   "op <url> <suspend|resume|update|detach|reset|nomorework|allowmorework>",
			Short: "Run a project operation",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				op, err := client.ParseProjectOp(args[1])
				if err != nil {
					return err
				}
				return a.withClient(func(c *client.Client) error {
					ok, err := c.ProjectOp(cmd.Context(), args[0], op)
					if err != nil {
						return err
					}
					return a.printJSON(outcome{OK: ok})
				})
			},
		},
	)
	return cmd
}

func benchmarksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "benchmarks",
		Short: "Run CPU benchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(func(c *client.Client) error {
				ok, err := c.RunBenchmarks(cmd.Context())
				if err != nil {
					return err
				}
				return a.printJSON(outcome{OK: ok})
			})
		},
	}
}
