package main

import (
	"fmt"

	"github.com/danmuck/boincctl/internal/config"
	"github.com/danmuck/boincctl/internal/logging"
	"github.com/spf13/cobra"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or inspect the boincctl configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a commented config template",
		Args:  cobra.ExactArgs(1),
		// the target does not exist yet, so skip loading --config
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logging.ConfigureRuntime()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with the password redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.Render(a.cfg)
			if err != nil {
				return err
			}
			_, err = a.out.Write(out)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
