package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:   "boincctl",
		Short: "Query and control a BOINC client over GUI RPC",
		Long: `boincctl talks to a BOINC client daemon over its GUI RPC port.

Settings come from --config (TOML), then flags. Output is indented JSON.
Logging is controlled by BOINCCTL_LOG_LEVEL and BOINCCTL_LOG_FORMAT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.SetOut(out)
	a.bindFlags(root)

	root.AddCommand(
		messagesCmd(a),
		projectsCmd(a),
		resultsCmd(a),
		hostInfoCmd(a),
		versionCmd(a),
		acctMgrCmd(a),
		modeCmd(a),
		languageCmd(a),
		projectCmd(a),
		benchmarksCmd(a),
		statusCmd(a),
		exporterCmd(a),
		configCmd(a),
	)
	return root
}
