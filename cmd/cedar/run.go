package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/cedar/internal/shell"
)

var runCmd = &cobra.Command{
	Use:   "run [-- BACKEND_ARGS]",
	Short: "Start an interactive session against the backend",
	Long: `run spawns a ced-core backend and feeds it commands read line by
line from stdin until EOF or quit. Arguments after -- are passed to
the backend executable.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, shell.NewReaderSource(os.Stdin), args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
