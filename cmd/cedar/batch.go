package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/cedar/internal/shell"
)

var batchCmd = &cobra.Command{
	Use:   "batch FILE [-- BACKEND_ARGS]",
	Short: "Run a command file against the backend",
	Long: `batch runs the commands in FILE against a fresh backend and exits
when they are done. Arguments after -- are passed to the backend
executable.

The file format is chosen by extension: .yaml and .yml files are
command manifests, .lua files are scripts whose commands global
supplies the command stream, and anything else is read as one command
per line (blank lines and # comments are skipped).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := sourceForFile(args[0])
		if err != nil {
			return err
		}
		return runSession(cmd, source, args[1:])
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

// sourceForFile builds the command source matching the file's format.
func sourceForFile(path string) (shell.Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		m, err := shell.LoadManifest(path)
		if err != nil {
			return nil, err
		}
		return m.Source(), nil
	case ".lua":
		return shell.NewLuaSource(path)
	default:
		return shell.LoadScriptFile(path)
	}
}
