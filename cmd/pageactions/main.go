// Command pageactions serves the todos demo page and submits page actions
// from the command line.
package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vango-dev/pageactions/internal/config"
	"github.com/vango-dev/pageactions/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprint(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	envFile    string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "pageactions",
		Short: "Named, keyed form actions for pages",
		Long: `pageactions submits named actions to a page endpoint and reconciles
the JSON envelope it answers with.

  • serve   runs the todos demo page with live invalidation and metrics
  • submit  posts one action and prints the envelope
  • path    prints the submission path of an action`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor || os.Getenv("NO_COLOR") != "" {
				errors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: pageactions.json or pageactions.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before the config")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		serveCmd(opts),
		submitCmd(opts),
		pathCmd(),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads the .env file, if any, then the configuration.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !stderrors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.LoadOrDefault(".")
}

func formatError(err error) string {
	var pe *errors.Error
	if stderrors.As(err, &pe) {
		return pe.Format()
	}
	return fmt.Sprintf("\033[31mError:\033[0m %s\n", err)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
