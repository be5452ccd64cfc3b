package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/BLAZED-sh/xmlvalues/internal/config"
	"github.com/BLAZED-sh/xmlvalues/internal/logging"
)

// Version info
const version = "0.1.0"

type rootOptions struct {
	configPath string
	logLevel   string
	pretty     bool

	cfg *config.Config
}

func main() {
	if err := newRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		if !errors.Is(err, errExtractFailed) {
			log.Error().Err(err).Msg("Command failed")
		}
		os.Exit(1)
	}
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "xmlvalues",
		Short: "Extract the text values of XML documents",
		Long: `xmlvalues pulls the text found between tags out of XML documents without
building a DOM. Tag names, attributes, comments and structure are ignored.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			// Explicit flags win over the config file
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = opts.logLevel
			}
			pretty := prettyLogs(cmd.Flags().Changed("pretty"), opts.pretty, cfg, isTerminal(stderr))
			cfg.Pretty = &pretty

			logging.Setup(stderr, cfg.LogLevel, pretty)
			opts.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "Enable pretty logging output")

	rootCmd.AddCommand(newExtractCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newConfigCommand(opts))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xmlvalues version %s\n", version)
		},
	})

	return rootCmd
}

// prettyLogs picks the log format: the --pretty flag, then the config file,
// then whether stderr is a terminal.
func prettyLogs(flagChanged, flagValue bool, cfg *config.Config, terminal bool) bool {
	if flagChanged {
		return flagValue
	}
	if cfg.Pretty != nil {
		return *cfg.Pretty
	}
	return terminal
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && logging.IsTerminal(f)
}
