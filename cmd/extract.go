package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/BLAZED-sh/xmlvalues/internal/logging"
	"github.com/BLAZED-sh/xmlvalues/pkg/batch"
)

// errExtractFailed signals per-file failures that were already logged.
var errExtractFailed = errors.New("extraction failed")

const (
	formatLines = "lines"
	formatJSON  = "json"
)

type fileOutput struct {
	Path   string   `json:"path"`
	Values []string `json:"values"`
	Error  string   `json:"error,omitempty"`
}

func newExtractCommand(root *rootOptions) *cobra.Command {
	var format string
	var workers int

	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Print the values of XML files",
		Long: `Print the values of each XML file, one per line. Without files, or with "-",
the document is read from standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatLines && format != formatJSON {
				return fmt.Errorf("unknown format %q, use %s or %s", format, formatLines, formatJSON)
			}
			if len(args) == 0 {
				args = []string{batch.StdinPath}
			}
			if !cmd.Flags().Changed("workers") {
				workers = root.cfg.Workers
			}

			extractor := batch.NewExtractor(workers, cmd.InOrStdin(), logging.Component("extract"))
			results, err := extractor.ExtractFiles(cmd.Context(), args)
			if err != nil {
				return err
			}

			failed := false
			for _, result := range results {
				if result.Err != nil {
					failed = true
					log.Error().Err(result.Err).Str("path", result.Path).Msg("Failed to extract values")
				}
				if err := writeResult(cmd.OutOrStdout(), format, result); err != nil {
					return err
				}
			}

			if failed {
				return errExtractFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatLines, "Output format (lines, json)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of files processed concurrently (default: number of CPUs)")

	return cmd
}

func writeResult(w io.Writer, format string, result batch.FileResult) error {
	if format == formatJSON {
		out := fileOutput{Path: result.Path, Values: result.Values}
		if out.Values == nil {
			out.Values = []string{}
		}
		if result.Err != nil {
			out.Error = result.Err.Error()
		}
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	for _, value := range result.Values {
		if _, err := fmt.Fprintln(w, value); err != nil {
			return err
		}
	}
	return nil
}
