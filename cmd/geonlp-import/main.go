// Command geonlp-import drives the import pipeline: read the relational
// source named by GEOCODER_IMPORTER_POSTGRES, build the hierarchy, and
// write the on-disk index artifacts to the given output directory. Flag
// layout follows cmd/matcher/main.go's cobra style.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehdc/geonlp/internal/boundary"
	"github.com/ehdc/geonlp/internal/config"
	"github.com/ehdc/geonlp/internal/debug"
	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/hierarchy"
	"github.com/ehdc/geonlp/internal/importer"
	"github.com/ehdc/geonlp/internal/store/pg"
)

// Exit codes: 0 ok; -1 missing required input; -2 boundary file open
// failure; -3 indexing failure unless a log file is given.
const (
	exitOK                 = 0
	exitMissingInput       = -1
	exitBoundaryOpenFailed = -2
	exitIndexingFailed     = -3
)

func main() {
	// Load .env (first-match-wins across .env, ../.env, ../../.env, never
	// overriding a variable already set in the process environment) before
	// reading GEOCODER_IMPORTER_POSTGRES.
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	var (
		polyPath       string
		postalCountry  string
		postalAddress  string
		priorityPath   string
		skipPath       string
		logErrorsPath  string
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:   "geonlp-import OUTPUT_DIR",
		Short: "Build a geonlp index from a relational place source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], polyPath, postalCountry, postalAddress, priorityPath, skipPath, logErrorsPath, verbose)
		},
	}

	cmd.Flags().StringVar(&polyPath, "poly", "", "GeoJSON boundary file restricting the import")
	cmd.Flags().StringVar(&postalCountry, "postal-country", "", "country code stored as the postal:country:parser meta hint")
	cmd.Flags().StringVar(&postalAddress, "postal-address", "", "libpostal parser data directory override for this import run")
	cmd.Flags().StringVar(&priorityPath, "priority", "", "file listing one priority geocoder type per line")
	cmd.Flags().StringVar(&skipPath, "skip", "", "file listing one geocoder type to skip per line")
	cmd.Flags().StringVar(&logErrorsPath, "log-errors-to-file", "", "write indexing-check failures here instead of failing the run")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug tracing")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(resolveExitCode(err))
	}
}

// importError tags an error with the exit code it should produce, since
// cobra's default Execute() path always exits 1 otherwise.
type importError struct {
	code int
	err  error
}

func (e *importError) Error() string { return e.err.Error() }
func (e *importError) Unwrap() error { return e.err }

func resolveExitCode(err error) int {
	var ie *importError
	if as, ok := err.(*importError); ok {
		ie = as
		return ie.code
	}
	return exitMissingInput
}

func run(outDir, polyPath, postalCountry, postalAddress, priorityPath, skipPath, logErrorsPath string, verbose bool) error {
	if outDir == "" {
		return &importError{exitMissingInput, fmt.Errorf("geonlp-import: output directory is required")}
	}

	var bound *boundary.Boundary
	if polyPath != "" {
		b, err := boundary.Load(polyPath)
		if err != nil {
			return &importError{exitBoundaryOpenFailed, fmt.Errorf("geonlp-import: open boundary file: %w", err)}
		}
		bound = b
	}

	priorityTypes, err := hierarchy.LoadTypeList(priorityPath)
	if err != nil {
		return &importError{exitMissingInput, err}
	}
	skipTypes, err := hierarchy.LoadTypeList(skipPath)
	if err != nil {
		return &importError{exitMissingInput, err}
	}

	src, err := pg.Open("")
	if err != nil {
		return &importError{exitMissingInput, fmt.Errorf("geonlp-import: %w", err)}
	}
	defer src.Close()

	im := &importer.Importer{
		Source:   src,
		Expander: expander.NewGopostalExpander("", postalAddress),
		Cfg: importer.Config{
			PriorityTypes:     priorityTypes,
			SkipTypes:         skipTypes,
			Boundary:          bound,
			PostalCountryCode: postalCountry,
			Verbose:           verbose,
		},
	}

	result, err := im.Run(context.Background(), outDir)
	if err != nil {
		if logErrorsPath != "" {
			if logErr := appendErrorLog(logErrorsPath, err); logErr != nil {
				return &importError{exitIndexingFailed, fmt.Errorf("geonlp-import: %w (and failed to write error log: %v)", err, logErr)}
			}
			debug.DebugOutput(verbose, "import failed, logged to %s: %v", logErrorsPath, err)
			return nil
		}
		return &importError{exitIndexingFailed, fmt.Errorf("geonlp-import: %w", err)}
	}

	fmt.Printf("wrote %d places (%d trie keys) to %s\n", result.PlaceCount, result.TrieKeyCount, outDir)
	return nil
}

func appendErrorLog(path string, cause error) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%v\n", cause)
	return err
}
