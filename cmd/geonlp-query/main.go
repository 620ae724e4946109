// Command geonlp-query loads a built index, parses a free-form address,
// runs the Search Core, and prints ranked, assembled results. Flag layout
// follows cmd/matcher/main.go's cobra style.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ehdc/geonlp/internal/config"
	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/result"
	"github.com/ehdc/geonlp/internal/search"
	"github.com/ehdc/geonlp/internal/store"
)

const version = "1.0.0"

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	var (
		geocoderData   string
		postalCountry  string
		postalGlobal   string
		maxResults     int
		refLatitude    float64
		refLongitude   float64
		refZoom        int
		refImportance  float64
		showVersion    bool
	)

	cmd := &cobra.Command{
		Use:           "geonlp-query QUERY",
		Short:         "Resolve a free-form address against a built geonlp index",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Println(version)
				return nil
			}
			if len(args) != 1 || geocoderData == "" {
				return errMissingInput
			}
			return run(args[0], geocoderData, postalCountry, postalGlobal, maxResults,
				refLatitude, refLongitude, refZoom, refImportance)
		},
	}

	cmd.Flags().StringVar(&geocoderData, "geocoder-data", "", "directory holding the built index (required)")
	cmd.Flags().StringVar(&postalCountry, "postal-country", "", "libpostal per-country data directory")
	cmd.Flags().StringVar(&postalGlobal, "postal-global", "", "libpostal global data directory")
	cmd.Flags().IntVar(&maxResults, "max-results", 10, "maximum results returned; 0 means unbounded")
	cmd.Flags().Float64Var(&refLatitude, "ref-latitude", 0, "reference latitude (reserved for future ranking bias)")
	cmd.Flags().Float64Var(&refLongitude, "ref-longitude", 0, "reference longitude (reserved for future ranking bias)")
	cmd.Flags().IntVar(&refZoom, "ref-zoom", 0, "reference zoom level (reserved for future ranking bias)")
	cmd.Flags().Float64Var(&refImportance, "ref-importance", 0, "reference importance 0..1 (reserved for future ranking bias)")
	cmd.Flags().BoolVar(&showVersion, "version", false, "print the version and exit")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}

var errMissingInput = fmt.Errorf("geonlp-query: a query string and --geocoder-data are required")

// run wires store.Reader, expander.GopostalExpander, search.Searcher, and
// result.Assembler into the pipeline: raw string -> Expander -> parses ->
// Search Core -> candidate place-ids -> Result Assembler -> ranked
// results. postalGlobal and postalCountry configure libpostal's data
// directories for expansion and parsing respectively; when postalCountry
// is empty, the index's own postal:country:parser meta hint (written by
// geonlp-import's --postal-country) is used instead, if present.
// refLatitude/refLongitude/refZoom/refImportance are accepted for
// CLI-surface parity but are not yet consumed by any ranking step.
func run(query, geocoderData, postalCountry, postalGlobal string, maxResults int,
	_, _ float64, _ int, _ float64) error {
	ctx := context.Background()

	reader, err := store.Load(ctx, geocoderData)
	if err != nil {
		return fmt.Errorf("geonlp-query: %w", err)
	}
	defer reader.Drop()

	if postalCountry == "" && postalGlobal != "" {
		if hint, ok := reader.PostalCountryParser(ctx); ok {
			postalCountry = filepath.Join(postalGlobal, hint)
		}
	}

	exp := expander.NewGopostalExpander(postalGlobal, postalCountry)

	parsed, err := exp.Parse(query)
	if err != nil {
		return fmt.Errorf("geonlp-query: parse address: %w", err)
	}

	searcher := &search.Searcher{
		Store: reader,
		Cfg: search.Config{
			MaxQueriesPerHierarchy: 1000,
			NumLanguages:           1,
			MaxResults:             maxResults,
			MaxIntermediateOffset:  32,
		},
	}

	candidates, err := searcher.Search(ctx, parsed.Parses, 0)
	if err != nil {
		return fmt.Errorf("geonlp-query: search: %w", err)
	}

	assembler := &result.Assembler{
		Store: reader,
		Cfg: result.Config{
			LevelsInTitle:           2,
			PreferredResultLanguage: "",
		},
	}

	var addrs []result.Address
	wantPostalCode := exp.NormalizePostalCode(parsed.LabelsOnly[expander.LabelPostalCode])
	for _, c := range candidates {
		addr, ok := assembler.Assemble(ctx, c.ID)
		if !ok {
			continue
		}
		if !result.MatchesPostalCode(addr, wantPostalCode) {
			continue
		}
		addrs = append(addrs, addr)
	}
	addrs = result.Rank(addrs, maxResults)

	if len(addrs) == 0 {
		if title := result.FallbackTitle(parsed.LabelsOnly); title != "" {
			fmt.Printf("no results; best segmentation: %s\n", title)
			return nil
		}
		fmt.Println("no results")
		return nil
	}
	for _, a := range addrs {
		fmt.Printf("%s\t%.6f,%.6f\t%s\n", a.FullAddress, a.Latitude, a.Longitude, a.PostalCode)
	}
	return nil
}
