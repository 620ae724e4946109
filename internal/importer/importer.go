// Package importer orchestrates the import pipeline: it drives a pg.Source
// through the Hierarchy Builder's ingest/cleanup/finalize sequence and
// hands the finalized builder to store.Writer. The iterative missing-parent
// fetch is the one genuinely I/O-bound, parallelizable stage in the
// pipeline, so it fans out across worker goroutines the same way
// other_examples' gnames-gndb internal/iopopulate/hierarchy.go fans out its
// taxon-parsing workers: a bounded pool of goroutines does the concurrent
// work (here, network round-trips instead of CPU-bound parsing) and feeds
// results back through a per-worker results slice to a single sequential
// consumer, so
// internal/hierarchy's arena — which is not safe for concurrent writers —
// only ever sees one writer at a time.
package importer

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ehdc/geonlp/internal/boundary"
	"github.com/ehdc/geonlp/internal/debug"
	"github.com/ehdc/geonlp/internal/expander"
	"github.com/ehdc/geonlp/internal/hierarchy"
	"github.com/ehdc/geonlp/internal/store"
)

// Source is the relational-source capability the importer requires: exactly
// *pg.Source's read methods, narrowed to an interface so unit tests can
// supply an in-memory double instead of a live Postgres connection, the same
// way internal/expander.Expander is wired as an interface so a deterministic
// stub can stand in for the real libpostal-backed implementation.
type Source interface {
	PrimaryRows(ctx context.Context) ([]hierarchy.RawRow, error)
	LinkedRows(ctx context.Context) ([]hierarchy.RawRow, error)
	FetchByIDs(ctx context.Context, ids []int64) ([]hierarchy.RawRow, error)
	CountryAdminNode(ctx context.Context, countryCode string) (hierarchy.RawRow, bool, error)
}

// Config holds the importer's tunables, kept as an explicit struct rather
// than process-wide state so a single process can run more than one import
// with different settings without global mutation.
type Config struct {
	PriorityTypes     []string
	SkipTypes         []string
	Boundary          *boundary.Boundary
	PostalCountryCode string
	Verbose           bool
	// FetchWorkers bounds the missing-parent fetch worker pool; <= 0 uses
	// runtime.NumCPU().
	FetchWorkers int
}

func (c Config) workers() int {
	if c.FetchWorkers > 0 {
		return c.FetchWorkers
	}
	return runtime.NumCPU()
}

// Importer ties the relational source, the Hierarchy Builder, and the
// Index Writer together into the single Run entry point cmd/geonlp-import
// calls.
type Importer struct {
	Source   Source
	Expander expander.Expander
	Cfg      Config
}

// Run executes the full import pipeline — ingest primary rows, merge linked
// rows, resolve missing parents, collapse duplicate siblings, re-parent
// country roots, finalize the hierarchy, then write the resulting index —
// under outDir. Cleanup runs before setCountries: duplicate collapse has to
// see the full un-reparented root set, since country re-parenting narrows
// which roots are siblings of which and would hide duplicates that share a
// country-less root.
func (im *Importer) Run(ctx context.Context, outDir string) (store.WriteResult, error) {
	b := hierarchy.NewBuilder(im.Cfg.PriorityTypes, im.Cfg.SkipTypes)

	defer debug.DebugTiming(im.Cfg.Verbose, "import")()

	if err := im.ingestPrimary(ctx, b); err != nil {
		return store.WriteResult{}, err
	}
	if err := im.ingestLinked(ctx, b); err != nil {
		return store.WriteResult{}, err
	}
	if err := im.resolveMissingParents(ctx, b); err != nil {
		return store.WriteResult{}, err
	}

	b.Cleanup()
	if err := im.setCountries(ctx, b); err != nil {
		return store.WriteResult{}, err
	}

	if err := b.Finalize(); err != nil {
		return store.WriteResult{}, fmt.Errorf("importer: finalize: %w", err)
	}
	if err := b.CheckIndexing(); err != nil {
		return store.WriteResult{}, fmt.Errorf("importer: check indexing: %w", err)
	}

	w := &store.Writer{Expander: im.Expander}
	return w.Write(ctx, outDir, b, im.Cfg.PostalCountryCode)
}

// ingestPrimary loads every primary row, skipping rows outside the import
// boundary when one was supplied (the --poly feature recovered from
// original_source/importer/src/main.cpp).
func (im *Importer) ingestPrimary(ctx context.Context, b *hierarchy.Builder) error {
	rows, err := im.Source.PrimaryRows(ctx)
	if err != nil {
		return fmt.Errorf("importer: load primary rows: %w", err)
	}
	debug.DebugOutput(im.Cfg.Verbose, "loaded %d primary rows", len(rows))

	for _, row := range rows {
		if im.Cfg.Boundary != nil && !im.Cfg.Boundary.Contains(row.Latitude, row.Longitude) {
			continue
		}
		if err := b.AddItem(row); err != nil {
			return fmt.Errorf("importer: ingest primary: %w", err)
		}
	}
	return nil
}

// ingestLinked merges every linked row into its host, logging rather than
// failing when the host hasn't been ingested: this kind of data
// inconsistency is a skip, not a fatal error, unlike a duplicate insert or a
// cycle.
func (im *Importer) ingestLinked(ctx context.Context, b *hierarchy.Builder) error {
	rows, err := im.Source.LinkedRows(ctx)
	if err != nil {
		return fmt.Errorf("importer: load linked rows: %w", err)
	}
	debug.DebugOutput(im.Cfg.Verbose, "loaded %d linked rows", len(rows))

	for _, row := range rows {
		if !b.AddLinkedItem(row) {
			debug.DebugOutput(im.Cfg.Verbose, "skipping linked row %d: host %d not found", row.PlaceID, row.LinkedPlaceID)
		}
	}
	return nil
}

// resolveMissingParents fetches missing parents by id iteratively until
// every non-zero root parent has a resolved node,
// failing fatally if the source lacks it. Each round fetches the current
// missing-id set concurrently across a worker pool (I/O-bound, since every
// fetch is a round trip to the relational source) and feeds results back
// to this single goroutine, which is the only one that ever calls
// b.AddItem.
func (im *Importer) resolveMissingParents(ctx context.Context, b *hierarchy.Builder) error {
	for {
		missing := b.MissingParentIDs()
		if len(missing) == 0 {
			return nil
		}

		rows, err := im.fetchConcurrently(ctx, missing)
		if err != nil {
			return err
		}

		progressed := false
		for _, row := range rows {
			if b.HasItem(row.PlaceID) {
				continue
			}
			if err := b.AddItem(row); err != nil {
				return fmt.Errorf("importer: resolve missing parent: %w", err)
			}
			progressed = true
		}
		if !progressed {
			return fmt.Errorf("importer: source has no resolution for %d missing parent id(s), e.g. %d",
				len(missing), missing[0])
		}
	}
}

// fetchConcurrently splits ids across im.Cfg.workers() goroutines, each
// fetching its own batch via Source.FetchByIDs, and returns every row
// found across all batches.
func (im *Importer) fetchConcurrently(ctx context.Context, ids []int64) ([]hierarchy.RawRow, error) {
	workers := im.Cfg.workers()
	if workers > len(ids) {
		workers = len(ids)
	}
	if workers < 1 {
		workers = 1
	}

	batches := make([][]int64, workers)
	for i, id := range ids {
		batches[i%workers] = append(batches[i%workers], id)
	}

	results := make([][]hierarchy.RawRow, workers)
	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		if len(batch) == 0 {
			continue
		}
		g.Go(func() error {
			rows, err := im.Source.FetchByIDs(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("importer: fetch missing parents: %w", err)
	}

	var out []hierarchy.RawRow
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

// setCountries re-parents orphan roots: for each country appearing in roots
// without a known parent, it pulls an admin-rank-4 node for that country and
// re-parents the orphan roots under it.
func (im *Importer) setCountries(ctx context.Context, b *hierarchy.Builder) error {
	for _, cc := range b.RootCountries() {
		node, ok, err := im.Source.CountryAdminNode(ctx, cc)
		if err != nil {
			return fmt.Errorf("importer: fetch country node for %s: %w", cc, err)
		}
		if !ok {
			debug.DebugOutput(im.Cfg.Verbose, "no admin-rank-4 node found for country %s, leaving roots unattached", cc)
			continue
		}
		if !b.HasItem(node.PlaceID) {
			if err := b.AddItem(node); err != nil {
				return fmt.Errorf("importer: ingest country node %d: %w", node.PlaceID, err)
			}
		}
		if err := b.SetCountry(cc, node.PlaceID); err != nil {
			return fmt.Errorf("importer: set country %s: %w", cc, err)
		}
	}
	return nil
}
