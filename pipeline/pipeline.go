// Package pipeline runs generation end to end: extract every unit, normalize
// it against the ownership of the whole run, emit artifacts, decide drift
// and, in write mode, write what is safe to write.
//
// Units run as independent pipelines in parallel. A failure in any unit
// stops the run before anything is written, and every unit's errors are
// reported together.
package pipeline

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/bridgegen/config"
	"github.com/teranos/bridgegen/drift"
	"github.com/teranos/bridgegen/emit"
	"github.com/teranos/bridgegen/emit/typescript"
	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/extract"
	"github.com/teranos/bridgegen/ir"
	"github.com/teranos/bridgegen/logger"
	"github.com/teranos/bridgegen/normalize"
	"github.com/teranos/bridgegen/version"
)

// Mode selects whether a run writes.
type Mode string

const (
	// Write writes Stale artifacts and refuses Conflicts.
	Write Mode = "write"

	// Check writes nothing and fails on any drift.
	Check Mode = "check"
)

// Options configure one run.
type Options struct {
	Mode Mode

	// Units restricts output to the named units. Every unit is still
	// extracted so cross-unit references resolve; the index and orphan
	// pruning only run when all units are selected.
	Units []string

	// Force overwrites files edited without re-marking.
	Force bool

	// Emitter renders the IR. Nil selects TypeScript.
	Emitter emit.Emitter

	// Cache memoises Go unit extraction between runs.
	Cache *extract.Cache
}

// Run executes one generation run. The returned error is a generation or IO
// failure; drift and conflicts are reported through Report.OK.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Report, error) {
	if opts.Mode == "" {
		opts.Mode = Write
	}
	if opts.Emitter == nil {
		opts.Emitter = typescript.NewGenerator()
	}
	report := &Report{RunID: uuid.NewString(), Mode: opts.Mode, Started: time.Now()}
	log := logger.Named("pipeline").With("run_id", report.RunID)

	selected, all, err := selectUnits(cfg, opts.Units)
	if err != nil {
		return nil, err
	}
	for _, u := range cfg.Units {
		if selected[u.Name] {
			report.Units = append(report.Units, u.Name)
		}
	}
	log.Infow("Starting generation", "mode", opts.Mode, "units", report.Units)

	units, err := Load(ctx, cfg, opts)
	if err != nil {
		log.Errorw("Generation failed; nothing was written", "error", err)
		return nil, err
	}

	artifacts, err := opts.Emitter.Emit(units, emit.Options{
		Version:  version.Marker(),
		Bindings: cfg.Bindings.Enabled,
		Async:    cfg.Bindings.Async,
		Index:    cfg.Output.Index && all,
	})
	if err != nil {
		log.Errorw("Emission failed; nothing was written", "error", err)
		return nil, err
	}
	runtime := false
	for _, m := range units {
		if selected[m.Unit] && len(m.Signatures) > 0 {
			runtime = true
		}
	}
	artifacts = keep(artifacts, selected, runtime)

	detector := &drift.Detector{Dir: cfg.OutputDir(), Running: version.Semver(), Force: opts.Force}
	var results []drift.Result
	if all {
		results, err = detector.Check(artifacts)
	} else {
		results, err = decideEach(detector, artifacts)
	}
	if err != nil {
		return nil, err
	}

	if opts.Mode == Write {
		results, err = detector.Apply(ctx, results, cfg.Output.Prune && all)
		if err != nil {
			return nil, err
		}
	}
	report.Results = results
	report.Duration = time.Since(report.Started)

	counts := report.Counts()
	log.Infow("Generation finished",
		"ok", report.OK(),
		"unchanged", counts[drift.Unchanged],
		"stale", counts[drift.Stale],
		"conflict", counts[drift.Conflict],
		"written", report.Written(),
		"duration", report.Duration)
	return report, nil
}

// Load extracts and normalizes every configured unit. Units run in parallel,
// at most cfg.Workers at a time, and every unit's errors are aggregated.
func Load(ctx context.Context, cfg *config.Config, opts Options) ([]*ir.IR, error) {
	namer := opts.Emitter
	if namer == nil {
		namer = typescript.NewGenerator()
	}
	units := cfg.Units
	workers := cfg.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers
	}

	packages, err := resolvePackages(ctx, cfg, workers)
	if err != nil {
		return nil, err
	}

	extracted := make([]*ir.IR, len(units))
	if err := parallel(workers, len(units), func(i int) error {
		m, err := extractUnit(ctx, cfg, units[i], packages, opts.Cache)
		extracted[i] = m
		return err
	}); err != nil {
		return nil, err
	}

	owners := normalize.Ownership{}
	for _, m := range extracted {
		owners.Add(m)
	}

	normalized := make([]*ir.IR, len(units))
	if err := parallel(workers, len(units), func(i int) error {
		m, err := normalize.Normalize(extracted[i], normalize.Options{Owners: owners, Namer: namer})
		normalized[i] = m
		return err
	}); err != nil {
		return nil, err
	}
	return normalized, nil
}

// parallel runs fn for 0..n-1 with at most limit in flight and aggregates
// every error instead of stopping at the first.
func parallel(limit, n int, fn func(i int) error) error {
	errs := make([]error, n)
	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			errs[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait()

	var list errors.List
	for _, err := range errs {
		if err == nil {
			continue
		}
		if members, ok := err.(errors.List); ok {
			list = append(list, members...)
			continue
		}
		list = append(list, err)
	}
	return list.Err()
}

// resolvePackages maps the import path of every Go unit to its unit name.
func resolvePackages(ctx context.Context, cfg *config.Config, workers int) (map[string]string, error) {
	paths := make([]string, len(cfg.Units))
	err := parallel(workers, len(cfg.Units), func(i int) error {
		u := cfg.Units[i]
		if u.Package == "" {
			return nil
		}
		path, err := extract.ImportPath(ctx, source(cfg, u, nil))
		paths[i] = path
		return errors.WithUnit(err, u.Name)
	})
	if err != nil {
		return nil, err
	}
	owners := make(map[string]string)
	for i, path := range paths {
		if path != "" {
			owners[path] = cfg.Units[i].Name
		}
	}
	return owners, nil
}

func source(cfg *config.Config, u config.UnitConfig, owners map[string]string) extract.Source {
	return extract.Source{
		Unit:      u.Name,
		Package:   u.Package,
		Dir:       cfg.BackendDir(),
		BuildTags: cfg.Backend.BuildTags,
		Tests:     cfg.Backend.Tests,
		Exclude:   u.Exclude,
		Mappings:  cfg.Mappings(),
		Owners:    owners,
	}
}

func extractUnit(ctx context.Context, cfg *config.Config, u config.UnitConfig, owners map[string]string, cache *extract.Cache) (*ir.IR, error) {
	if u.Schema != "" {
		m, err := extract.Schema(cfg.Resolve(u.Schema))
		if err != nil {
			return nil, errors.WithUnit(err, u.Name)
		}
		m.Unit = u.Name
		extract.Filter(m, u.Exclude)
		return m, nil
	}
	src := source(cfg, u, owners)
	if cache != nil {
		return cache.Package(ctx, src)
	}
	return extract.Package(ctx, src)
}

// selectUnits validates names and reports whether every unit is selected.
func selectUnits(cfg *config.Config, names []string) (map[string]bool, bool, error) {
	selected := make(map[string]bool, len(cfg.Units))
	if len(names) == 0 {
		for _, u := range cfg.Units {
			selected[u.Name] = true
		}
		return selected, true, nil
	}
	var known []string
	for _, u := range cfg.Units {
		known = append(known, u.Name)
	}
	for _, name := range names {
		if _, ok := cfg.Unit(name); !ok {
			return nil, false, errors.WithHintf(errors.Newf("unknown unit %q", name),
				"configured units: %s", strings.Join(known, ", "))
		}
		selected[name] = true
	}
	return selected, len(selected) == len(cfg.Units), nil
}

// keep drops artifacts of unselected units. The index only exists for full
// runs; the runtime stays while a selected unit has bindings.
func keep(artifacts []emit.Artifact, selected map[string]bool, runtime bool) []emit.Artifact {
	out := artifacts[:0]
	for _, a := range artifacts {
		switch a.Unit {
		case emit.IndexUnit:
			out = append(out, a)
		case emit.RuntimeUnit:
			if runtime {
				out = append(out, a)
			}
		default:
			if selected[a.Unit] {
				out = append(out, a)
			}
		}
	}
	return out
}

func decideEach(d *drift.Detector, artifacts []emit.Artifact) ([]drift.Result, error) {
	results := make([]drift.Result, 0, len(artifacts))
	for i := range artifacts {
		r, err := d.Decide(&artifacts[i])
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}

// WatchPaths lists the directories whose changes affect the run: every Go
// unit's package directory, the directories of the local packages it
// imports, and every schema document's directory.
func WatchPaths(ctx context.Context, cfg *config.Config) ([]string, error) {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	for _, u := range cfg.Units {
		if u.Schema != "" {
			add(filepath.Dir(cfg.Resolve(u.Schema)))
			continue
		}
		files, err := extract.PackageFiles(ctx, source(cfg, u, nil))
		if err != nil {
			return nil, errors.WithUnit(err, u.Name)
		}
		for _, f := range files {
			add(filepath.Dir(f))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
