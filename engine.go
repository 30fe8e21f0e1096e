package devana

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jward/devana/internal/annotate"
	"github.com/jward/devana/internal/build"
	"github.com/jward/devana/internal/config"
	"github.com/jward/devana/internal/frontend"
	"github.com/jward/devana/internal/model"
	"github.com/jward/devana/internal/resolve"
	"github.com/jward/devana/internal/store"
	"github.com/jward/devana/internal/syntax"
)

// Engine runs the devana pipeline: per-unit build, link, resolution,
// annotation and sealing. An Engine holds no state between builds and may
// be reused.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	// useParallel enables the parallel per-unit pipeline.
	useParallel bool
	jobs        int
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the configuration. Parallelism and job count are taken
// from cfg.Build unless WithParallel or WithJobs come later.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
		e.useParallel = config.On(cfg.Build.Parallel)
		e.jobs = cfg.Build.Jobs
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithParallel controls the parallel pipeline. When true (default), units
// are parsed and built by a bounded worker group; link, resolution and
// annotation always run serially.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithJobs bounds the number of units processed at once. Zero means one per
// CPU.
func WithJobs(n int) Option {
	return func(e *Engine) {
		e.jobs = n
	}
}

// New creates an Engine. The configuration is validated here so that a
// bad value fails before any unit is read.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:         config.DefaultConfig(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := config.Validate(e.cfg); err != nil {
		return nil, fmt.Errorf("devana: %w", err)
	}
	if e.jobs < 0 {
		return nil, fmt.Errorf("devana: %w: jobs must be non-negative, got %d", config.ErrInvalidConfig, e.jobs)
	}
	return e, nil
}

// Config returns the configuration in use.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

func (e *Engine) annotateOptions() annotate.Options {
	c := e.cfg.Comments
	return annotate.Options{
		Namespace:         e.cfg.Directives.Namespace,
		Accumulate:        config.On(c.Accumulate),
		RemoveAsterisks:   config.On(c.RemoveAsterisks),
		RemoveBlankLines:  config.On(c.RemoveBlankLines),
		TrailingFieldDocs: config.On(c.TrailingFieldDocs),
	}
}

// Build runs the pipeline over units and returns the sealed model. A
// structural error in any unit fails the build; every unit is still built
// so that all structural errors are reported together.
func (e *Engine) Build(ctx context.Context, units ...*syntax.Unit) (*Model, error) {
	start := time.Now()
	var (
		arenas []*model.Arena
		err    error
	)
	if e.useParallel && len(units) > 1 {
		arenas, err = e.buildUnitsParallel(ctx, units)
	} else {
		arenas, err = e.buildUnitsSerial(ctx, units)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a, err := build.Link(arenas, e.cfg.Build.MaxDiagnostics)
	if err != nil {
		return nil, fmt.Errorf("devana: %w", err)
	}
	e.logger.Debug("stage done", "stage", "link", "units", len(arenas), "entities", len(a.All()))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rs := resolve.New(a).Run()
	e.logger.Debug("stage done", "stage", "resolve",
		"references", rs.References, "unresolved", rs.Unresolved,
		"ambiguous", rs.Ambiguous, "specializations", rs.Specializations,
		"instances", rs.Instances)

	as := annotate.Bind(a, e.annotateOptions())
	e.logger.Debug("stage done", "stage", "annotate",
		"documented", as.Documented, "attributes", as.Attributes,
		"directives", as.Directives, "malformed", as.Malformed)

	a.Diags.Sort()
	a.Seal()
	m, err := newModel(a)
	if err != nil {
		return nil, err
	}
	m.sources = make(map[string][]byte, len(units))
	for _, u := range units {
		if u.Source != nil {
			m.sources[u.Path] = u.Source
		}
	}
	e.logger.Info("model built",
		"units", len(units),
		"entities", len(a.All()),
		"diagnostics", a.Diags.Len(),
		"elapsed", time.Since(start))
	return m, nil
}

func (e *Engine) buildUnitsSerial(ctx context.Context, units []*syntax.Unit) ([]*model.Arena, error) {
	arenas := make([]*model.Arena, len(units))
	var errs []error
	for i, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := e.buildUnit(u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		arenas[i] = a
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("devana: %d unit(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return arenas, nil
}

// buildUnit adapts, builds and merges one unit.
func (e *Engine) buildUnit(u *syntax.Unit) (*model.Arena, error) {
	a, err := build.Unit(syntax.Adapt(u), e.cfg.Build.MaxDiagnostics)
	if err != nil {
		e.logger.Warn("unit failed", "unit", u.Path, "err", err)
		return nil, fmt.Errorf("build %s: %w", u.Path, err)
	}
	e.logger.Debug("stage done", "stage", "build", "unit", u.Path,
		"entities", len(a.All()), "diagnostics", a.Diags.Len())
	return a, nil
}

// BuildSource parses one in-memory C++ buffer and builds it.
func (e *Engine) BuildSource(ctx context.Context, name string, src []byte) (*Model, error) {
	u, err := frontend.Parse(ctx, name, src)
	if err != nil {
		return nil, err
	}
	return e.Build(ctx, u)
}

// BuildFiles parses the given C++ files and builds them as one model.
// Units are linked in the order given.
func (e *Engine) BuildFiles(ctx context.Context, paths ...string) (*Model, error) {
	var (
		units []*syntax.Unit
		err   error
	)
	if e.useParallel && len(paths) > 1 {
		units, err = e.parseFilesParallel(ctx, paths)
	} else {
		units, err = e.parseFilesSerial(ctx, paths)
	}
	if err != nil {
		return nil, err
	}
	return e.Build(ctx, units...)
}

func (e *Engine) parseFilesSerial(ctx context.Context, paths []string) ([]*syntax.Unit, error) {
	units := make([]*syntax.Unit, 0, len(paths))
	for _, p := range paths {
		u, err := frontend.ParseFile(ctx, p)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

// BuildDirectory builds every source file under root that the
// configuration selects. If root is inside a git repository, git ls-files
// is used so that .gitignore is respected; otherwise the tree is walked,
// skipping hidden directories.
func (e *Engine) BuildDirectory(ctx context.Context, root string) (*Model, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git listing unavailable, walking", "root", root, "err", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	e.logger.Debug("sources selected", "root", root, "files", len(paths))
	return e.BuildFiles(ctx, paths...)
}

// selected reports whether the file at rel (relative to the build root)
// is a source file the configuration includes.
func (e *Engine) selected(rel string) bool {
	rel = filepath.ToSlash(rel)
	return e.cfg.Indexed(rel) && !e.cfg.Excluded(rel)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !e.selected(line) {
			continue
		}
		paths = append(paths, filepath.Join(root, line))
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used when git
// is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if rel != "." && e.cfg.Excluded(filepath.ToSlash(rel)+"/x") {
				return filepath.SkipDir
			}
			return nil
		}
		if e.selected(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// Export writes a sealed model to a SQLite database at dbPath, replacing
// any model stored there before.
func (e *Engine) Export(ctx context.Context, m *Model, dbPath string) error {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("devana: export: %w", err)
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return fmt.Errorf("devana: export: %w", err)
	}
	if err := store.Export(ctx, s, m.arena); err != nil {
		return fmt.Errorf("devana: export: %w", err)
	}
	e.logger.Info("model exported", "db", dbPath, "fingerprint", m.Fingerprint())
	return nil
}
