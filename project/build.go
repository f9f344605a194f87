// Package project compiles the template files of a source tree and writes a
// report for each of them.
package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vcrobe/tplc/compiler"
	"github.com/vcrobe/tplc/console"
	"github.com/vcrobe/tplc/directive"
	"github.com/vcrobe/tplc/dom"
	"github.com/vcrobe/tplc/manifest"
)

// ReportSuffix is appended to a template name to name its report.
const ReportSuffix = ".tplc.yaml"

// Builder compiles the templates selected by a Config.
type Builder struct {
	cfg   Config
	opts  compiler.Options
	scope any

	// discover finds the sources; replaced in tests.
	discover func(root string, exts []string) ([]Source, error)
}

// NewBuilder validates cfg and loads its preview scope, if any.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.Marker == "" {
		return nil, errors.New("marker must not be empty")
	}
	b := &Builder{
		cfg:      cfg,
		opts:     compiler.Options{Marker: dom.Marker(cfg.Marker)},
		discover: Discover,
	}

	if cfg.Scope != "" {
		data, err := os.ReadFile(cfg.Scope)
		if err != nil {
			return nil, fmt.Errorf("failed to read scope: %w", err)
		}
		if err := yaml.Unmarshal(data, &b.scope); err != nil {
			return nil, fmt.Errorf("failed to parse scope %s: %w", cfg.Scope, err)
		}
	}
	return b, nil
}

// Build compiles every template under the configured root. It stops at the
// first template that fails.
func (b *Builder) Build(ctx context.Context) ([]*Report, error) {
	sources, err := b.discover(b.cfg.In, b.cfg.Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to discover templates: %w", err)
	}
	if len(sources) == 0 {
		console.Warn("no template files were found in", b.cfg.In)
		return nil, nil
	}
	console.Debug("discovered %d template(s)", len(sources))

	reports := make([]*Report, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r, err := b.BuildSource(src)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// BuildSource compiles a single template and writes its report.
func (b *Builder) BuildSource(src Source) (*Report, error) {
	raw, markup, err := readSource(src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	directives, err := b.loadDirectives(src)
	if err != nil {
		return nil, err
	}

	tmpl, err := b.opts.Compile(markup, directives)
	if err != nil {
		return nil, describeError(src, raw, b.opts.Marker, err)
	}
	console.Debug("%s: %d host and %d view placement(s)", src.Path, len(tmpl.HostFactories), len(tmpl.ViewFactories))

	report, err := NewReport(src, tmpl, b.scope)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Path, err)
	}
	if err := b.write(src, report); err != nil {
		return nil, err
	}
	return report, nil
}

// loadDirectives reads the manifest of src. A template without a manifest
// has no directives.
func (b *Builder) loadDirectives(src Source) ([]directive.Directive, error) {
	m, err := manifest.LoadFile(src.Manifest)
	if errors.Is(err, fs.ErrNotExist) {
		console.Debug("%s: no manifest, compiling without directives", src.Path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	directives, err := m.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Manifest, err)
	}
	return directives, nil
}

func (b *Builder) write(src Source, report *Report) error {
	dir := filepath.Dir(src.Path)
	if b.cfg.Out != "" {
		dir = b.cfg.Out
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report for %s: %w", src.Path, err)
	}

	out := filepath.Join(dir, src.Name+ReportSuffix)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	report.Output = out
	return nil
}
