package project

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"

	"github.com/vcrobe/tplc/console"
)

// ManifestSuffix is appended to a template name to find its directive manifest.
const ManifestSuffix = ".directives.yaml"

// Source is a template file found under the build root.
type Source struct {
	Path       string // template file
	Name       string // file name without the template extension
	Package    string // Go package name of the directory
	ImportPath string // import path of the directory, if known
	Manifest   string // sidecar directive manifest
}

// Discover finds the template files with one of the given extensions that live
// in the Go packages under root. When no package holds a template, or the
// packages cannot be loaded, the directory tree is walked instead.
func Discover(root string, exts []string) ([]Source, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", root, err)
	}

	sources, err := discoverPackages(absRoot, exts)
	if err != nil {
		console.Debug("package loading failed, walking %s: %v", absRoot, err)
	}
	if len(sources) == 0 {
		return discoverWalk(absRoot, exts)
	}
	return sources, nil
}

func discoverPackages(root string, exts []string) ([]Source, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
		Dir:  root,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var sources []Source
	seen := make(map[string]bool)
	for _, pkg := range pkgs {
		if len(pkg.GoFiles) == 0 {
			continue
		}
		// All files in a package share the same directory.
		dir := filepath.Dir(pkg.GoFiles[0])
		if seen[dir] {
			continue
		}
		seen[dir] = true

		found, err := scanDir(dir, exts, pkg.Name, pkg.PkgPath)
		if err != nil {
			console.Warn("could not read directory", dir+":", err)
			continue
		}
		sources = append(sources, found...)
	}

	sortSources(sources)
	return sources, nil
}

// discoverWalk walks root and derives import paths from the enclosing go.mod.
func discoverWalk(root string, exts []string) ([]Source, error) {
	modRoot, modPath := findModule(root)

	var sources []Source
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && ignoredDir(d.Name()) {
			return filepath.SkipDir
		}

		importPath := ""
		if modPath != "" {
			if rel, err := filepath.Rel(modRoot, p); err == nil && !strings.HasPrefix(rel, "..") {
				importPath = path.Join(modPath, filepath.ToSlash(rel))
			}
		}
		found, err := scanDir(p, exts, filepath.Base(p), importPath)
		if err != nil {
			return err
		}
		sources = append(sources, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sortSources(sources)
	return sources, nil
}

func scanDir(dir string, exts []string, pkgName, importPath string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := templateExt(e.Name(), exts)
		if ext == "" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		sources = append(sources, Source{
			Path:       filepath.Join(dir, e.Name()),
			Name:       name,
			Package:    pkgName,
			ImportPath: importPath,
			Manifest:   filepath.Join(dir, name+ManifestSuffix),
		})
	}
	return sources, nil
}

// templateExt returns the longest extension in exts that file ends with.
func templateExt(file string, exts []string) string {
	best := ""
	for _, ext := range exts {
		if strings.HasSuffix(file, ext) && len(file) > len(ext) && len(ext) > len(best) {
			best = ext
		}
	}
	return best
}

// findModule looks for go.mod in dir and its parents.
func findModule(dir string) (root, modulePath string) {
	for {
		data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil {
			return dir, modfile.ModulePath(data)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ""
		}
		dir = parent
	}
}

// ignoredDir reports directories the go tool ignores too.
func ignoredDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata"
}

func sortSources(sources []Source) {
	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
}
