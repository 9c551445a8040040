package catalog

import (
	"context"
	"encoding/hex"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	cerrors "cppdep/internal/errors"
)

// PackageSource tells discovery where the files of one package live.
type PackageSource struct {
	Group    string
	Name     string
	External bool

	// Roots are absolute directories or glob patterns
	Roots []string

	// Ignore are glob patterns matched against absolute file and directory paths
	Ignore []string
}

// DiscoverOptions configures filesystem discovery.
type DiscoverOptions struct {
	// Workers bounds concurrent digest computation (default: GOMAXPROCS)
	Workers int

	// SkipDigests leaves File.Digest empty
	SkipDigests bool

	Logger *slog.Logger
}

// Discover walks every package source and builds a catalog. A file claimed
// by two internal packages is an error; otherwise the first claim wins.
func Discover(ctx context.Context, sources []PackageSource, opts DiscoverOptions) (*Catalog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cat := New()
	for _, src := range sources {
		pkg, err := cat.AddPackage(src.Group, src.Name, src.External)
		if err != nil {
			return nil, err
		}
		paths, err := collect(src)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			if prev, ok := cat.File(p); ok {
				if prev.Package == pkg.QualifiedName() {
					continue
				}
				owner, _ := cat.Package(prev.Package)
				if !owner.External && !pkg.External {
					return nil, cerrors.Newf(cerrors.DuplicateDefinition,
						"%s is in both %s and %s", p, prev.Package, pkg.QualifiedName())
				}
				logger.Debug("file already cataloged", "path", p, "owner", prev.Package, "skipped", pkg.QualifiedName())
				continue
			}
			if _, err := cat.AddFile(pkg, p, ""); err != nil {
				return nil, err
			}
		}
		logger.Debug("package discovered", "package", pkg.QualifiedName(), "files", len(pkg.Files))
	}

	if len(cat.InternalFiles()) == 0 {
		return nil, cerrors.Newf(cerrors.CatalogEmpty, "no header or source file found in internal packages")
	}
	if opts.SkipDigests {
		return cat, nil
	}
	if err := fillDigests(ctx, cat, opts.Workers); err != nil {
		return nil, err
	}
	return cat, nil
}

// collect expands the roots of src into a sorted, deduplicated file list.
func collect(src PackageSource) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = NormalizePath(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, root := range src.Roots {
		matches, err := filepath.Glob(root)
		if err != nil {
			return nil, cerrors.New(cerrors.SearchPathInvalid, "bad glob "+root, err)
		}
		for _, m := range matches {
			if ignored(m, src.Ignore) {
				continue
			}
			info, err := os.Stat(m)
			if err != nil {
				return nil, cerrors.New(cerrors.IOFailure, "stat "+m, err)
			}
			if !info.IsDir() {
				if accept(m, src.External) {
					add(m)
				}
				continue
			}
			err = filepath.WalkDir(m, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if ignored(p, src.Ignore) {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				if d.Type().IsRegular() {
					if accept(p, src.External) {
						add(p)
					}
				}
				return nil
			})
			if err != nil {
				return nil, cerrors.New(cerrors.IOFailure, "walk "+m, err)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// accept selects C/C++ files. Extensionless headers such as <vector> are
// only taken from external packages.
func accept(p string, external bool) bool {
	if _, ok := KindOf(p); !ok {
		return false
	}
	return external || filepath.Ext(p) != ""
}

func ignored(p string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, p); ok {
			return true
		}
	}
	return false
}

func fillDigests(ctx context.Context, cat *Catalog, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	files := cat.Files()
	digests := make([]string, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := Digest(f.Path)
			if err != nil {
				return err
			}
			digests[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, f := range files {
		f.Digest = digests[i]
	}
	return nil
}

// Digest returns the hex BLAKE2b-256 digest of the file at path.
func Digest(path string) (string, error) {
	fh, err := os.Open(filepath.FromSlash(path))
	if err != nil {
		return "", cerrors.New(cerrors.IOFailure, "open "+path, err)
	}
	defer fh.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, fh); err != nil {
		return "", cerrors.New(cerrors.IOFailure, "read "+path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
