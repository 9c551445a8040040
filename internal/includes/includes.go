// Package includes extracts #include directives from C/C++ files.
package includes

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"regexp"
	"runtime"

	"golang.org/x/sync/errgroup"

	"cppdep/internal/catalog"
	cerrors "cppdep/internal/errors"
)

// Include is one directive as written in a file.
type Include struct {
	// Token is the path between the delimiters
	Token string `json:"token"`

	// Quoted is true for "x.h", false for <x.h>
	Quoted bool `json:"quoted"`

	// Line is 1-based
	Line int `json:"line"`
}

// Key is the normalized token used for equality between directives.
func (i Include) Key() string {
	return path.Clean(i.Token)
}

func (i Include) String() string {
	if i.Quoted {
		return `"` + i.Token + `"`
	}
	return "<" + i.Token + ">"
}

// Table maps a file path to its includes in source order.
type Table map[string][]Include

// Extractor finds the includes of one file.
type Extractor interface {
	Extract(ctx context.Context, src []byte) ([]Include, error)
}

var includeRE = regexp.MustCompile(`^\s*#\s*include\s*(?:<(\S+?)>|"(\S+?)")`)

// Lexical is the line-based extractor. It does not evaluate conditional
// compilation, so directives in every branch are reported.
type Lexical struct{}

// Extract implements Extractor.
func (Lexical) Extract(_ context.Context, src []byte) ([]Include, error) {
	return Scan(bytes.NewReader(src))
}

// Scan reads r line by line and returns every include directive.
func Scan(r io.Reader) ([]Include, error) {
	var out []Include
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		m := includeRE.FindSubmatch(sc.Bytes())
		if m == nil {
			continue
		}
		if m[1] != nil {
			out = append(out, Include{Token: string(m[1]), Line: line})
		} else {
			out = append(out, Include{Token: string(m[2]), Quoted: true, Line: line})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Options configures ExtractAll.
type Options struct {
	// Workers bounds concurrent file reads (default: GOMAXPROCS)
	Workers int

	// Extractor defaults to Lexical
	Extractor Extractor

	Logger *slog.Logger
}

// ExtractAll reads every file and builds the include table.
func ExtractAll(ctx context.Context, files []*catalog.File, opts Options) (Table, error) {
	ex := opts.Extractor
	if ex == nil {
		ex = Lexical{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	results := make([][]Include, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(f.Path)
			if err != nil {
				return cerrors.New(cerrors.IOFailure, "read "+f.Path, err)
			}
			incs, err := ex.Extract(ctx, src)
			if err != nil {
				return cerrors.New(cerrors.IOFailure, "extract includes from "+f.Path, err)
			}
			results[i] = incs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := make(Table, len(files))
	total := 0
	for i, f := range files {
		table[f.Path] = results[i]
		total += len(results[i])
	}
	logger.Debug("includes extracted", "files", len(files), "includes", total)
	return table, nil
}
