package internal

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cayleygraph/quad"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/internal/decompressor"
)

// WriterFormat returns the format to encode path with. An explicit name
// wins; otherwise the extension, ignoring a compression suffix, decides.
func WriterFormat(path, name string) (*quad.Format, error) {
	if name == "quad" {
		name = "nquads"
	}
	if name == "" {
		base, _ := decompressor.Ext(path)
		if f := quad.FormatByExt(filepath.Ext(base)); f != nil {
			name = f.Name
		} else {
			name = DefaultFormat
		}
	}
	f := quad.FormatByName(name)
	if f == nil {
		return nil, fmt.Errorf("unsupported format: %q", name)
	} else if f.Writer == nil {
		return nil, fmt.Errorf("encoding in %s format is not supported", name)
	}
	return f, nil
}

// Create opens path for writing. Output to a ".gz" file is compressed.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file %q: %w", path, err)
	}
	if filepath.Ext(path) != ".gz" {
		return f, nil
	}
	return &gzipFile{Writer: gzip.NewWriter(f), f: f}, nil
}

type gzipFile struct {
	*gzip.Writer
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Writer.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Dump writes the content of g to w in the given format. Turtle output keeps
// the prefixes of g.
func Dump(g *triples.Graph, w io.Writer, f *quad.Format) error {
	if f.Name == DefaultFormat {
		return g.WriteTurtle(w)
	}
	qw := f.Writer(w)
	n, err := quad.Copy(qw, g.QuadReader())
	if cerr := qw.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if clog.V(1) {
		clog.Infof("%d entries were written as %s", n, f.Name)
	}
	return nil
}
