package internal

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/cayleygraph/quad"
	_ "github.com/cayleygraph/quad/jsonld"
	_ "github.com/cayleygraph/quad/nquads"
	_ "github.com/cayleygraph/quad/pquads"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/internal/decompressor"
)

// DefaultFormat is used when neither a format name nor the file extension
// selects one.
const DefaultFormat = "turtle"

// Open opens path for reading and decompresses it if needed. The path "-"
// is stdin; http and https URLs are fetched.
func Open(path string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	u, err := url.Parse(path)
	switch {
	case path == "-":
		rc = io.NopCloser(os.Stdin)
	case err == nil && (u.Scheme == "http" || u.Scheme == "https"):
		res, err := http.Get(path)
		if err != nil {
			return nil, fmt.Errorf("could not get resource <%s>: %w", u, err)
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return nil, fmt.Errorf("could not get resource <%s>: %s", u, res.Status)
		}
		rc = res.Body
	default:
		if err == nil && u.Scheme == "file" {
			path = filepath.Join(u.Host, u.Path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("could not open file %q: %w", path, err)
		}
		rc = f
	}
	r, err := decompressor.New(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return readCloser{Reader: r, Closer: rc}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// ReaderFormat returns the format to decode path with. An explicit name
// wins; otherwise the extension, ignoring a compression suffix, decides.
func ReaderFormat(path, name string) (*quad.Format, error) {
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
		return nil, fmt.Errorf("unknown quad format %q", name)
	} else if f.Reader == nil {
		return nil, fmt.Errorf("decoding of %q is not supported", name)
	}
	return f, nil
}

// Load reads path into g using the named format, or the one its extension
// implies. Nothing is added to g if the input fails to decode.
func Load(g *triples.Graph, path, format string) error {
	f, err := ReaderFormat(path, format)
	if err != nil {
		return err
	}
	rc, err := Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	return load(g, rc, path, f)
}

// Read is like Load for an already open input, which may be compressed.
// The path only selects the format and names the input in errors.
func Read(g *triples.Graph, r io.Reader, path, format string) error {
	f, err := ReaderFormat(path, format)
	if err != nil {
		return err
	}
	dr, err := decompressor.New(r)
	if err != nil {
		return fmt.Errorf("%s: %w", displayName(path), err)
	}
	return load(g, dr, path, f)
}

func load(g *triples.Graph, r io.Reader, path string, f *quad.Format) error {
	before := g.Len()
	var err error
	if f.Name == DefaultFormat {
		err = g.LoadTurtle(r)
	} else {
		qr := f.Reader(r)
		_, err = g.ReadFrom(qr)
		if cerr := qr.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", displayName(path), err)
	}
	if clog.V(1) {
		clog.Infof("loaded %d new triples from %s (%s)", g.Len()-before, displayName(path), f.Name)
	}
	return nil
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}
