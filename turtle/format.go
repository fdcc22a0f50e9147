package turtle

import (
	"fmt"
	"io"

	"github.com/cayleygraph/quad"

	"github.com/cayleygraph/triples/triple"
)

func init() {
	quad.RegisterFormat(quad.Format{
		Name:   "turtle",
		Ext:    []string{".ttl"},
		Mime:   []string{"text/turtle", "application/x-turtle"},
		Reader: func(r io.Reader) quad.ReadCloser { return NewReader(r) },
		Writer: func(w io.Writer) quad.WriteCloser { return NewWriter(w) },
	})
}

var (
	_ quad.ReadCloser  = (*Reader)(nil)
	_ quad.WriteCloser = (*Writer)(nil)
)

// Reader exposes a Turtle document as a stream of quads in the default graph.
// The whole document is parsed on the first call to ReadQuad.
type Reader struct {
	dec    *Decoder
	doc    *Document
	err    error
	parsed bool
	n      int
}

// NewReader returns a quad reader for the Turtle document in r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: NewDecoder(r)}
}

// Prefixes returns the prefixes declared by the document, parsing it if
// necessary.
func (r *Reader) Prefixes() (map[string]string, error) {
	r.parse()
	if r.err != nil {
		return nil, r.err
	}
	return r.doc.Prefixes, nil
}

func (r *Reader) parse() {
	if r.parsed {
		return
	}
	r.parsed = true
	r.doc, r.err = r.dec.Decode()
}

func (r *Reader) ReadQuad() (quad.Quad, error) {
	r.parse()
	if r.err != nil {
		return quad.Quad{}, r.err
	}
	if r.n >= len(r.doc.Triples) {
		return quad.Quad{}, io.EOF
	}
	t := r.doc.Triples[r.n]
	r.n++
	return triple.ToQuad(t), nil
}

func (r *Reader) Close() error { return nil }

// Writer buffers quads and writes them as one Turtle document on Close.
type Writer struct {
	w        io.Writer
	scope    *triple.Scope
	ts       []triple.Triple
	prefixes map[string]string
	err      error
}

// NewWriter returns a quad writer producing Turtle on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, scope: triple.NewScope()}
}

// SetPrefixes sets the prefixes declared in the output.
func (w *Writer) SetPrefixes(prefixes map[string]string) {
	w.prefixes = prefixes
}

func (w *Writer) WriteQuad(q quad.Quad) error {
	if w.err != nil {
		return w.err
	}
	t, err := triple.FromQuad(q, w.scope)
	if err != nil {
		return fmt.Errorf("turtle: %v: %w", q, err)
	}
	w.ts = append(w.ts, t)
	return nil
}

func (w *Writer) WriteQuads(buf []quad.Quad) (int, error) {
	for i, q := range buf {
		if err := w.WriteQuad(q); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	err := Encode(w.w, w.ts, &Options{Prefixes: w.prefixes})
	w.ts = nil
	w.err = fmt.Errorf("closed")
	return err
}
