// Package csvttl converts CSV tables to RDF triples.
package csvttl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/triple"
)

// DefaultBase is the namespace used for subjects and predicates when none
// is configured.
const DefaultBase = "http://example.org/"

// Options control the conversion.
type Options struct {
	// Base is prepended to sanitized header names and subject values.
	Base string
	// SubjectColumn is the zero-based index of the column holding subject
	// identifiers. When negative, every row gets a random UUID subject.
	SubjectColumn int
	// NewID returns identifiers for rows without a subject column. It
	// defaults to random UUIDs.
	NewID func() string
}

// Convert reads a CSV table with a header row from r and adds one triple per
// non-empty cell to g. Objects are simple literals.
func Convert(g *triples.Graph, r io.Reader, opts Options) (int, error) {
	if opts.Base == "" {
		opts.Base = DefaultBase
	}
	if err := triple.ValidateIRI(opts.Base); err != nil {
		return 0, fmt.Errorf("base: %w", err)
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("csv header: %w", err)
	}
	if opts.SubjectColumn >= len(header) {
		return 0, fmt.Errorf("subject column %d out of range: table has %d columns", opts.SubjectColumn, len(header))
	}
	preds := make([]string, len(header))
	for i, h := range header {
		preds[i] = opts.Base + sanitize(h, false)
	}

	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return rows, fmt.Errorf("csv: %w", err)
		}
		rows++
		var subject string
		if opts.SubjectColumn >= 0 {
			subject = opts.Base + sanitize(rec[opts.SubjectColumn], true)
		} else {
			subject = opts.Base + opts.NewID()
		}
		for i, v := range rec {
			if v == "" || i == opts.SubjectColumn {
				continue
			}
			if err := g.InsertTriple(subject, preds[i], v, true); err != nil {
				line, _ := cr.FieldPos(i)
				return rows, fmt.Errorf("line %d, column %q: %w", line, header[i], err)
			}
		}
	}
	if clog.V(1) {
		clog.Infof("csv2ttl: %d rows, %d triples", rows, g.Len())
	}
	return rows, nil
}

// sanitize replaces characters that cannot appear in a local name with '_'.
// Subject values may also keep '-'.
func sanitize(s string, subject bool) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || subject && r == '-' {
			return r
		}
		return '_'
	}, s)
}
