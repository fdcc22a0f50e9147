// Package format renders query results for the command line.
package format

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/cayleygraph/triples/query"
	"github.com/cayleygraph/triples/triple"
)

// Output formats.
const (
	Table = "table"
	CSV   = "csv"
	JSON  = "json"
)

// ErrUnknownFormat is returned for a format name that is not supported.
var ErrUnknownFormat = errors.New("unknown output format")

// Names lists the supported output formats.
func Names() []string { return []string{Table, CSV, JSON} }

// Check returns an error matching ErrUnknownFormat if name is not a
// supported format.
func Check(name string) error {
	for _, n := range Names() {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, name, strings.Join(Names(), ", "))
}

// Term returns the display form of a term: IRIs without brackets, blank
// nodes as _:label and literals by their lexical value. Unbound is empty.
func Term(t triple.Term) string {
	switch t := t.(type) {
	case nil:
		return ""
	case triple.IRI:
		return string(t)
	case triple.BNode:
		return t.String()
	case triple.Literal:
		return t.Value
	}
	return t.String()
}

// Write renders res to w. Boolean results print as true or false in every
// format.
func Write(w io.Writer, res *query.Results, format string) error {
	if err := Check(format); err != nil {
		return err
	}
	switch res.Kind {
	case query.Boolean:
		_, err := fmt.Fprintln(w, res.Boolean)
		return err
	case query.Graph:
		_, err := fmt.Fprintln(w, "(graph results are not supported in this format)")
		return err
	}
	switch format {
	case CSV:
		return writeCSV(w, res)
	case JSON:
		return writeJSON(w, res)
	}
	return writeTable(w, res)
}

func cells(row []triple.Term) []string {
	out := make([]string, len(row))
	for i, t := range row {
		out[i] = Term(t)
	}
	return out
}

func writeTable(w io.Writer, res *query.Results) error {
	if len(res.Rows) == 0 {
		_, err := fmt.Fprintln(w, "(no results)")
		return err
	}
	rows := make([][]string, len(res.Rows))
	widths := make([]int, len(res.Vars))
	for i, v := range res.Vars {
		widths[i] = runewidth.StringWidth(v)
	}
	for i, row := range res.Rows {
		rows[i] = cells(row)
		for j, c := range rows[i] {
			if n := runewidth.StringWidth(c); n > widths[j] {
				widths[j] = n
			}
		}
	}

	var b strings.Builder
	line := func(row []string) {
		for i, c := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(runewidth.FillRight(c, widths[i]))
		}
		b.WriteByte('\n')
	}
	line(res.Vars)
	for i, n := range widths {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", n))
	}
	b.WriteByte('\n')
	for _, row := range rows {
		line(row)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeCSV(w io.Writer, res *query.Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Vars); err != nil {
		return err
	}
	for _, row := range res.Rows {
		if err := cw.Write(cells(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON writes an array with one object per row, keys in column order.
// Unbound variables are omitted.
func writeJSON(w io.Writer, res *query.Results) error {
	if len(res.Rows) == 0 {
		_, err := io.WriteString(w, "[]\n")
		return err
	}
	var b strings.Builder
	b.WriteString("[\n")
	for i, row := range res.Rows {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  {")
		first := true
		for j, t := range row {
			if t == nil {
				continue
			}
			if !first {
				b.WriteString(", ")
			}
			first = false
			if err := jsonString(&b, res.Vars[j]); err != nil {
				return err
			}
			b.WriteString(": ")
			if err := jsonString(&b, Term(t)); err != nil {
				return err
			}
		}
		b.WriteString("}")
	}
	b.WriteString("\n]\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func jsonString(b *strings.Builder, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return nil
}
