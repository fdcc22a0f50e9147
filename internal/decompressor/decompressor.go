// Copyright 2024 The Cayley Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package decompressor sniffs gzip and bzip2 input.
package decompressor

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"strings"
)

var (
	gzipMagic  = []byte("\x1f\x8b")
	bzip2Magic = []byte("BZh")
)

// New returns a reader yielding the decompressed content of r when it starts
// with a gzip or bzip2 header, or r unchanged otherwise. Inputs shorter than
// a header, including empty ones, are returned as they are.
func New(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	buf, err := br.Peek(len(bzip2Magic))
	if err != nil && err != io.EOF {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(buf, gzipMagic):
		return gzip.NewReader(br)
	case bytes.HasPrefix(buf, bzip2Magic):
		return bzip2.NewReader(br), nil
	}
	return br, nil
}

// Ext strips a compression extension from a file name, so that the format of
// the content can be detected from what remains.
func Ext(name string) (base string, compressed bool) {
	for _, ext := range []string{".gz", ".bz2"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return name, false
}
