// Copyright 2014 The Cayley Authors. All rights reserved.
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

// Package query defines the session interface and the result model general to
// all query languages.
package query

import (
	"context"
	"errors"
)

// ErrParseMore is matched by parse errors caused by incomplete input. An
// interactive session can read another line and retry.
var ErrParseMore = errors.New("query: more input required")

// Session executes queries written in one language against one store.
type Session interface {
	// Execute parses and runs the query.
	Execute(ctx context.Context, query string) (*Results, error)
}
