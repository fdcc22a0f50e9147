package triple

import (
	"strconv"
	"sync/atomic"
)

var lastBNode uint64

// BNode is an RDF blank node.
//
// Identity is carried by a small integer handle; the label is kept only for
// diagnostics. Blank nodes are obtained from a Scope, so nodes created by
// independent scopes are never equal even when their labels match.
type BNode struct {
	id    uint64
	label string
}

// ID returns the handle of the node.
func (b BNode) ID() uint64 { return b.id }

// Label returns the label the node was created with, or a generated one.
func (b BNode) Label() string {
	if b.label == "" {
		return "b" + strconv.FormatUint(b.id, 10)
	}
	return b.label
}

func (b BNode) String() string { return "_:" + b.Label() }
func (BNode) Kind() Kind        { return KindBNode }
func (BNode) isTerm()           {}

// Scope maps blank node labels to nodes for a single parse or insert session.
type Scope struct {
	labels map[string]BNode
}

// NewScope returns an empty blank node scope.
func NewScope() *Scope {
	return &Scope{labels: make(map[string]BNode)}
}

// BNode returns the node for label, allocating it on first use.
func (s *Scope) BNode(label string) BNode {
	if b, ok := s.labels[label]; ok {
		return b
	}
	b := BNode{id: atomic.AddUint64(&lastBNode, 1), label: label}
	s.labels[label] = b
	return b
}

// Fresh allocates an anonymous node that no label refers to.
func (s *Scope) Fresh() BNode {
	return BNode{id: atomic.AddUint64(&lastBNode, 1)}
}

// Len returns the number of labels bound in the scope.
func (s *Scope) Len() int { return len(s.labels) }
