package memstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triples_store_inserted_total",
		Help: "Number of triples added to a store.",
	})
	mDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triples_store_duplicates_total",
		Help: "Number of inserts ignored because the triple was already present.",
	})
	mDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triples_store_deleted_total",
		Help: "Number of triples removed from a store.",
	})
)
