package sparql

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triples_sparql_queries_total",
		Help: "Number of executed SPARQL queries by form.",
	}, []string{"form"})
	mQueryTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triples_sparql_query_seconds",
		Help:    "SPARQL query execution time.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
)
