package crawl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pagesFetched tracks listing pages successfully fetched, probe included.
	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_pages_fetched_total",
		Help: "The total number of listing pages successfully fetched.",
	})
	// fetchErrors tracks pages that failed to fetch or parse.
	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_fetch_errors_total",
		Help: "The total number of page fetches that failed.",
	})
	// recordsExtracted tracks records pulled out of listing pages.
	recordsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_records_extracted_total",
		Help: "The total number of records extracted from listing pages.",
	})
	// terminalPages tracks how often a run found the end of the catalog.
	terminalPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_terminal_pages_total",
		Help: "The total number of terminal (empty) pages encountered.",
	})
	// runsTotal tracks completed harvest runs by outcome.
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_runs_total",
		Help: "The total number of harvest runs by outcome.",
	}, []string{"outcome"})
)
