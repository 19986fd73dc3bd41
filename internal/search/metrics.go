package search

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const buildVersion = "0.1.0"

var (
	meter = otel.Meter("github.com/0x5457/pagesearch/internal/search",
		metric.WithInstrumentationVersion(buildVersion))
)

var (
	// searchesIssued counts searches sent to the index after debouncing.
	searchesIssued, _ = meter.Int64Counter("pagesearch.searches_issued")

	// searchesSuperseded counts search responses dropped because a newer
	// search or a cleared input replaced them.
	searchesSuperseded, _ = meter.Int64Counter("pagesearch.searches_superseded")

	preloads, _        = meter.Int64Counter("pagesearch.preloads")
	preloadsDropped, _ = meter.Int64Counter("pagesearch.preloads_dropped")
)
