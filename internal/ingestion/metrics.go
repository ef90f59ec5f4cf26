package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var importedRows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bariqe_import_rows_total",
		Help: "Imported spreadsheet rows by collection and outcome",
	},
	[]string{"collection", "outcome"},
)
