package pipeline

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Defaults for the conversion run.
const (
	// DefaultOutput is the export written when no output location is given.
	DefaultOutput = "koinly_export.csv"

	// CSVContentType is set on exports uploaded to Cloud Storage.
	CSVContentType = "text/csv"

	// AggregateTime is the time of day given to daily reward summaries so they
	// sort after the individual records of the same day.
	AggregateTime = "23:59"
)
