package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "savevault"

// Metrics holds all SaveVault metric instruments.
type Metrics struct {
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter
	Uploads     metric.Int64Counter
	Downloads   metric.Int64Counter
	Deletes     metric.Int64Counter
	UploadBytes metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CacheHits, err = meter.Int64Counter("savevault.cache.hits",
		metric.WithDescription("Save-listing cache hits"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("savevault.cache.misses",
		metric.WithDescription("Save-listing cache misses (including expired entries)"))
	if err != nil {
		return nil, err
	}

	m.Uploads, err = meter.Int64Counter("savevault.saves.uploaded",
		metric.WithDescription("Save files uploaded"))
	if err != nil {
		return nil, err
	}

	m.Downloads, err = meter.Int64Counter("savevault.saves.downloaded",
		metric.WithDescription("Save files downloaded"))
	if err != nil {
		return nil, err
	}

	m.Deletes, err = meter.Int64Counter("savevault.saves.deleted",
		metric.WithDescription("Save files deleted"))
	if err != nil {
		return nil, err
	}

	m.UploadBytes, err = meter.Int64Histogram("savevault.saves.upload_bytes",
		metric.WithDescription("Uploaded save-file sizes in bytes"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
