package telemetry

import "errors"

var (
	// ErrMeterNil is returned when a metrics set is created without a meter
	ErrMeterNil = errors.New("telemetry: meter cannot be nil")
	// ErrUnknownExporter is returned for an unsupported metrics exporter
	ErrUnknownExporter = errors.New("telemetry: unknown metrics exporter")
)
