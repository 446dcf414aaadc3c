// Package telemetry holds the OpenTelemetry instruments and span helpers used
// by the dispatch queue, the compute client and the HTTP layer.
//
// Instruments are created against a metric.MeterProvider; when none is given
// the global provider is used, which is a no-op until an SDK is installed.
package telemetry
