// Package otel exposes ffauth counters as OpenTelemetry observable instruments.
//
// Counters become Int64ObservableCounter instruments. The authorize latency
// histogram is published Prometheus-style as a "_bucket" gauge with an "le"
// attribute per bucket, plus "_count" and "_sum". One callback reads
// [ffauth.Engine.MetricsSnapshot] per collection; the caller owns the Meter.
package otel
