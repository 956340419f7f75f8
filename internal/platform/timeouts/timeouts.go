// Package timeouts defines shared timeout constants used across the service.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Submit caps one contact form delivery to the hosted form endpoint.
const Submit = 10 * time.Second

// HealthCheck bounds a single dependency probe behind the health endpoint.
const HealthCheck = 2 * time.Second

// TelemetryShutdown limits how long pending spans may take to flush.
const TelemetryShutdown = 5 * time.Second
