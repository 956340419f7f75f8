// Package module defines the feature contract used by diagnosis composition.
package module

import "net/http"

// Mount describes a module route mount.
type Mount struct {
	Prefix  string
	Handler http.Handler
}

// Module declares the minimum contract required by composition.
type Module interface {
	ID() string
	Mount() (Mount, error)
}

// HealthReporter is implemented by modules whose dependencies can fail at
// runtime.
type HealthReporter interface {
	Healthy() bool
}
