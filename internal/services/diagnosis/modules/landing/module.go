// Package landing serves the entry page, the health probe, static assets,
// and the handoff into the wizard.
package landing

import (
	"context"
	"net/http"
	"time"

	"github.com/louisbranch/diagnosis/internal/services/diagnosis/flow"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/module"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/requestmeta"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/routepath"
)

// Starter begins a diagnosis run for a browser.
type Starter interface {
	Start(ctx context.Context, sessionID string, firstOptionID string) (flow.Session, string, error)
	SessionTTL() time.Duration
}

// Module provides the root routes.
type Module struct {
	starter Starter
	policy  requestmeta.SchemePolicy
	health  []module.HealthReporter
}

// New returns the landing module.
func New(starter Starter, policy requestmeta.SchemePolicy, health ...module.HealthReporter) Module {
	return Module{starter: starter, policy: policy, health: health}
}

// ID returns a stable identifier for diagnostics and startup logs.
func (Module) ID() string { return "landing" }

// Mount wires the root routes.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m.starter, m.policy, m.health))
	return module.Mount{Prefix: routepath.Root, Handler: mux}, nil
}
