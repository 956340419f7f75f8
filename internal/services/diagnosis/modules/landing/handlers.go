package landing

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/module"
	apperrors "github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/errors"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/httpx"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/requestmeta"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/sessioncookie"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/routepath"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/static"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/templates"
	"github.com/rs/zerolog"
)

const maxFormBytes = 16 << 10

type handlers struct {
	starter Starter
	policy  requestmeta.SchemePolicy
	health  []module.HealthReporter
}

func newHandlers(starter Starter, policy requestmeta.SchemePolicy, health []module.HealthReporter) handlers {
	return handlers{starter: starter, policy: policy, health: health}
}

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.HandleFunc("GET "+routepath.Root+"{$}", h.handleLanding)
	mux.HandleFunc("GET "+routepath.Health, h.handleHealth)
	mux.HandleFunc("POST "+routepath.Start, h.handleStart)
	mux.Handle("GET "+routepath.StaticPrefix, http.StripPrefix(routepath.StaticPrefix, http.FileServerFS(static.FS)))
	mux.HandleFunc(routepath.Root, h.handleNotFound)
}

func (h handlers) handleLanding(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusOK, templates.Landing(templates.NewLandingView()))
}

func (h handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	for _, reporter := range h.health {
		if reporter != nil && !reporter.Healthy() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h handlers) handleStart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "invalid form"))
		return
	}
	sessionID, _ := sessioncookie.Read(r)
	sess, token, err := h.starter.Start(r.Context(), sessionID, r.PostFormValue("option_id"))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("start diagnosis")
		httpx.WriteError(w, err)
		return
	}
	sessioncookie.Write(w, r, sess.ID, h.starter.SessionTTL(), h.policy)
	httpx.WriteRedirect(w, r, routepath.DiagnosisWithHandoff(token))
}

func (h handlers) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusNotFound, templates.NotFound())
}

func (h handlers) write(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	if err := httpx.WriteComponent(w, r, status, c); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("render page")
		httpx.WriteError(w, err)
	}
}
