package diagnosis

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/contact"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/flow"
	apperrors "github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/errors"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/httpx"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/requestmeta"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/sessioncookie"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/routepath"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/templates"
	"github.com/rs/zerolog"
)

const maxFormBytes = 16 << 10

type handlers struct {
	service Service
	policy  requestmeta.SchemePolicy
}

func newHandlers(service Service, policy requestmeta.SchemePolicy) handlers {
	return handlers{service: service, policy: policy}
}

func (h handlers) handleShow(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := sessioncookie.Read(r)
	sess, err := h.service.Open(r.Context(), sessionID, r.URL.Query().Get(routepath.HandoffParam))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.keepSession(w, r, sess)
	h.writeView(w, r, http.StatusOK, h.view(sess))
}

func (h handlers) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	step, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("step")))
	if err != nil {
		h.writeError(w, r, apperrors.EK(apperrors.KindInvalidInput, "step", "invalid step"))
		return
	}
	sessionID, _ := sessioncookie.Read(r)
	sess, err := h.service.Answer(r.Context(), sessionID, step, r.PostFormValue("option_id"), r.PostFormValue("region"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.afterMutation(w, r, sess)
}

func (h handlers) handleBack(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := sessioncookie.Read(r)
	sess, err := h.service.Back(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.afterMutation(w, r, sess)
}

func (h handlers) handleRestart(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := sessioncookie.Read(r)
	if err := h.service.Restart(r.Context(), sessionID); err != nil {
		h.writeError(w, r, err)
		return
	}
	sessioncookie.Clear(w, r, h.policy)
	httpx.WriteRedirect(w, r, routepath.Root)
}

func (h handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	sessionID, _ := sessioncookie.Read(r)
	sess, outcome, err := h.service.Submit(r.Context(), sessionID, contact.FromValues(r.PostForm))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.keepSession(w, r, sess)

	rejected := len(outcome.Errors) > 0 || outcome.Failure != ""
	if !rejected && !httpx.IsHTMXRequest(r) {
		httpx.WriteRedirect(w, r, routepath.Diagnosis)
		return
	}
	view := h.view(sess)
	view.Form = outcome.Form
	view.Errors = outcome.Errors
	view.SubmitError = outcome.Failure

	status := http.StatusOK
	if !httpx.IsHTMXRequest(r) {
		status = http.StatusUnprocessableEntity
		if outcome.Failure != "" {
			status = http.StatusBadGateway
		}
	}
	h.writeView(w, r, status, view)
}

func (h handlers) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusNotFound, templates.NotFound())
}

// afterMutation answers htmx with the new panel and plain forms with a
// redirect back to the wizard page.
func (h handlers) afterMutation(w http.ResponseWriter, r *http.Request, sess flow.Session) {
	h.keepSession(w, r, sess)
	if !httpx.IsHTMXRequest(r) {
		httpx.WriteRedirect(w, r, routepath.Diagnosis)
		return
	}
	h.writeView(w, r, http.StatusOK, h.view(sess))
}

func (h handlers) view(sess flow.Session) templates.WizardView {
	return templates.NewWizardView(sess.Wizard, sess.Submitted, h.service.Pacing())
}

func (h handlers) writeView(w http.ResponseWriter, r *http.Request, status int, view templates.WizardView) {
	if httpx.IsHTMXRequest(r) {
		h.write(w, r, status, templates.WizardPanel(view))
		return
	}
	h.write(w, r, status, templates.WizardPage(view))
}

func (h handlers) keepSession(w http.ResponseWriter, r *http.Request, sess flow.Session) {
	sessioncookie.Write(w, r, sess.ID, h.service.SessionTTL(), h.policy)
}

func (h handlers) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, apperrors.E(apperrors.KindInvalidInput, "invalid form"))
		return false
	}
	return true
}

func (h handlers) write(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	if err := httpx.WriteComponent(w, r, status, c); err != nil {
		h.writeError(w, r, err)
	}
}

func (h handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg("diagnosis request failed")
	} else {
		logger.Debug().Err(err).Msg("diagnosis request rejected")
	}
	httpx.WriteError(w, err)
}
