package landing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/catalog"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/flow"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/module"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/requestmeta"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/sessioncookie"
)

type fakeStarter struct {
	gotSession string
	gotOption  string
	err        error
}

func (f *fakeStarter) Start(_ context.Context, sessionID string, firstOptionID string) (flow.Session, string, error) {
	f.gotSession = sessionID
	f.gotOption = firstOptionID
	if f.err != nil {
		return flow.Session{}, "", f.err
	}
	return flow.Session{ID: "s-new"}, "tok.en", nil
}

func (f *fakeStarter) SessionTTL() time.Duration { return 30 * time.Minute }

type healthFlag bool

func (h healthFlag) Healthy() bool { return bool(h) }

func mountLanding(t *testing.T, starter Starter, health ...module.HealthReporter) http.Handler {
	t.Helper()
	m := New(starter, requestmeta.SchemePolicy{}, health...)
	if m.ID() != "landing" {
		t.Fatalf("ID() = %q", m.ID())
	}
	mount, err := m.Mount()
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if mount.Prefix != "/" {
		t.Fatalf("Prefix = %q, want /", mount.Prefix)
	}
	return mount.Handler
}

func TestLandingPageListsFirstQuestionOptions(t *testing.T) {
	t.Parallel()

	h := mountLanding(t, &fakeStarter{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, opt := range catalog.FirstQuestionOptions() {
		if !strings.Contains(body, `value="`+opt.ID+`"`) || !strings.Contains(body, opt.Label) {
			t.Fatalf("landing missing option %q", opt.ID)
		}
	}
	if !strings.Contains(body, `action="/start"`) {
		t.Fatal("landing form does not post to /start")
	}
}

func TestStartWritesCookieAndRedirectsWithHandoff(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{}
	h := mountLanding(t, starter)
	req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(url.Values{"option_id": {catalog.Q1CareerUp}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "s-old"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/diagnosis?handoff=tok.en" {
		t.Fatalf("Location = %q", got)
	}
	if starter.gotSession != "s-old" || starter.gotOption != catalog.Q1CareerUp {
		t.Fatalf("Start(%q, %q)", starter.gotSession, starter.gotOption)
	}
	cookie, err := http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("parse Set-Cookie: %v", err)
	}
	if cookie.Name != sessioncookie.Name || cookie.Value != "s-new" || !cookie.HttpOnly {
		t.Fatalf("cookie = %+v", cookie)
	}
}

func TestStartFailureReturnsServerError(t *testing.T) {
	t.Parallel()

	h := mountLanding(t, &fakeStarter{err: errors.New("store down")})
	req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader("option_id=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if rr.Header().Get("Set-Cookie") != "" {
		t.Fatal("failed start wrote a cookie")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	mountLanding(t, &fakeStarter{}, healthFlag(true)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/up", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthy: status = %d body = %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	mountLanding(t, &fakeStarter{}, healthFlag(true), healthFlag(false)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/up", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: status = %d, want 503", rr.Code)
	}
}

func TestUnknownPathRendersNotFoundPage(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	mountLanding(t, &fakeStarter{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ページが見つかりません") {
		t.Fatal("not found page copy missing")
	}
}

func TestStaticStylesheet(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	mountLanding(t, &fakeStarter{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/diagnosis.css", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Fatalf("Content-Type = %q", ct)
	}
}
