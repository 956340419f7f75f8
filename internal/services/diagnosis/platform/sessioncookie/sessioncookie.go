// Package sessioncookie centralizes the wizard session cookie.
package sessioncookie

import (
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/requestmeta"
)

// Name is the wizard session cookie name.
const Name = "diagnosis_session"

// Read returns the trimmed session cookie value when present.
func Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(Name)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	return value, value != ""
}

// Write sets the session cookie. A positive ttl bounds the cookie lifetime.
func Write(w http.ResponseWriter, r *http.Request, sessionID string, ttl time.Duration, policy requestmeta.SchemePolicy) {
	if w == nil {
		return
	}
	cookie := base(r, policy)
	cookie.Value = strings.TrimSpace(sessionID)
	if ttl > 0 {
		cookie.MaxAge = int(ttl / time.Second)
	}
	http.SetCookie(w, cookie)
}

// Clear expires the session cookie.
func Clear(w http.ResponseWriter, r *http.Request, policy requestmeta.SchemePolicy) {
	if w == nil {
		return
	}
	cookie := base(r, policy)
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
}

func base(r *http.Request, policy requestmeta.SchemePolicy) *http.Cookie {
	return &http.Cookie{
		Name:     Name,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, policy),
		SameSite: http.SameSiteLaxMode,
	}
}
