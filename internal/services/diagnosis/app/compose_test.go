package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/diagnosis/internal/services/diagnosis/module"
)

type stubModule struct {
	id    string
	mount module.Mount
	err   error
}

func (s stubModule) ID() string { return s.id }

func (s stubModule) Mount() (module.Mount, error) { return s.mount, s.err }

func tagHandler(tag string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Module", tag)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestComposeRoutesByPrefixAndAlias(t *testing.T) {
	t.Parallel()

	h, err := Compose(ComposeInput{Modules: []module.Module{
		stubModule{id: "root", mount: module.Mount{Prefix: "/", Handler: tagHandler("root")}},
		stubModule{id: "wizard", mount: module.Mount{Prefix: "/diagnosis/", Handler: tagHandler("wizard")}},
	}})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	for path, want := range map[string]string{
		"/":                 "root",
		"/missing":          "root",
		"/diagnosis":        "wizard",
		"/diagnosis/answer": "wizard",
		"/diagnosisx":       "root",
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if got := rr.Header().Get("X-Module"); got != want {
			t.Fatalf("path %q served by %q, want %q", path, got, want)
		}
	}
}

func TestComposeRejectsDuplicateModulePrefix(t *testing.T) {
	t.Parallel()

	_, err := Compose(ComposeInput{Modules: []module.Module{
		stubModule{id: "one", mount: module.Mount{Prefix: "/one/", Handler: tagHandler("one")}},
		stubModule{id: "two", mount: module.Mount{Prefix: "/one/", Handler: tagHandler("two")}},
	}})
	if err == nil || !strings.Contains(err.Error(), "duplicates prefix") {
		t.Fatalf("Compose() error = %v, want duplicate prefix error", err)
	}
}

func TestComposeRejectsInvalidPrefixes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
	}{
		{name: "empty", prefix: ""},
		{name: "missing leading slash", prefix: "diagnosis/"},
		{name: "missing trailing slash", prefix: "/diagnosis"},
		{name: "surrounding whitespace", prefix: "/diagnosis/ "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Compose(ComposeInput{Modules: []module.Module{
				stubModule{id: "bad", mount: module.Mount{Prefix: tc.prefix, Handler: tagHandler("bad")}},
			}})
			if err == nil || !strings.Contains(err.Error(), "invalid prefix") || !strings.Contains(err.Error(), "bad") {
				t.Fatalf("Compose() error = %v", err)
			}
		})
	}
}

func TestComposeRejectsNilModuleHandlerAndMountError(t *testing.T) {
	t.Parallel()

	cases := [][]module.Module{
		{nil},
		{stubModule{id: "nohandler", mount: module.Mount{Prefix: "/x/"}}},
		{stubModule{id: "broken", err: errors.New("boom")}},
	}
	for i, modules := range cases {
		if _, err := Compose(ComposeInput{Modules: modules}); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
