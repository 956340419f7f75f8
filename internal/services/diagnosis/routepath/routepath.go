// Package routepath stores canonical HTTP paths for the diagnosis service.
package routepath

import (
	"net/url"
	"strings"
)

const (
	Root             = "/"
	Health           = "/up"
	Start            = "/start"
	Diagnosis        = "/diagnosis"
	DiagnosisAnswer  = "/diagnosis/answer"
	DiagnosisBack    = "/diagnosis/back"
	DiagnosisRestart = "/diagnosis/restart"
	DiagnosisSubmit  = "/diagnosis/submit"
	StaticPrefix     = "/static/"
)

// HandoffParam is the query parameter carrying a landing handoff token.
const HandoffParam = "handoff"

// DiagnosisWithHandoff returns the wizard path carrying token.
func DiagnosisWithHandoff(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return Diagnosis
	}
	return Diagnosis + "?" + url.Values{HandoffParam: {token}}.Encode()
}

// Static returns the public path of an embedded asset.
func Static(name string) string {
	return StaticPrefix + strings.TrimPrefix(strings.TrimSpace(name), "/")
}
