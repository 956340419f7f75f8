package diagnosis

import (
	"net/http"

	"github.com/louisbranch/diagnosis/internal/services/diagnosis/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.HandleFunc("GET "+routepath.Diagnosis, h.handleShow)
	mux.HandleFunc("POST "+routepath.DiagnosisAnswer, h.handleAnswer)
	mux.HandleFunc("POST "+routepath.DiagnosisBack, h.handleBack)
	mux.HandleFunc("POST "+routepath.DiagnosisRestart, h.handleRestart)
	mux.HandleFunc("POST "+routepath.DiagnosisSubmit, h.handleSubmit)
	mux.HandleFunc(routepath.Diagnosis+"/", h.handleNotFound)
}
