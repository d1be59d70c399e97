package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-scoreform/internal/openapi"
	"github.com/goliatone/go-scoreform/pkg/classifier"
	"github.com/goliatone/go-scoreform/pkg/prediction"
	"github.com/goliatone/go-scoreform/pkg/submit"
)

const maxRequestBody = 1 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := s.renderer.RenderIndex()
	s.writePage(w, page, err)
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.lookup(w, r)
	page, err := s.renderer.RenderForm(entry.sess, entry.notices.Take(), "")
	s.writePage(w, page, err)
}

// handleFormPost applies the posted values to the current step and performs
// the requested navigation. Back and next redirect so a refresh never
// re-runs the action; a successful submission renders the result directly.
func (s *Server) handleFormPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form submission", http.StatusBadRequest)
		return
	}

	entry := s.sessions.lookup(w, r)
	sess := entry.sess

	for _, field := range sess.Definition().FieldsForStep(sess.CurrentStep()) {
		if !r.PostForm.Has(field.Name) {
			continue
		}
		value := strings.TrimSpace(r.PostForm.Get(field.Name))
		if err := sess.SetValue(field.Name, value); err != nil {
			s.logger.Warn("set form value", "field", field.Name, "error", err)
		}
	}

	switch r.PostForm.Get("action") {
	case "back":
		sess.Retreat()
	case "next":
		sess.Advance()
	case "submit":
		s.submitForm(w, r, entry)
		return
	}

	http.Redirect(w, r, "/predict", http.StatusSeeOther)
}

func (s *Server) submitForm(w http.ResponseWriter, r *http.Request, entry *sessionEntry) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Server.SubmitTimeout)
	defer cancel()

	started := time.Now()
	outcome := entry.coordinator.Submit(ctx, entry.sess)
	s.metrics.predictSecs.Observe(time.Since(started).Seconds())

	if outcome.Status != submit.Accepted {
		s.metrics.predictions.WithLabelValues(string(outcome.Status)).Inc()
		http.Redirect(w, r, "/predict", http.StatusSeeOther)
		return
	}
	s.metrics.predictions.WithLabelValues(outcome.Result.Prediction).Inc()

	req, err := prediction.ParseValues(entry.sess.Values())
	if err != nil {
		// values already passed full validation; treat as a rendering defect
		s.logger.Error("reparse submitted values", "error", err)
	}

	s.sessions.drop(entry.sess.ID())
	page, renderErr := s.renderer.RenderResult(req, outcome.Result)
	s.writePage(w, page, renderErr)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	page, err := s.renderer.RenderAbout(s.classifier.Describe())
	s.writePage(w, page, err)
}

// handleAPIPredict serves the JSON prediction endpoint the form and external
// clients share.
func (s *Server) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req prediction.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, prediction.Response{
			Success: false,
			Error:   "invalid request payload: " + err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Server.SubmitTimeout)
	defer cancel()

	started := time.Now()
	result, err := s.classifier.Classify(ctx, req)
	s.metrics.predictSecs.Observe(time.Since(started).Seconds())
	if err != nil {
		s.metrics.predictions.WithLabelValues("error").Inc()
		s.logger.Error("classify request", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, prediction.Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	s.metrics.predictions.WithLabelValues(result.Prediction).Inc()
	s.respondJSON(w, http.StatusOK, prediction.Response{
		Success: true,
		Result:  result,
	})
}

type modelInfoResponse struct {
	Success   bool            `json:"success"`
	ModelInfo classifier.Info `json:"model_info"`
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, modelInfoResponse{
		Success:   true,
		ModelInfo: s.classifier.Describe(),
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapi.Document())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writePage(w http.ResponseWriter, page string, err error) {
	if err != nil {
		s.logger.Error("render page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}
