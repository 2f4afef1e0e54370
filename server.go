package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"i4.energy/across/atlink/match"
	"i4.energy/across/atlink/metrics"
	"i4.energy/across/atlink/sequence"
	"i4.energy/across/atlink/session"
)

// Executor runs work on the peripheral. *Worker implements it.
type Executor interface {
	Exec(ctx context.Context, cmd session.Command) (CommandResult, error)
	RunScript(ctx context.Context, script sequence.Script) (sequence.Report, error)
	Reset(ctx context.Context) error
}

// Server handles incoming HTTP requests for interacting with the
// configured peripheral
type Server struct {
	Logger   *slog.Logger
	Executor Executor
	// Token, when set, must be presented as a bearer token
	Token string
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", s.authorized(s.handleCommand))
	mux.HandleFunc("POST /script", s.authorized(s.handleScript))
	mux.HandleFunc("POST /reset", s.authorized(s.handleReset))
	mux.Handle("GET /metrics", promhttp.Handler())

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	mux.ServeHTTP(rec, r)

	// Requests matching no route share one series.
	method, route := "unmatched", "unmatched"
	if m, p, ok := strings.Cut(r.Pattern, " "); ok {
		method, route = m, p
	}
	metrics.RecordHTTPRequest(method, route, rec.status)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.Token {
				s.sendError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	s.sendJSON(w, resp, statusCode)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Failed to encode response", "error", err)
	}
}

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	Command string `json:"command"`
	// Expect is the success marker, the AT final result by default
	Expect   string   `json:"expect"`
	Failures []string `json:"failures"`
	// Timeout is a duration string such as "2s"
	Timeout    string `json:"timeout"`
	Discipline string `json:"discipline"`
}

// CommandResponse is the body answering POST /command.
type CommandResponse struct {
	Outcome string   `json:"outcome"`
	Reason  string   `json:"reason,omitempty"`
	Lines   []string `json:"lines,omitempty"`
}

func (req CommandRequest) command() (session.Command, error) {
	cmd := session.Command{Text: req.Command}
	if req.Command == "" && req.Expect == "" {
		return cmd, errors.New("'command' or 'expect' is required")
	}
	if req.Command != "" && strings.TrimSpace(req.Command) == "" {
		return cmd, errors.New("'command' must not be blank")
	}
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil {
			return cmd, err
		}
		if d <= 0 {
			return cmd, errors.New("'timeout' must be positive")
		}
		cmd.Timeout = d
	}
	discipline, err := session.ParseDiscipline(req.Discipline)
	if err != nil {
		return cmd, err
	}
	cmd.Discipline = discipline

	var failures []match.Rule
	for _, f := range req.Failures {
		failures = append(failures, match.Fail(f, match.ReasonFor(f)))
	}
	switch {
	case req.Expect != "":
		cmd.Expect = match.Expect(req.Expect, failures...)
	case len(failures) > 0:
		cmd.Expect = match.AT().With(failures...)
	}
	return cmd, nil
}

// statusFor maps a finished outcome to the HTTP status reported to the caller.
func statusFor(o match.Outcome) int {
	switch o.Kind {
	case match.KindOK:
		return http.StatusOK
	case match.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// handleCommand runs a single command on the peripheral
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmd, err := req.command()
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.Executor.Exec(r.Context(), cmd)
	if err != nil {
		s.Logger.Error("Failed to run command", "error", err, "command", req.Command)
		s.sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	resp := CommandResponse{Lines: result.Lines}
	resp.Outcome, resp.Reason = outcomeFields(result.Outcome)
	s.Logger.Info("Command finished", "command", req.Command, "outcome", result.Outcome.String())
	s.sendJSON(w, resp, statusFor(result.Outcome))
}

// ScriptRequest is the body of POST /script.
type ScriptRequest struct {
	Profile string `json:"profile"`
	// Script is an inline TOML script used instead of Profile
	Script string `json:"script"`
}

// handleScript runs a built-in profile or an inline TOML script
func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	var req ScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		script sequence.Script
		err    error
	)
	switch {
	case req.Script != "":
		script, err = sequence.ParseScript(req.Script)
	case req.Profile != "":
		script, err = sequence.Profile(req.Profile)
	default:
		err = errors.New("'profile' or 'script' is required")
	}
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := s.Executor.RunScript(r.Context(), script)
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, sequence.ErrHalted):
		status = http.StatusConflict
	case errors.Is(err, sequence.ErrStepFailed):
		status = http.StatusBadGateway
	case errors.Is(err, sequence.ErrInvalidScript):
		status = http.StatusBadRequest
	default:
		s.Logger.Error("Failed to run script", "error", err, "script", script.Name)
		s.sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.Logger.Info("Script finished", "script", script.Name, "status", status)
	s.sendJSON(w, NewReportView(report, err), status)
}

// handleReset leaves the halted state
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Executor.Reset(r.Context()); err != nil {
		s.sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
