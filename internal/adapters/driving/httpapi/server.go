// Package httpapi exposes contract analysis over HTTP.
//
// Routes:
//
//	POST /analyze-document  multipart file upload, JSON {"text": ...}, or raw body
//	GET  /healthz           liveness probe
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driving"
	"github.com/custodia-labs/dpa-check/internal/logger"
)

// DefaultMaxUploadBytes bounds request bodies when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// shutdownTimeout bounds graceful shutdown of in-flight analyses.
const shutdownTimeout = 30 * time.Second

var errBadRequest = errors.New("bad request")

// Server serves the analysis API.
type Server struct {
	analyzer  driving.AnalysisService
	maxUpload int64
	mux       *http.ServeMux
}

// Option configures the server.
type Option func(*Server)

// WithMaxUploadBytes sets the request body limit.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// NewServer creates an API server backed by analyzer.
func NewServer(analyzer driving.AnalysisService, opts ...Option) *Server {
	s := &Server{
		analyzer:  analyzer,
		maxUpload: DefaultMaxUploadBytes,
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("POST /analyze-document", s.handleAnalyze)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("HTTP API listening on %s", listener.Addr())
	err := httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	input, err := s.readInput(r)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, "bad_request", "", err.Error())
		return
	}

	started := time.Now()
	result, err := s.analyzer.Analyze(r.Context(), input, nil)
	if err != nil {
		status, kind, phase := classify(err)
		logger.Error("analyze %s failed after %s: %v", describeInput(input), time.Since(started).Round(time.Millisecond), err)
		writeError(w, status, kind, phase, err.Error())
		return
	}

	logger.Info("analyze %s: score %d, %d oracle calls in %s", describeInput(input),
		result.Breakdown.Overall, result.Stats.OracleCalls, time.Since(started).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, result)
}

// readInput accepts multipart uploads, JSON and raw bodies.
func (s *Server) readInput(r *http.Request) (domain.AnalysisInput, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "multipart/form-data":
		return s.readMultipart(r)

	case "application/json":
		var req struct {
			Text string `json:"text"`
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return domain.AnalysisInput{}, fmt.Errorf("%w: invalid JSON: %w", errBadRequest, err)
		}
		if strings.TrimSpace(req.Text) == "" {
			return domain.AnalysisInput{}, fmt.Errorf("%w: field \"text\" is required", errBadRequest)
		}
		return domain.AnalysisInput{Text: req.Text, Name: req.Name}, nil

	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return domain.AnalysisInput{}, err
		}
		if len(body) == 0 {
			return domain.AnalysisInput{}, fmt.Errorf("%w: empty body", errBadRequest)
		}
		name := r.URL.Query().Get("name")
		if mediaType == "text/plain" {
			return domain.AnalysisInput{Text: string(body), Name: name}, nil
		}
		return domain.AnalysisInput{Content: body, MIMEType: mediaType, Name: name}, nil
	}
}

func (s *Server) readMultipart(r *http.Request) (domain.AnalysisInput, error) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return domain.AnalysisInput{}, err
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		if text := r.FormValue("text"); strings.TrimSpace(text) != "" {
			return domain.AnalysisInput{Text: text}, nil
		}
		return domain.AnalysisInput{}, fmt.Errorf("%w: form field \"file\" or \"text\" is required", errBadRequest)
	}
	if err != nil {
		return domain.AnalysisInput{}, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return domain.AnalysisInput{}, err
	}
	return domain.AnalysisInput{
		Content:  content,
		MIMEType: partType(header),
		Name:     header.Filename,
	}, nil
}

func partType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

func describeInput(input domain.AnalysisInput) string {
	if input.Name != "" {
		return fmt.Sprintf("%q", input.Name)
	}
	if input.Text != "" {
		return fmt.Sprintf("text (%d bytes)", len(input.Text))
	}
	return fmt.Sprintf("upload (%d bytes)", len(input.Content))
}

// classify maps analysis failures to HTTP status codes.
func classify(err error) (status int, kind, phase string) {
	var ae *domain.AnalysisError
	if errors.As(err, &ae) {
		kind, phase = ae.KindName(), string(ae.Phase)
	} else {
		kind = "internal"
	}

	switch {
	case errors.Is(err, domain.ErrInputEmpty),
		errors.Is(err, domain.ErrExtractionFailed),
		errors.Is(err, domain.ErrUnsupportedFormat):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrOracleTransient),
		errors.Is(err, domain.ErrOracleUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrOracleFatal),
		errors.Is(err, domain.ErrMalformedOutput),
		errors.Is(err, domain.ErrNoUsableResults):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	return status, kind, phase
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Phase   string `json:"phase,omitempty"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, kind, phase, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Phase: phase, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response: %v", err)
	}
}
