package reader

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/zombor/card-reader/internal/card"
)

// maxFrameSize bounds a single uploaded frame
const maxFrameSize = int64(20 << 20) // 20MB

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// sessionErrorStatus maps service errors to HTTP status codes
func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionStopped):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleStartSession creates a new capture session
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.StartSession()
	if err != nil {
		slog.Error("Error starting session", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleListSessions returns the log of all sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	logs, err := s.service.ListSessions()
	if err != nil {
		slog.Error("Error listing sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleGetSession returns a single session
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetSession(r.PathValue("id"))
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			slog.Error("Error getting session", "error", err)
		}
		writeError(w, sessionErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSubmitFrame accepts either a multipart "file" frame image or a JSON
// body of already recognized lines
func (s *Server) handleSubmitFrame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	r.Body = http.MaxBytesReader(w, r.Body, maxFrameSize)

	var (
		view *SessionView
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Lines []card.RecognizedLine `json:"lines"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		view, err = s.service.SubmitLines(id, req.Lines)
	} else {
		data, contentType, ok := readFrame(w, r)
		if !ok {
			return
		}
		view, err = s.service.SubmitFrame(r.Context(), id, data, contentType)
		if err != nil && !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionStopped) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	if err != nil {
		writeError(w, sessionErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// readFrame reads the uploaded frame image from a multipart form
func readFrame(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	if err := r.ParseMultipartForm(maxFrameSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorMsg = "Frame is too large. Maximum size is 20MB."
		}
		writeError(w, http.StatusBadRequest, errorMsg)
		return nil, "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No frame provided")
		return nil, "", false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading frame data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading frame. Please try again.")
		return nil, "", false
	}

	// Phones often upload with a generic or missing content type
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	return data, contentType, true
}

// handleResumeSession returns a resolved session to scanning
func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.ResumeSession(r.PathValue("id"))
	if err != nil {
		writeError(w, sessionErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleStopSession stops a session
func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.StopSession(r.PathValue("id")); err != nil {
		writeError(w, sessionErrorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
