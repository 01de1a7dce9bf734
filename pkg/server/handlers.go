package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/pkg/event"
	"github.com/Protocol-Lattice/research-agent/pkg/upload"
)

// multipartOverhead leaves room for the form fields around the file.
const multipartOverhead = 1 << 20

// chatRequest accepts both payload shapes: {prompt, session_id} and the
// older {user_id, conversation_id, prompt}.
type chatRequest struct {
	Prompt         string `json:"prompt"`
	SessionID      string `json:"session_id"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

func (c chatRequest) sessionID() string {
	if strings.TrimSpace(c.SessionID) != "" {
		return c.SessionID
	}
	if c.UserID != "" && c.ConversationID != "" {
		return c.UserID + ":" + c.ConversationID
	}
	return agent.DefaultSessionID
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Research agent service running.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleChatAgent(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	s.stream(w, r, agent.Request{Prompt: body.Prompt, SessionID: body.sessionID()})
}

func (s *Server) handleChatWithFile(w http.ResponseWriter, r *http.Request) {
	limit := s.parser.MaxBytes
	if limit <= 0 {
		limit = upload.DefaultMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the 100MB limit.")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer file.Close()
	if header.Size > limit {
		writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the 100MB limit.")
		return
	}

	res, err := s.parser.Parse(header.Filename, header.Header.Get("Content-Type"), file)
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the 100MB limit.")
		return
	case errors.Is(err, upload.ErrUnsupportedFormat), errors.Is(err, upload.ErrNoFile):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error().Err(err).Str("file", header.Filename).Msg("upload processing failed")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to process file: %v", err))
		return
	}

	req := agent.Request{
		Prompt:    r.FormValue("prompt"),
		SessionID: r.FormValue("session_id"),
	}
	switch res.Kind {
	case upload.KindImage:
		req.Image = &agent.Image{Filename: res.Filename, MIME: res.MIME, Data: res.Data}
	default:
		req.Document = &agent.Document{Filename: res.Filename, Text: res.Text}
	}
	s.stream(w, r, req)
}

// stream validates req, then switches the response to SSE and runs it.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, req agent.Request) {
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sse, err := event.NewSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.agent.Stream(r.Context(), req, sse); err != nil {
		s.logger.Debug().Err(err).Str("session_id", req.SessionID).Msg("stream closed before completion")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
