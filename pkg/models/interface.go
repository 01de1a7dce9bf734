package models

import (
	"context"
	"errors"
)

// Roles used in conversation history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrContentBlocked reports that a provider refused the request or the
// response on safety grounds.
var ErrContentBlocked = errors.New("content blocked by provider safety policy")

// File is a lightweight in-memory attachment.
// Name is used for display; MIME should be best-effort (e.g., "image/png").
type File struct {
	Name string
	MIME string
	Data []byte
}

// Message is one prior turn handed to a provider as chat history.
type Message struct {
	Role    string
	Content string
}

// StreamRequest describes one streaming call: prior history, the new user
// prompt and any attachments sent alongside it.
type StreamRequest struct {
	History []Message
	Prompt  string
	Files   []File
}

// StreamChunk is one increment of a streamed response. The final chunk has
// Done set and carries FullText; a chunk with Err ends the stream.
type StreamChunk struct {
	Delta    string
	FullText string
	Done     bool
	Err      error
}

// Agent is the provider contract consumed by the pipeline.
type Agent interface {
	// Generate performs a single non-streaming completion.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStream starts a streaming chat call. The returned channel is
	// closed when the response ends or ctx is done.
	GenerateStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error)
}
