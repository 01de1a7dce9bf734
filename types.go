package agent

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyPrompt is returned when a request carries no prompt text.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrAttachmentConflict is returned when a request carries both an image
	// and a document.
	ErrAttachmentConflict = errors.New("request may carry an image or a document, not both")
)

// Lane is the pipeline path chosen for a request.
type Lane string

const (
	LaneDirect Lane = "simple_answer"
	LaneDeep   Lane = "complex_reasoning"
)

// DefaultSessionID names the session used when a request supplies none.
const DefaultSessionID = "default"

// Image is an image attachment sent to the model as inline media.
type Image struct {
	Filename string
	MIME     string
	Data     []byte
}

// Document is an attachment already reduced to text.
type Document struct {
	Filename string
	Text     string
}

// Request is one user turn entering the pipeline.
type Request struct {
	Prompt    string
	SessionID string
	Image     *Image
	Document  *Document
}

func (r Request) hasAttachment() bool { return r.Image != nil || r.Document != nil }

func (r Request) attachmentName() string {
	switch {
	case r.Image != nil:
		return r.Image.Filename
	case r.Document != nil:
		return r.Document.Filename
	}
	return ""
}

// Validate reports whether the request can enter the pipeline.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if r.Image != nil && r.Document != nil {
		return ErrAttachmentConflict
	}
	return nil
}

// Tool is a named capability the model can call with a single string.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string) (string, error)
}

// StatusLabeler is implemented by tools that announce themselves with a
// custom progress note.
type StatusLabeler interface {
	StatusLabel() string
}

// ToolSpec describes a registered tool.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StatusLabel string `json:"status_label,omitempty"`
}

// ToolCatalog resolves directive names to tools.
type ToolCatalog interface {
	Register(tool Tool) error
	Lookup(name string) (Tool, ToolSpec, bool)
	Specs() []ToolSpec
	StatusLabel(name string) string
	// Invoke runs the named tool. Failures come back as descriptive text
	// with ok set to false; Invoke never panics.
	Invoke(ctx context.Context, name, query string) (out string, ok bool)
}
