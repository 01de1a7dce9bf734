// Package upload turns uploaded files into something the pipeline can
// use: inline image bytes, or extracted document text.
package upload

import (
	"errors"
	"io"
)

// DefaultMaxBytes caps an upload at 100 MB.
const DefaultMaxBytes int64 = 100 << 20

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrTooLarge          = errors.New("file exceeds the upload size limit")
	ErrNoFile            = errors.New("no file uploaded")
)

// Kind tells how the pipeline should treat an upload.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

// Document is an uploaded file being processed.
type Document struct {
	Name      string // file name as uploaded
	MIME      string // detected MIME
	SizeBytes int64
	Reader    io.ReadSeeker // rewindable
}

// Result is a processed upload. Images keep their bytes; documents carry
// the extracted text.
type Result struct {
	Kind     Kind
	Filename string
	MIME     string
	Data     []byte
	Text     string
	StoredAt string
}

// Extractor turns a document into UTF-8 text blocks (pages, slides,
// sheets).
type Extractor interface {
	Extract(doc *Document) ([]string, error)
	Supports(mime string) bool
}

// Redactor scrubs sensitive data from extracted text.
type Redactor interface {
	Redact(s string) (string, bool) // returns redacted string and whether any changes were made
}

// ContentStore persists the original upload.
type ContentStore interface {
	Put(doc *Document) (storedAt string, err error)
}
