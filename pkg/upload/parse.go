package upload

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Parser validates uploads and extracts their content.
type Parser struct {
	Extractors []Extractor
	Redactor   Redactor     // optional
	Store      ContentStore // optional; keeps the original file
	MaxBytes   int64
}

func NewParser() *Parser {
	return &Parser{Extractors: defaultExtractors(), MaxBytes: DefaultMaxBytes}
}

// Parse reads r (at most MaxBytes) and classifies it. Images come back
// with their bytes; any other supported format comes back as text.
func (p *Parser) Parse(name, mimeHint string, r io.Reader) (*Result, error) {
	if strings.TrimSpace(name) == "" || r == nil {
		return nil, ErrNoFile
	}
	max := p.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	buf, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(buf)) > max {
		return nil, ErrTooLarge
	}

	doc := &Document{
		Name:      filepath.Base(name),
		MIME:      DetectMIME(name, head(buf)),
		SizeBytes: int64(len(buf)),
		Reader:    bytes.NewReader(buf),
	}
	res := &Result{Filename: doc.Name, MIME: doc.MIME}

	if p.Store != nil {
		at, err := p.Store.Put(doc)
		if err != nil {
			return nil, fmt.Errorf("store upload: %w", err)
		}
		res.StoredAt = at
		if _, err := doc.Reader.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}

	if IsImage(name) {
		res.Kind = KindImage
		if hint := strings.TrimSpace(mimeHint); strings.HasPrefix(hint, "image/") {
			res.MIME = hint
		}
		res.Data = buf
		return res, nil
	}

	ext, ok := p.extractorFor(name, doc.MIME)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, strings.ToLower(filepath.Ext(name)))
	}
	blocks, err := ext.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", doc.Name, err)
	}
	text := strings.Join(blocks, "\n\n")
	if p.Redactor != nil {
		text, _ = p.Redactor.Redact(text)
	}
	res.Kind = KindDocument
	res.Text = text
	return res, nil
}

// extractorFor only accepts extensions with a known format, so arbitrary
// binaries are rejected even when they sniff as text.
func (p *Parser) extractorFor(name, mime string) (Extractor, bool) {
	if _, known := extMIME[strings.ToLower(filepath.Ext(name))]; !known {
		return nil, false
	}
	for _, e := range p.Extractors {
		if e.Supports(mime) {
			return e, true
		}
	}
	return nil, false
}

func head(b []byte) []byte {
	if len(b) > 512 {
		return b[:512]
	}
	return b
}
