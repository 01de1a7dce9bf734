package upload

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"
)

var extMIME = map[string]string{
	".pdf":  mimePDF,
	".docx": mimeDOCX,
	".pptx": mimePPTX,
	".xlsx": mimeXLSX,
	".txt":  "text/plain",
	".md":   "text/markdown",
	".py":   "text/x-python",
	".js":   "text/javascript",
	".html": "text/html",
	".css":  "text/css",
	".json": "application/json",
	".csv":  "text/csv",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".heic": true, ".heif": true,
}

// IsImage reports whether name has an image extension the models accept.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// DetectMIME resolves the MIME of name. Known extensions win; otherwise
// the content is sniffed.
func DetectMIME(name string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if m, ok := extMIME[ext]; ok {
		return m
	}
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return strings.TrimSpace(strings.SplitN(byExt, ";", 2)[0])
		}
	}
	if m := http.DetectContentType(head); m != "application/octet-stream" {
		return strings.TrimSpace(strings.SplitN(m, ";", 2)[0])
	}
	return "application/octet-stream"
}

type TextExtractor struct{}

func (TextExtractor) Supports(m string) bool {
	return strings.HasPrefix(m, "text/") || m == "application/json"
}

func (TextExtractor) Extract(doc *Document) ([]string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, doc.Reader); err != nil {
		return nil, err
	}
	s := decodeText(buf.Bytes())
	return []string{strings.ReplaceAll(s, "\r\n", "\n")}, nil
}

// decodeText reads UTF-8 and falls back to Latin-1 for anything else.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func defaultExtractors() []Extractor {
	return []Extractor{PDFExtractor{}, DOCXExtractor{}, PPTXExtractor{}, XLSXExtractor{}, TextExtractor{}}
}
