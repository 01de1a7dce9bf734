package upload

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor implements Extractor for application/pdf.
type PDFExtractor struct{}

func (PDFExtractor) Supports(m string) bool {
	return strings.EqualFold(m, mimePDF)
}

func (PDFExtractor) Extract(doc *Document) ([]string, error) {
	ra, size, err := readerAt(doc)
	if err != nil {
		return nil, err
	}
	rdr, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, err
	}

	n := rdr.NumPage()
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pg := rdr.Page(i)
		if pg.V.IsNull() {
			continue
		}
		txt, err := pg.GetPlainText(nil)
		if err != nil {
			// Image-only or problematic page, skip it.
			continue
		}
		if s := strings.TrimSpace(txt); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// readerAt returns doc's content as an io.ReaderAt and its size,
// buffering when the reader cannot seek by offset.
func readerAt(doc *Document) (io.ReaderAt, int64, error) {
	if r, ok := doc.Reader.(io.ReaderAt); ok && doc.SizeBytes > 0 {
		return r, doc.SizeBytes, nil
	}
	if _, err := doc.Reader.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}
	buf, err := io.ReadAll(doc.Reader)
	if err != nil {
		return nil, 0, err
	}
	br := bytes.NewReader(buf)
	doc.Reader = br
	doc.SizeBytes = int64(len(buf))
	return br, doc.SizeBytes, nil
}
