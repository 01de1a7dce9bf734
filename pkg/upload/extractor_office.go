package upload

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DOCXExtractor reads paragraph text from word/document.xml.
type DOCXExtractor struct{}

func (DOCXExtractor) Supports(m string) bool { return m == mimeDOCX }

func (DOCXExtractor) Extract(doc *Document) ([]string, error) {
	zr, err := openZip(doc)
	if err != nil {
		return nil, err
	}
	f := findZipFile(zr, "word/document.xml")
	if f == nil {
		return nil, fmt.Errorf("docx: missing word/document.xml")
	}
	text, err := xmlText(f, "p")
	if err != nil {
		return nil, fmt.Errorf("docx: %w", err)
	}
	return []string{text}, nil
}

// PPTXExtractor reads the text of every slide in slide order.
type PPTXExtractor struct{}

func (PPTXExtractor) Supports(m string) bool { return m == mimePPTX }

func (PPTXExtractor) Extract(doc *Document) ([]string, error) {
	zr, err := openZip(doc)
	if err != nil {
		return nil, err
	}
	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		dir, base := path.Split(f.Name)
		if dir != "ppt/slides/" || !strings.HasPrefix(base, "slide") || !strings.HasSuffix(base, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, "slide"), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{n: n, f: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	out := make([]string, 0, len(slides))
	for i, s := range slides {
		text, err := xmlText(s.f, "p")
		if err != nil {
			return nil, fmt.Errorf("pptx slide %d: %w", s.n, err)
		}
		out = append(out, fmt.Sprintf("--- Slide %d ---\n%s", i+1, text))
	}
	return out, nil
}

// XLSXExtractor renders each sheet as tab-separated rows.
type XLSXExtractor struct{}

func (XLSXExtractor) Supports(m string) bool { return m == mimeXLSX }

func (XLSXExtractor) Extract(doc *Document) ([]string, error) {
	if _, err := doc.Reader.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(doc.Reader)
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()

	var out []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("xlsx sheet %s: %w", sheet, err)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "--- Sheet: %s ---\n", sheet)
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
		out = append(out, b.String())
	}
	return out, nil
}

func openZip(doc *Document) (*zip.Reader, error) {
	ra, size, err := readerAt(doc)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open office archive: %w", err)
	}
	return zr, nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// xmlText concatenates the character data of every <t> element and ends a
// line at each closing paragraph element. Both WordprocessingML (w:t,
// w:p) and DrawingML (a:t, a:p) use these local names.
func xmlText(f *zip.File, paragraph string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case paragraph:
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
