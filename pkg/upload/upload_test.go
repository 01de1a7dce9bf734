package upload

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseTextFile(t *testing.T) {
	res, err := NewParser().Parse("notes.md", "", strings.NewReader("# Title\r\nbody"))
	require.NoError(t, err)
	assert.Equal(t, KindDocument, res.Kind)
	assert.Equal(t, "notes.md", res.Filename)
	assert.Equal(t, "# Title\nbody", res.Text)
}

func TestParseLatin1Fallback(t *testing.T) {
	res, err := NewParser().Parse("old.txt", "", bytes.NewReader([]byte{'c', 'a', 'f', 0xe9}))
	require.NoError(t, err)
	assert.Equal(t, "café", res.Text)
}

func TestParseImageKeepsBytes(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	res, err := NewParser().Parse("Photo.PNG", "", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, KindImage, res.Kind)
	assert.Equal(t, "image/png", res.MIME)
	assert.Equal(t, data, res.Data)
	assert.Empty(t, res.Text)
}

func TestParseRejectsUnknownExtension(t *testing.T) {
	_, err := NewParser().Parse("tool.exe", "", strings.NewReader("MZ"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	assert.Contains(t, err.Error(), ".exe")
}

func TestParseTooLarge(t *testing.T) {
	p := NewParser()
	p.MaxBytes = 4
	_, err := p.Parse("a.txt", "", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	res, err := p.Parse("a.txt", "", strings.NewReader("1234"))
	require.NoError(t, err)
	assert.Equal(t, "1234", res.Text)
}

func TestParseNoFile(t *testing.T) {
	_, err := NewParser().Parse("", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestParseDOCX(t *testing.T) {
	body := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>
<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>line</w:t></w:r></w:p>
</w:body></w:document>`
	data := zipBytes(t, map[string]string{"word/document.xml": body})
	res, err := NewParser().Parse("report.docx", "", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "Hello world\nSecond\tline", res.Text)
}

func TestParsePPTXSlidesInOrder(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` +
			text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	data := zipBytes(t, map[string]string{
		"ppt/slides/slide10.xml": slide("ten"),
		"ppt/slides/slide2.xml":  slide("two"),
		"ppt/slides/slide1.xml":  slide("one"),
		"ppt/slides/_rels/x.xml": "<r/>",
	})
	res, err := NewParser().Parse("deck.pptx", "", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "--- Slide 1 ---\none\n\n--- Slide 2 ---\ntwo\n\n--- Slide 3 ---\nten", res.Text)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "qty"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "apple"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := NewParser().Parse("stock.xlsx", "", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "--- Sheet: Sheet1 ---\nname\tqty\napple\t3\n", res.Text)
}

func TestParseCorruptPDF(t *testing.T) {
	_, err := NewParser().Parse("broken.pdf", "", strings.NewReader("not a pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestParseRedactsAndStores(t *testing.T) {
	dir := t.TempDir()
	p := NewParser()
	p.Redactor = NewDefaultRedactor()
	p.Store = FSStore{BaseDir: dir}

	res, err := p.Parse("../contact.txt", "", strings.NewReader("mail jane@example.com now"))
	require.NoError(t, err)
	assert.Equal(t, "mail [REDACTED] now", res.Text)
	require.NotEmpty(t, res.StoredAt)
	assert.Equal(t, dir, filepath.Dir(res.StoredAt))

	stored, err := os.ReadFile(res.StoredAt)
	require.NoError(t, err)
	assert.Equal(t, "mail jane@example.com now", string(stored))
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, mimeDOCX, DetectMIME("A.DOCX", nil))
	assert.Equal(t, "image/jpeg", DetectMIME("x.jpeg", nil))
	assert.Equal(t, "application/pdf", DetectMIME("noext", []byte("%PDF-1.7")))
}

func TestIsImage(t *testing.T) {
	for _, n := range []string{"a.png", "b.JPG", "c.jpeg", "d.webp", "e.heic", "f.heif"} {
		assert.True(t, IsImage(n), n)
	}
	assert.False(t, IsImage("a.gif"))
	assert.False(t, IsImage("png"))
}
