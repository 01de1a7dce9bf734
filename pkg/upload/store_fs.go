package upload

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FSStore keeps originals under BaseDir as <uuid>_<name>.
type FSStore struct {
	BaseDir string
}

func (s FSStore) Put(doc *Document) (string, error) {
	if err := os.MkdirAll(s.BaseDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.BaseDir, uuid.NewString()+"_"+sanitizeName(doc.Name))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := doc.Reader.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if _, err := io.Copy(f, doc.Reader); err != nil {
		return "", err
	}
	return path, nil
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_")

func sanitizeName(n string) string {
	n = nameReplacer.Replace(n)
	if n == "" {
		return "upload"
	}
	return n
}
