package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var allowedManuscriptExt = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".odt":  true,
	".tex":  true,
	".zip":  true,
}

// fileStore keeps uploaded manuscripts on local disk under random names.
type fileStore struct {
	dir string
}

func newFileStore(dir string) *fileStore {
	return &fileStore{dir: dir}
}

// Save writes body to a new file and returns its stored name.
func (f *fileStore) Save(filename string, body io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedManuscriptExt[ext] {
		return "", fmt.Errorf("unsupported manuscript type %q", ext)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.New().String() + ext
	out, err := os.Create(filepath.Join(f.dir, name))
	if err != nil {
		return "", fmt.Errorf("create manuscript: %w", err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("write manuscript: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close manuscript: %w", err)
	}
	return name, nil
}

// Remove deletes a stored manuscript; missing files are ignored.
func (f *fileStore) Remove(name string) {
	if name == "" || name != filepath.Base(name) {
		return
	}
	_ = os.Remove(filepath.Join(f.dir, name))
}
