// Package blobstore stores uploaded files on local disk and hands back
// the public path they are served under.
package blobstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sociuslabs/socius/backend/pkg/apperrors"
)

// Constraints bound what an upload may be.
type Constraints struct {
	MaxSizeBytes int64
	AllowedExts  []string // e.g. ".jpg", ".png"
}

// Store writes uploads beneath BaseDir and maps them to PublicPrefix URLs.
type Store struct {
	BaseDir      string
	PublicPrefix string
	Constraints  Constraints
}

func New(baseDir, publicPrefix string, constraints Constraints) *Store {
	return &Store{
		BaseDir:      baseDir,
		PublicPrefix: publicPrefix,
		Constraints:  constraints,
	}
}

// Save validates the upload against the store constraints, writes it to
// disk under a collision-free name and returns its public path.
func (s *Store) Save(filename string, size int64, r io.Reader) (string, error) {
	if s.Constraints.MaxSizeBytes > 0 && size > s.Constraints.MaxSizeBytes {
		return "", apperrors.Validation(fmt.Sprintf("file exceeds the maximum size of %d bytes", s.Constraints.MaxSizeBytes))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if len(s.Constraints.AllowedExts) > 0 && !s.allowed(ext) {
		return "", apperrors.Validation("file type not allowed: " + ext)
	}

	if err := os.MkdirAll(s.BaseDir, 0o755); err != nil {
		return "", apperrors.Storage("failed to prepare upload directory", err)
	}

	name := fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)
	dst, err := os.Create(filepath.Join(s.BaseDir, name))
	if err != nil {
		return "", apperrors.Storage("failed to store file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", apperrors.Storage("failed to store file", err)
	}

	return s.PublicPrefix + "/" + name, nil
}

// Remove deletes a previously stored file by its public path. Unknown
// paths are ignored.
func (s *Store) Remove(publicPath string) error {
	if !strings.HasPrefix(publicPath, s.PublicPrefix+"/") {
		return nil
	}
	name := filepath.Base(publicPath)
	err := os.Remove(filepath.Join(s.BaseDir, name))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.Storage("failed to remove file", err)
	}
	return nil
}

func (s *Store) allowed(ext string) bool {
	for _, e := range s.Constraints.AllowedExts {
		if e == ext {
			return true
		}
	}
	return false
}
