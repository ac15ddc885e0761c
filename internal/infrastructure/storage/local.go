package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
)

var (
	_ custody.EvidenceStore  = (*LocalStore)(nil)
	_ custody.EvidenceReader = (*LocalStore)(nil)
)

// LocalStore guarda evidencias en disco. La referencia es la clave relativa a Dir.
type LocalStore struct {
	dir string
	now func() time.Time
}

// NewLocalStore crea el directorio base si no existe.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("crear directorio de evidencias: %w", err)
	}
	return &LocalStore{dir: dir, now: time.Now}, nil
}

// Store escribe en un archivo temporal y lo renombra: el archivo final existe completo o no existe.
func (s *LocalStore) Store(ctx context.Context, ev custody.Evidence) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := objectKey("", ev.Filename, s.now())
	final := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(final), 0o750); err != nil {
		return "", fmt.Errorf("crear directorio: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(final), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("crear temporal: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(ev.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("escribir evidencia: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync evidencia: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("publicar evidencia: %w", err)
	}
	return key, nil
}

// Fetch lee la evidencia de ref. Referencias fuera de Dir se tratan como inexistentes.
func (s *LocalStore) Fetch(ctx context.Context, ref string) (*custody.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: referencia inválida %q", domain.ErrNotFound, ref)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: evidencia %s", domain.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("leer evidencia: %w", err)
	}
	name := filepath.Base(clean)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &custody.Evidence{Data: data, ContentType: contentType, Filename: name}, nil
}
