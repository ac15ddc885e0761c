// Package storage implementa custody.EvidenceStore: S3, disco local y memoria.
package storage

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// objectKey genera una clave única por subida: <prefix>YYYY/MM/DD/<uuid><ext>.
// Nunca se reutiliza una clave, así una evidencia referenciada no se sobrescribe.
func objectKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	if ext == "" {
		ext = ".bin"
	}
	return path.Join(prefix, now.UTC().Format("2006/01/02"), uuid.New().String()+ext)
}
