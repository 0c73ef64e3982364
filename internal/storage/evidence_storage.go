package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
)

// Допустимые типы доказательств: изображения и архивы со скриншотами/экспортом.
var allowedTypes = map[string]struct{}{
	"image/png":       {},
	"image/jpeg":      {},
	"image/webp":      {},
	"application/zip": {},
	"application/pdf": {},
}

// EvidenceStorage — контентно-адресуемое файловое хранилище доказательств.
// Ссылка на блоб — sha256 его содержимого; хранилище append-only, повторная
// загрузка того же блоба возвращает ту же ссылку.
type EvidenceStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewEvidenceStorage создаёт файловое хранилище.
func NewEvidenceStorage(rootPath string, maxUploadMB int64) (*EvidenceStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &EvidenceStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Put сохраняет блоб и возвращает его контентную ссылку (sha256 hex).
func (s *EvidenceStorage) Put(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	limited := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	data, err := io.ReadAll(&limited)
	if err != nil {
		return "", fmt.Errorf("storage: ошибка чтения блоба: %w", err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return "", fmt.Errorf("storage: размер блоба превышает лимит %d байт", s.maxUploadBytes)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("storage: пустой блоб")
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("storage: не удалось определить тип блоба: %w", err)
	}
	if _, ok := allowedTypes[kind.MIME.Value]; !ok {
		return "", fmt.Errorf("storage: тип %q не допускается как доказательство", kind.MIME.Value)
	}

	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])
	targetPath := filepath.Join(s.rootPath, ref)

	// Блоб с такой ссылкой уже сохранён — содержимое идентично по построению.
	if _, err := os.Stat(targetPath); err == nil {
		return ref, nil
	}

	tempPath := targetPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: не удалось записать блоб: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: не удалось переименовать блоб: %w", err)
	}

	return ref, nil
}

// Get открывает блоб по контентной ссылке.
func (s *EvidenceStorage) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validRef(ref) {
		return nil, fmt.Errorf("storage: некорректная ссылка %q", ref)
	}

	f, err := os.Open(filepath.Join(s.rootPath, ref))
	if err != nil {
		return nil, fmt.Errorf("storage: блоб не найден: %w", err)
	}
	return f, nil
}

// Exists проверяет наличие блоба.
func (s *EvidenceStorage) Exists(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !validRef(ref) {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(s.rootPath, ref))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// validRef отсекает всё, что не похоже на sha256 hex, до обращения к файловой системе.
func validRef(ref string) bool {
	if len(ref) != 64 {
		return false
	}
	if _, err := hex.DecodeString(ref); err != nil {
		return false
	}
	return true
}
