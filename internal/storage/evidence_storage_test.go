package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

// pngBlob — минимальный валидный PNG заголовок, достаточный для filetype.Match.
func pngBlob(payload ...byte) []byte {
	header := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return append(header, payload...)
}

func newTestStorage(t *testing.T) *EvidenceStorage {
	t.Helper()
	s, err := NewEvidenceStorage(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("не удалось создать хранилище: %v", err)
	}
	return s
}

func TestEvidenceStorage_PutIsContentAddressed(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	blob := pngBlob(1, 2, 3)
	ref1, err := s.Put(ctx, bytes.NewReader(blob))
	assert.NoError(t, err)
	assert.Len(t, ref1, 64)

	// Повторная загрузка того же содержимого даёт ту же ссылку.
	ref2, err := s.Put(ctx, bytes.NewReader(blob))
	assert.NoError(t, err)
	assert.Equal(t, ref1, ref2)

	// Другое содержимое — другая ссылка.
	ref3, err := s.Put(ctx, bytes.NewReader(pngBlob(4, 5, 6)))
	assert.NoError(t, err)
	assert.NotEqual(t, ref1, ref3)
}

func TestEvidenceStorage_GetRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	blob := pngBlob(7, 8, 9)
	ref, err := s.Put(ctx, bytes.NewReader(blob))
	assert.NoError(t, err)

	rc, err := s.Get(ctx, ref)
	assert.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	assert.NoError(t, err)
	assert.Equal(t, blob, data)
}

func TestEvidenceStorage_RejectsUnknownType(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Put(context.Background(), bytes.NewReader([]byte("просто текст, не изображение")))
	assert.Error(t, err)
}

func TestEvidenceStorage_RejectsEmptyBlob(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Put(context.Background(), bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestEvidenceStorage_Exists(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ref, err := s.Put(ctx, bytes.NewReader(pngBlob(1)))
	assert.NoError(t, err)

	ok, err := s.Exists(ctx, ref)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	assert.NoError(t, err)
	assert.False(t, ok)

	// Мусорная ссылка не трогает файловую систему.
	ok, err = s.Exists(ctx, "../etc/passwd")
	assert.NoError(t, err)
	assert.False(t, ok)
}
