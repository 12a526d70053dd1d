package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nic-ch/naive-supervised/internal/domain/training"
)

func TestWriteWeights_RoundTrip(t *testing.T) {
	weights := []training.Weight{0, 1, -1, 32767, -32768, 12345, -12345}

	path, err := WriteWeights(t.TempDir(), weights, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	file, size, err := OpenForRead(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer file.Close()

	got, err := ReadWeights(file, size, len(weights))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range weights {
		if got[i] != weights[i] {
			t.Errorf("weight %d: expected %d, got %d", i, weights[i], got[i])
		}
	}
}

func TestWriteWeights_FileName(t *testing.T) {
	stamp := time.Date(2026, 8, 24, 13, 5, 9, 0, time.UTC)

	path, err := WriteWeights(t.TempDir(), make([]training.Weight, 70), stamp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The name carries the creation time, the weight width and the count.
	if got, want := filepath.Base(path), "WEIGHTS_2026-08-24_13-05-09.16w70"; got != want {
		t.Errorf("expected file name '%s', got '%s'", want, got)
	}
}

func TestWriteWeights_BadDirectory(t *testing.T) {
	if _, err := WriteWeights(filepath.Join(t.TempDir(), "missing"), []training.Weight{1}, time.Now()); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestReadWeights_SizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, []training.Weight{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		size  int64
		count int
	}{
		{"stream too small", 6, 4},
		{"stream too large", 6, 2},
		{"odd stream", 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadWeights(bytes.NewReader(buf.Bytes()), tt.size, tt.count); !errors.Is(err, training.ErrDataFormat) {
				t.Errorf("expected ErrDataFormat, got %v", err)
			}
		})
	}
}

func TestReadWeights_LittleEndian(t *testing.T) {
	// 0x0201 and a sign-extended 0xFFFE, least significant byte first.
	raw := []byte{0x01, 0x02, 0xFE, 0xFF}

	got, err := ReadWeights(bytes.NewReader(raw), 4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 513 || got[1] != -2 {
		t.Errorf("expected [513 -2], got %v", got)
	}
}
