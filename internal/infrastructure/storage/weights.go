package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nic-ch/naive-supervised/internal/domain/training"
)

// weightSize is the encoded size of one weight in bytes.
const weightSize = 2

// weightFileTimeFormat names saved weight files by their creation time.
const weightFileTimeFormat = "2006-01-02_15-04-05"

// ReadWeights decodes exactly count little-endian signed 16-bit weights.
// streamSize must match count*2 exactly or the load fails.
func ReadWeights(r io.Reader, streamSize int64, count int) ([]training.Weight, error) {
	required := int64(count) * weightSize
	if streamSize != required {
		return nil, fmt.Errorf(
			"%w: weights file is %d bytes but must be %d bytes for %d weights of %d bytes each",
			training.ErrDataFormat, streamSize, required, count, weightSize)
	}

	weights := make([]training.Weight, count)
	if err := binary.Read(r, binary.LittleEndian, weights); err != nil {
		return nil, fmt.Errorf("%w: reading %d weights: %v", training.ErrDataFormat, count, err)
	}
	return weights, nil
}

// WriteWeights persists the vector to a file named
// "WEIGHTS_<date>_<time>.16w<count>" in dir and returns the file name.
func WriteWeights(dir string, weights []training.Weight, now time.Time) (string, error) {
	name := fmt.Sprintf("WEIGHTS_%s.%dw%d",
		now.Format(weightFileTimeFormat), 8*weightSize, len(weights))
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("can not create weights file '%s': %w", path, err)
	}
	defer file.Close()

	if err := binary.Write(file, binary.LittleEndian, weights); err != nil {
		return "", fmt.Errorf("writing %d weights to '%s': %w", len(weights), path, err)
	}
	return path, nil
}
