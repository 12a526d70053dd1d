// Package storage provides the binary codecs and persistence collaborators:
// candidate streams, weight files and the SQLite run journal.
package storage

import (
	"fmt"
	"os"
)

// OpenForRead opens name for binary reading and returns the handle along
// with its byte size. Every caller validates the size against the format
// it expects before reading.
func OpenForRead(name string) (*os.File, int64, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, 0, fmt.Errorf("can not open '%s' for reading: %w", name, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("can not size '%s': %w", name, err)
	}

	return file, info.Size(), nil
}
