package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nic-ch/naive-supervised/internal/domain/training"
)

// CandidateHeader is the fixed header of a candidate stream: matrixCount
// records of {name: nameSize bytes, cells: rows*cols little-endian u16}
// follow it.
type CandidateHeader struct {
	MatrixCount uint32
	Rows        uint32
	Cols        uint32
	NameSize    uint32
}

// headerSize is the encoded header length in bytes.
const headerSize = 16

// cellSize is the encoded size of one input cell.
const cellSize = 2

// RequiredStreamSize returns the exact byte length a stream with this
// header must have.
func (h CandidateHeader) RequiredStreamSize() int64 {
	perMatrix := int64(h.NameSize) + int64(h.Rows)*int64(h.Cols)*cellSize
	return headerSize + int64(h.MatrixCount)*perMatrix
}

// ReadCandidateHeader decodes and sanity-checks the header, and validates
// that streamSize matches the size the header declares exactly.
func ReadCandidateHeader(r io.Reader, streamSize int64) (CandidateHeader, error) {
	var h CandidateHeader

	if streamSize < headerSize {
		return h, fmt.Errorf("%w: stream of %d bytes is too small to hold a header", training.ErrDataFormat, streamSize)
	}
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("%w: reading header: %v", training.ErrDataFormat, err)
	}

	if h.MatrixCount < 1 {
		return h, fmt.Errorf("%w: matrix count is %d", training.ErrDataFormat, h.MatrixCount)
	}
	if h.Rows < 2 {
		return h, fmt.Errorf("%w: matrix rows count is %d", training.ErrDataFormat, h.Rows)
	}
	if h.Cols < 2 {
		return h, fmt.Errorf("%w: matrix columns count is %d", training.ErrDataFormat, h.Cols)
	}
	if h.NameSize < 1 {
		return h, fmt.Errorf("%w: matrix name size is %d", training.ErrDataFormat, h.NameSize)
	}

	if required := h.RequiredStreamSize(); streamSize != required {
		return h, fmt.Errorf(
			"%w: stream is %d bytes but its header declares %d matrices of %d rows by %d columns "+
				"with names of %d bytes, requiring %d bytes",
			training.ErrDataFormat, streamSize, h.MatrixCount, h.Rows, h.Cols, h.NameSize, required)
	}

	return h, nil
}

// ReadCandidateName reads one fixed-size name record and trims it at the
// first NUL byte.
func ReadCandidateName(r io.Reader, nameSize uint32) (string, error) {
	raw := make([]byte, nameSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", fmt.Errorf("%w: reading a matrix name: %v", training.ErrDataFormat, err)
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}
