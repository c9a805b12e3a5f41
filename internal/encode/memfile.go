package encode

import (
	"errors"
	"io"
)

var errNegativeOffset = errors.New("negative offset")

// memFile is an in-memory io.WriteSeeker, as required by the wav encoder.
type memFile struct {
	data []byte
	pos  int
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}

	copy(m.data[m.pos:], p)
	m.pos = end

	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = len(m.data)
	default:
		return 0, errors.New("invalid whence")
	}

	pos := base + int(offset)
	if pos < 0 {
		return 0, errNegativeOffset
	}

	m.pos = pos

	return int64(pos), nil
}

func (m *memFile) Bytes() []byte {
	return m.data
}
