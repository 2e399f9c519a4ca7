package rowstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"go.uber.org/zap"
)

var fileMagic = [4]byte{'S', 'G', 'R', 'S'}

const headerSize = 8

// FileStore is a row store backed by a flat file: a magic, the row width as a
// little-endian uint32, then rows of little-endian float64 values
type FileStore struct {
	file   *os.File
	width  int
	rows   int
	logger *zap.Logger
}

// Create truncates path and writes an empty store of the given width
func Create(path string, width int, logger *zap.Logger) (*FileStore, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid row width %d", width)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create row store: %w", err)
	}
	var header [headerSize]byte
	copy(header[:4], fileMagic[:])
	binary.LittleEndian.PutUint32(header[4:], uint32(width))
	if _, err := file.Write(header[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write row store header: %w", err)
	}
	return &FileStore{file: file, width: width, logger: logger}, nil
}

// Open opens an existing store for reading and appending
func Open(path string, logger *zap.Logger) (*FileStore, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open row store: %w", err)
	}
	var header [headerSize]byte
	if _, err := io.ReadFull(file, header[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read row store header of %s: %w", path, err)
	}
	if !bytes.Equal(header[:4], fileMagic[:]) {
		file.Close()
		return nil, fmt.Errorf("%s is not a row store", path)
	}
	width := int(binary.LittleEndian.Uint32(header[4:]))

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat row store: %w", err)
	}
	body := info.Size() - headerSize
	rowBytes := int64(width * 8)
	if width <= 0 || body%rowBytes != 0 {
		file.Close()
		return nil, fmt.Errorf("%s: truncated row store (%d body bytes, width %d)", path, body, width)
	}

	store := &FileStore{file: file, width: width, rows: int(body / rowBytes), logger: logger}
	logger.Debug("Opened row store",
		zap.String("path", path),
		zap.Int("rows", store.rows),
		zap.Int("width", width))
	return store, nil
}

func (s *FileStore) Len() int   { return s.rows }
func (s *FileStore) Width() int { return s.width }

func (s *FileStore) Row(i int) ([]float64, error) {
	if i < 0 || i >= s.rows {
		return nil, fmt.Errorf("row %d out of range [0, %d)", i, s.rows)
	}
	buf := make([]byte, s.width*8)
	if _, err := s.file.ReadAt(buf, s.offset(i)); err != nil {
		return nil, fmt.Errorf("failed to read row %d: %w", i, err)
	}
	row := make([]float64, s.width)
	for j := range row {
		row[j] = math.Float64frombits(binary.LittleEndian.Uint64(buf[j*8:]))
	}
	return row, nil
}

func (s *FileStore) Append(row []float64) error {
	if len(row) != s.width {
		return fmt.Errorf("row has %d fields, store width is %d", len(row), s.width)
	}
	buf := make([]byte, s.width*8)
	for j, v := range row {
		binary.LittleEndian.PutUint64(buf[j*8:], math.Float64bits(v))
	}
	if _, err := s.file.WriteAt(buf, s.offset(s.rows)); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	s.rows++
	return nil
}

func (s *FileStore) Close() error {
	return s.file.Close()
}

func (s *FileStore) offset(i int) int64 {
	return headerSize + int64(i)*int64(s.width*8)
}
