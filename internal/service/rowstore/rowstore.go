package rowstore

import (
	"fmt"
)

// RowStore is a table of fixed-width numeric records
type RowStore interface {
	Len() int
	Width() int
	// Row returns a copy of record i
	Row(i int) ([]float64, error)
	Append(row []float64) error
	Close() error
}

// MemoryStore keeps all rows in memory
type MemoryStore struct {
	width int
	rows  [][]float64
}

func NewMemoryStore(width int) *MemoryStore {
	return &MemoryStore{width: width}
}

func (s *MemoryStore) Len() int   { return len(s.rows) }
func (s *MemoryStore) Width() int { return s.width }

func (s *MemoryStore) Row(i int) ([]float64, error) {
	if i < 0 || i >= len(s.rows) {
		return nil, fmt.Errorf("row %d out of range [0, %d)", i, len(s.rows))
	}
	return append([]float64(nil), s.rows[i]...), nil
}

func (s *MemoryStore) Append(row []float64) error {
	if len(row) != s.width {
		return fmt.Errorf("row has %d fields, store width is %d", len(row), s.width)
	}
	s.rows = append(s.rows, append([]float64(nil), row...))
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// WindowWidth is the record width for a context window of w words on each side:
// three fields (word id, sense id, POS) per context slot plus the target triple
func WindowWidth(w int) int {
	return 6*w + 3
}
