package rowstore

import (
	"fmt"

	"sensegraph/internal/model/wordnet"
)

// Token is one slot of a window record
type Token struct {
	Word  wordnet.WordID
	Sense wordnet.SynsetID
	POS   wordnet.POS
}

// Padding fills context slots beyond a sentence boundary
var Padding = Token{Word: wordnet.NoWord, Sense: wordnet.NoSynset, POS: wordnet.Undefined}

// Window is a disambiguation target with w context tokens on each side. Context holds
// the left slots, nearest last, followed by the right slots, nearest first.
type Window struct {
	Context []Token
	Target  Token
}

// EncodeWindow flattens a window into a 6w+3 record
func EncodeWindow(win Window, w int) ([]float64, error) {
	if len(win.Context) != 2*w {
		return nil, fmt.Errorf("window has %d context slots, want %d", len(win.Context), 2*w)
	}
	row := make([]float64, 0, WindowWidth(w))
	for _, tok := range append(append([]Token(nil), win.Context...), win.Target) {
		row = append(row, float64(tok.Word), float64(tok.Sense), float64(tok.POS))
	}
	return row, nil
}

// DecodeWindow is the inverse of EncodeWindow
func DecodeWindow(row []float64, w int) (Window, error) {
	if len(row) != WindowWidth(w) {
		return Window{}, fmt.Errorf("record has %d fields, window size %d needs %d", len(row), w, WindowWidth(w))
	}
	tokens := make([]Token, 0, 2*w+1)
	for i := 0; i < len(row); i += 3 {
		pos := wordnet.POS(row[i+2])
		if pos < wordnet.Undefined || pos > wordnet.AllPOS {
			return Window{}, fmt.Errorf("field %d: invalid POS tag %v", i+2, row[i+2])
		}
		tokens = append(tokens, Token{
			Word:  wordnet.WordID(row[i]),
			Sense: wordnet.SynsetID(row[i+1]),
			POS:   pos,
		})
	}
	return Window{Context: tokens[:2*w], Target: tokens[2*w]}, nil
}

// SenseCounts counts the gold target senses of every tagged window in store
func SenseCounts(store RowStore, w int) (map[wordnet.SynsetID]float64, error) {
	counts := make(map[wordnet.SynsetID]float64)
	for i := 0; i < store.Len(); i++ {
		row, err := store.Row(i)
		if err != nil {
			return nil, err
		}
		win, err := DecodeWindow(row, w)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if win.Target.Sense != wordnet.NoSynset {
			counts[win.Target.Sense]++
		}
	}
	return counts, nil
}
