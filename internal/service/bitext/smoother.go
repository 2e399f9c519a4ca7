package bitext

import "fmt"

// Smoother turns expected counts into probabilities
type Smoother interface {
	// Smooth estimates P(event | context)
	// count: expected count of the event in the context
	// contextCount: total count of the context
	// continuations: distinct events seen in the context
	// backoffProb: estimate to fall back on for unseen events
	// vocabularySize: number of possible events
	Smooth(count, contextCount float64, continuations int, backoffProb float64, vocabularySize int) float64

	Name() string
}

// NewSmoother builds a smoother by name: "mle", "addk" or "wittenbell". "addk" with k = 0
// is the same relative-frequency estimate as "mle".
func NewSmoother(name string, k float64) (Smoother, error) {
	switch name {
	case "", "mle":
		return NewAddKSmoother(0), nil
	case "addk":
		if k < 0 {
			return nil, fmt.Errorf("negative add-k constant %v", k)
		}
		return NewAddKSmoother(k), nil
	case "wittenbell":
		return NewWittenBellSmoother(), nil
	}
	return nil, fmt.Errorf("unknown smoother %q", name)
}

// AddKSmoother adds k pseudo-observations to every event. k = 0 leaves count/contextCount.
type AddKSmoother struct {
	k float64
}

func NewAddKSmoother(k float64) *AddKSmoother {
	if k < 0 {
		k = 0
	}
	return &AddKSmoother{k: k}
}

func (s *AddKSmoother) Smooth(count, contextCount float64, continuations int, backoffProb float64, vocabularySize int) float64 {
	if vocabularySize == 0 {
		return 0
	}
	if contextCount == 0 {
		return 1.0 / float64(vocabularySize)
	}
	return (count + s.k) / (contextCount + s.k*float64(vocabularySize))
}

func (s *AddKSmoother) Name() string {
	if s.k == 0 {
		return "MLE"
	}
	return "AddK"
}

// WittenBellSmoother reserves T/(C+T) of a context's mass for unseen events, where T is
// the number of distinct continuations
type WittenBellSmoother struct{}

func NewWittenBellSmoother() *WittenBellSmoother {
	return &WittenBellSmoother{}
}

func (s *WittenBellSmoother) Smooth(count, contextCount float64, continuations int, backoffProb float64, vocabularySize int) float64 {
	if contextCount == 0 {
		if vocabularySize == 0 {
			return 0
		}
		return 1.0 / float64(vocabularySize)
	}
	types := float64(continuations)
	seen := count / (contextCount + types)
	return seen + types/(contextCount+types)*backoffProb
}

func (s *WittenBellSmoother) Name() string {
	return "WittenBell"
}
