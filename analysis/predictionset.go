package analysis

import (
	"math"

	"github.com/pkg/errors"
)

// PredictionEntry holds one class's statistics. Means are independent per-class
// scores and are not expected to sum to one.
type PredictionEntry struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// PredictionSet is the immutable, validated result of one inference call.
// Labels keep the order in which the inference API listed them.
type PredictionSet struct {
	labels   []string
	entries  map[string]PredictionEntry
	heatmaps map[string]string
}

// NewPredictionSet validates the three label-keyed maps of an inference response.
// labels gives the insertion order of means and must hold every key of means exactly once.
func NewPredictionSet(labels []string, means map[string]float64, variances map[string]float64,
	heatmaps map[string]string) (*PredictionSet, error) {
	invalid := func(reason string) error {
		return &InvalidPredictionSetError{Reason: reason, Shape: shapeOf(labels, variances, heatmaps)}
	}

	if len(labels) != len(means) {
		return nil, invalid("label order doesn't match the means")
	}
	if len(variances) != len(means) || len(heatmaps) != len(means) {
		return nil, invalid("label sets differ between means, variances and heatmaps")
	}

	set := &PredictionSet{
		labels:   make([]string, 0, len(labels)),
		entries:  make(map[string]PredictionEntry, len(labels)),
		heatmaps: make(map[string]string, len(labels)),
	}
	for _, label := range labels {
		if label == "" {
			return nil, invalid("empty label")
		}
		if _, dup := set.entries[label]; dup {
			return nil, invalid("duplicate label " + label)
		}
		mean, ok := means[label]
		if !ok {
			return nil, invalid("label order doesn't match the means")
		}
		variance, ok := variances[label]
		if !ok {
			return nil, invalid("no variance for " + label)
		}
		heatmap, ok := heatmaps[label]
		if !ok {
			return nil, invalid("no heatmap for " + label)
		}
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			return nil, invalid("mean of " + label + " is not a number")
		}
		if math.IsNaN(variance) || variance < 0 {
			return nil, invalid("variance of " + label + " is negative or not a number")
		}

		set.labels = append(set.labels, label)
		set.entries[label] = PredictionEntry{Mean: mean, Variance: variance}
		set.heatmaps[label] = heatmap
	}

	return set, nil
}

// MustPredictionSet is like NewPredictionSet but panics on invalid input.
func MustPredictionSet(labels []string, means map[string]float64, variances map[string]float64,
	heatmaps map[string]string) *PredictionSet {
	set, err := NewPredictionSet(labels, means, variances, heatmaps)
	if err != nil {
		panic(errors.Wrap(err, "analysis: MustPredictionSet"))
	}
	return set
}

// Len returns the number of classes in the set.
func (s *PredictionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Labels returns the labels in insertion order.
func (s *PredictionSet) Labels() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.labels...)
}

func (s *PredictionSet) Entry(label string) (PredictionEntry, bool) {
	if s == nil {
		return PredictionEntry{}, false
	}
	e, ok := s.entries[label]
	return e, ok
}

func (s *PredictionSet) Heatmap(label string) (string, bool) {
	if s == nil {
		return "", false
	}
	h, ok := s.heatmaps[label]
	return h, ok
}

func (s *PredictionSet) Has(label string) bool {
	_, ok := s.Entry(label)
	return ok
}

// MaxMean is the largest mean in the set, zero for an empty set.
func (s *PredictionSet) MaxMean() float64 {
	if s.Len() == 0 {
		return 0
	}
	max := math.Inf(-1)
	for _, label := range s.labels {
		if m := s.entries[label].Mean; m > max {
			max = m
		}
	}
	return max
}
