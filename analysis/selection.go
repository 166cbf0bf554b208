package analysis

import "github.com/pkg/errors"

// Selection is the single source of truth for which heatmap is shown and whether
// the ranked table is expanded. The table highlight, the heatmap panel and any
// "currently viewing" indicator all read ActiveLabel.
type Selection struct {
	set         *PredictionSet
	activeLabel string
	expanded    bool
}

// NewSelection returns a selection initialized for set.
func NewSelection(set *PredictionSet) *Selection {
	s := &Selection{}
	s.Reset(set)
	return s
}

// Reset re-initializes the selection for a freshly loaded set: the top-ranked label
// becomes active and the table collapses.
func (s *Selection) Reset(set *PredictionSet) {
	s.set = set
	s.expanded = false
	s.activeLabel = ""
	if ranked := Rank(set); len(ranked) > 0 {
		s.activeLabel = ranked[0].Label
	}
}

func (s *Selection) ActiveLabel() string { return s.activeLabel }
func (s *Selection) Expanded() bool      { return s.expanded }

// Select makes label the active one. Labels absent from the loaded set leave the
// selection untouched and return ErrInvalidSelection.
func (s *Selection) Select(label string) error {
	if !s.set.Has(label) {
		return errors.Wrapf(ErrInvalidSelection, "label %q is not part of the prediction set", label)
	}
	s.activeLabel = label
	return nil
}

// ToggleExpanded flips between the collapsed and the full table.
func (s *Selection) ToggleExpanded() bool {
	s.expanded = !s.expanded
	return s.expanded
}
