package analysis

import (
	"context"

	"github.com/pkg/errors"
)

// Source fetches the predictions for an encoded image.
type Source interface {
	Fetch(ctx context.Context, image []byte) (*PredictionSet, error)
}

// State of an analysis session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
	StateClosed  State = "closed"
)

// Presentation is what a session hands to its table, heatmap and chart renderers.
type Presentation struct {
	State       State  `json:"state"`
	RequestID   string `json:"request_id,omitempty"`
	SourceImage string `json:"source_image,omitempty"`
	Error       string `json:"error,omitempty"`
	View        *View  `json:"view,omitempty"`
}

// Session owns the prediction set, selection and scroll state of one popup
// open/close cycle. It is not safe for concurrent use.
type Session struct {
	policy      Policy
	state       State
	requestID   string
	sourceImage string
	err         error

	set       *PredictionSet
	selection *Selection
	scroll    ScrollTracker
}

func NewSession(policy Policy) *Session {
	return &Session{policy: policy, state: StateIdle, selection: NewSelection(nil)}
}

func (s *Session) State() State        { return s.state }
func (s *Session) RequestID() string   { return s.requestID }
func (s *Session) Err() error          { return s.err }
func (s *Session) Set() *PredictionSet { return s.set }

// Begin starts a new fetch identified by requestID. Results of earlier requests
// are discarded when they arrive.
func (s *Session) Begin(requestID string, sourceImage string) error {
	if s.state == StateClosed {
		return errors.New("session is closed")
	}
	s.state = StateLoading
	s.requestID = requestID
	s.sourceImage = sourceImage
	s.err = nil
	return nil
}

func (s *Session) current(requestID string) bool {
	return s.state == StateLoading && requestID == s.requestID
}

// Load installs set as the result of requestID and resets selection and scroll
// state. It returns false when the result is stale or the session is gone.
func (s *Session) Load(requestID string, set *PredictionSet) bool {
	if !s.current(requestID) {
		return false
	}
	s.set = set
	s.selection.Reset(set)
	s.scroll.Reset()
	s.state = StateReady
	return true
}

// Fail records a fetch failure for requestID, with the same discard rules as Load.
// No partial result survives a failure.
func (s *Session) Fail(requestID string, err error) bool {
	if !s.current(requestID) {
		return false
	}
	s.set = nil
	s.selection.Reset(nil)
	s.scroll.Reset()
	s.err = err
	s.state = StateFailed
	return true
}

// Run fetches image through src and loads the outcome. It is the synchronous
// path used when no queue sits between the session and the inference API.
func (s *Session) Run(ctx context.Context, src Source, requestID string, image []byte, sourceImage string) error {
	if err := s.Begin(requestID, sourceImage); err != nil {
		return err
	}
	set, err := src.Fetch(ctx, image)
	if err != nil {
		s.Fail(requestID, err)
		return err
	}
	if ctx.Err() != nil {
		// torn down while the fetch was outstanding
		return ctx.Err()
	}
	s.Load(requestID, set)
	return nil
}

// Close tears the session down; later results are ignored.
func (s *Session) Close() {
	s.state = StateClosed
	s.set = nil
	s.selection.Reset(nil)
}

func (s *Session) ready() error {
	if s.state != StateReady {
		return errors.Wrapf(ErrNotReady, "session is %s", s.state)
	}
	return nil
}

func (s *Session) Select(label string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.selection.Select(label)
}

func (s *Session) ToggleExpanded() (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.selection.ToggleExpanded(), nil
}

func (s *Session) OnScroll(m ViewportMetrics) (ScrollState, error) {
	if err := s.ready(); err != nil {
		return ScrollState{}, err
	}
	return s.scroll.OnScroll(m), nil
}

// Present derives the presentation. Only a ready session exposes a view.
func (s *Session) Present() Presentation {
	p := Presentation{State: s.state, RequestID: s.requestID}
	switch s.state {
	case StateLoading:
		p.SourceImage = s.sourceImage
	case StateFailed:
		p.Error = UserMessage(s.err)
	case StateReady:
		v := Render(s.set, Rank(s.set), s.selection, s.scroll.State(), s.policy)
		p.View = &v
	}
	return p
}

// UserMessage turns a fetch error into the message shown instead of the table.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsInvalidPredictionSet(err):
		return "The analysis service returned an incomplete result."
	case IsFetchFailed(err):
		return "The analysis couldn't be completed - please try again later."
	}
	return "Something went wrong during the analysis."
}
