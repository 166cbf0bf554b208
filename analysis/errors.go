package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidSelection means the view asked for a label the loaded set doesn't have.
	// Correctly wired views never trigger it.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrNotReady is returned by interactions attempted while no prediction set is loaded.
	ErrNotReady = errors.New("analysis not ready")
)

// FetchFailedError wraps a transport or parse failure at the inference boundary.
type FetchFailedError struct {
	Err error
}

func (e *FetchFailedError) Error() string {
	return "fetch failed: " + e.Err.Error()
}

func (e *FetchFailedError) Cause() error  { return e.Err }
func (e *FetchFailedError) Unwrap() error { return e.Err }

// FetchFailed wraps err into a FetchFailedError, adding msg as context.
func FetchFailed(err error, msg string) error {
	if err == nil {
		err = errors.New(msg)
	} else if msg != "" {
		err = errors.Wrap(err, msg)
	}
	return &FetchFailedError{Err: err}
}

// PayloadShape describes which labels each map of an inference response carried.
type PayloadShape struct {
	Means     []string `json:"prediction_mean"`
	Variances []string `json:"prediction_variance"`
	Heatmaps  []string `json:"superimposed_images"`
}

func (s PayloadShape) String() string {
	return fmt.Sprintf("means=[%s] variances=[%s] heatmaps=[%s]",
		strings.Join(s.Means, ","), strings.Join(s.Variances, ","), strings.Join(s.Heatmaps, ","))
}

func shapeOf(labels []string, variances map[string]float64, heatmaps map[string]string) PayloadShape {
	shape := PayloadShape{Means: append([]string(nil), labels...)}
	for label := range variances {
		shape.Variances = append(shape.Variances, label)
	}
	for label := range heatmaps {
		shape.Heatmaps = append(shape.Heatmaps, label)
	}
	sort.Strings(shape.Variances)
	sort.Strings(shape.Heatmaps)
	return shape
}

// InvalidPredictionSetError is returned when an inference response violates the
// label-set invariant.
type InvalidPredictionSetError struct {
	Reason string
	Shape  PayloadShape
}

func (e *InvalidPredictionSetError) Error() string {
	return "invalid prediction set: " + e.Reason
}

// IsFetchFailed reports whether err (or anything it wraps) is a FetchFailedError.
func IsFetchFailed(err error) bool {
	var target *FetchFailedError
	return errors.As(err, &target)
}

// IsInvalidPredictionSet reports whether err (or anything it wraps) is an
// InvalidPredictionSetError.
func IsInvalidPredictionSet(err error) bool {
	var target *InvalidPredictionSetError
	return errors.As(err, &target)
}

// ShapeOf returns the payload shape carried by err, if it is an invalid set error.
func ShapeOf(err error) (PayloadShape, bool) {
	var target *InvalidPredictionSetError
	if errors.As(err, &target) {
		return target.Shape, true
	}
	return PayloadShape{}, false
}
