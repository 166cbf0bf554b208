package datastructures

// InferenceRequest is the body posted to the inference API.
type InferenceRequest struct {
	Image string `json:"image"`
}

// InferenceResponse mirrors the inference API's answer. Go maps drop the key
// order, which is why the parser fills Labels from the raw document.
type InferenceResponse struct {
	PredictionMean     map[string]float64 `json:"prediction_mean"`
	PredictionVariance map[string]float64 `json:"prediction_variance"`
	SuperimposedImages map[string]string  `json:"superimposed_images"`
	Labels             []string           `json:"labels,omitempty"`
}

// AnalysisRequest is pushed onto the redis 'analyzeme' queue by the api.
type AnalysisRequest struct {
	Uuid      string `json:"uuid"`
	SessionId string `json:"session_id"`
	Filename  string `json:"filename"`
	Created   int64  `json:"created"`
}

// AnalysisResult is stored in the redis mailbox by the predict worker.
type AnalysisResult struct {
	Uuid   string               `json:"uuid"`
	Result InferenceResponse    `json:"result"`
	Error  *AnalysisResultError `json:"error,omitempty"`
}

type AnalysisResultError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	ErrorKindFetchFailed          = "fetch_failed"
	ErrorKindInvalidPredictionSet = "invalid_prediction_set"
)

type ScrollRequest struct {
	ScrollTop    float64 `json:"scroll_top"`
	ScrollHeight float64 `json:"scroll_height"`
	ClientHeight float64 `json:"client_height"`
}

type SelectRequest struct {
	Label string `json:"label" binding:"required"`
}
