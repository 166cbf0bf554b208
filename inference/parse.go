package inference

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/bbernhard/radiology-playground/analysis"
	"github.com/bbernhard/radiology-playground/datastructures"
)

// ParseResponse decodes an inference response, keeping the order in which
// prediction_mean lists its labels.
func ParseResponse(body []byte) (datastructures.InferenceResponse, error) {
	var res datastructures.InferenceResponse
	if !gjson.ValidBytes(body) {
		return res, errors.New("response is not valid json")
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return res, errors.New("response is not a json object")
	}

	means := doc.Get("prediction_mean")
	if !means.IsObject() {
		return res, errors.New("prediction_mean is missing")
	}

	res.PredictionMean = map[string]float64{}
	res.PredictionVariance = map[string]float64{}
	res.SuperimposedImages = map[string]string{}

	var err error
	means.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			err = errors.Errorf("prediction_mean of %q is not a number", key.String())
			return false
		}
		res.Labels = append(res.Labels, key.String())
		res.PredictionMean[key.String()] = value.Float()
		return true
	})
	if err != nil {
		return res, err
	}

	doc.Get("prediction_variance").ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			err = errors.Errorf("prediction_variance of %q is not a number", key.String())
			return false
		}
		res.PredictionVariance[key.String()] = value.Float()
		return true
	})
	if err != nil {
		return res, err
	}

	doc.Get("superimposed_images").ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			err = errors.Errorf("superimposed_images of %q is not a string", key.String())
			return false
		}
		res.SuperimposedImages[key.String()] = value.String()
		return true
	})
	return res, err
}

// ToPredictionSet validates res into a prediction set.
func ToPredictionSet(res datastructures.InferenceResponse) (*analysis.PredictionSet, error) {
	labels := res.Labels
	if labels == nil && len(res.PredictionMean) > 0 {
		// response didn't go through ParseResponse, order is lost
		return nil, &analysis.InvalidPredictionSetError{Reason: "label order is missing"}
	}
	return analysis.NewPredictionSet(labels, res.PredictionMean, res.PredictionVariance, res.SuperimposedImages)
}
