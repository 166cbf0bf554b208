package inference

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bbernhard/radiology-playground/analysis"
	"github.com/bbernhard/radiology-playground/datastructures"
)

// Client is the HTTP PredictionSource. It doesn't cache; every Fetch is one
// inference call (plus the configured retries).
type Client struct {
	url    string
	client *resty.Client
}

type Options struct {
	Timeout    time.Duration
	RetryCount int
}

func NewClient(url string, opts Options) *Client {
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")
	if opts.RetryCount > 0 {
		client.SetRetryCount(opts.RetryCount).
			SetRetryWaitTime(500 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			})
	}
	return &Client{url: url, client: client}
}

// Raw posts image and returns the parsed response without validating it.
func (c *Client) Raw(ctx context.Context, image []byte) (datastructures.InferenceResponse, error) {
	var res datastructures.InferenceResponse
	if len(image) == 0 {
		return res, analysis.FetchFailed(nil, "image is empty")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(datastructures.InferenceRequest{Image: base64.StdEncoding.EncodeToString(image)}).
		Post(c.url)
	if err != nil {
		return res, analysis.FetchFailed(err, "couldn't reach inference api")
	}
	if resp.IsError() {
		return res, analysis.FetchFailed(errors.Errorf("inference api answered %s", resp.Status()), "")
	}

	res, err = ParseResponse(resp.Body())
	if err != nil {
		return res, analysis.FetchFailed(err, "couldn't parse inference response")
	}
	return res, nil
}

// Fetch implements analysis.Source.
func (c *Client) Fetch(ctx context.Context, image []byte) (*analysis.PredictionSet, error) {
	res, err := c.Raw(ctx, image)
	if err != nil {
		return nil, err
	}

	set, err := ToPredictionSet(res)
	if err != nil {
		shape, _ := analysis.ShapeOf(err)
		log.WithField("shape", shape.String()).Error("[Inference] Rejected prediction set: ", err.Error())
		return nil, err
	}

	log.Debug("[Inference] Got ", set.Len(), " predictions")
	return set, nil
}
