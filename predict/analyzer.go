package main

import (
	"context"
	"os"

	"github.com/garyburd/redigo/redis"
	log "github.com/sirupsen/logrus"

	"github.com/bbernhard/radiology-playground/analysis"
	"github.com/bbernhard/radiology-playground/commons"
	"github.com/bbernhard/radiology-playground/datastructures"
	"github.com/bbernhard/radiology-playground/inference"
)

// RawSource is the part of the inference client the analyzer needs.
type RawSource interface {
	Raw(ctx context.Context, image []byte) (datastructures.InferenceResponse, error)
}

// Analyzer runs one analysis request against the inference api and answers in the
// request's redis mailbox.
type Analyzer struct {
	redisPool    *redis.Pool
	source       RawSource
	maxDimension int
}

func NewAnalyzer(redisPool *redis.Pool, source RawSource, maxDimension int) *Analyzer {
	return &Analyzer{redisPool: redisPool, source: source, maxDimension: maxDimension}
}

func (a *Analyzer) cancelled(requestId string) bool {
	redisConn := a.redisPool.Get()
	defer redisConn.Close()

	cancelled, err := commons.IsCancelled(redisConn, requestId)
	if err != nil {
		log.Debug("[Analyzer] ", err.Error())
		return false
	}
	return cancelled
}

func (a *Analyzer) Process(ctx context.Context, req datastructures.AnalysisRequest) error {
	// the uploaded file is only needed for this one attempt
	defer func() {
		if err := os.Remove(req.Filename); err != nil && !os.IsNotExist(err) {
			log.Debug("[Analyzer] Couldn't remove file ", err.Error())
		}
	}()

	if a.cancelled(req.Uuid) {
		log.Debug("[Analyzer] Request ", req.Uuid, " was cancelled, skipping")
		return nil
	}

	result := datastructures.AnalysisResult{Uuid: req.Uuid}
	response, err := a.analyze(ctx, req)
	if err != nil {
		result.Error = resultError(err)
		commons.ReportError(err, map[string]string{"request": req.Uuid, "session": req.SessionId})
	} else {
		result.Result = response
	}

	// the session might have been closed while the inference api was busy
	if a.cancelled(req.Uuid) {
		log.Debug("[Analyzer] Request ", req.Uuid, " was cancelled, dropping result")
		return nil
	}

	redisConn := a.redisPool.Get()
	defer redisConn.Close()
	return commons.StoreResult(redisConn, result)
}

func (a *Analyzer) analyze(ctx context.Context, req datastructures.AnalysisRequest) (datastructures.InferenceResponse, error) {
	var response datastructures.InferenceResponse

	data, err := os.ReadFile(req.Filename)
	if err != nil {
		return response, analysis.FetchFailed(err, "couldn't read uploaded image")
	}

	image, err := inference.Preprocess(data, a.maxDimension)
	if err != nil {
		return response, err
	}

	response, err = a.source.Raw(ctx, image)
	if err != nil {
		return response, err
	}

	// reject broken responses here already, the api would do it anyway
	if _, err := inference.ToPredictionSet(response); err != nil {
		return response, err
	}
	return response, nil
}

func resultError(err error) *datastructures.AnalysisResultError {
	kind := datastructures.ErrorKindFetchFailed
	if analysis.IsInvalidPredictionSet(err) {
		kind = datastructures.ErrorKindInvalidPredictionSet
	}
	return &datastructures.AnalysisResultError{Kind: kind, Message: err.Error()}
}
