package main

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/disintegration/imaging"
	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernhard/radiology-playground/analysis"
	"github.com/bbernhard/radiology-playground/commons"
	"github.com/bbernhard/radiology-playground/datastructures"
)

type fakeSource struct {
	mu       sync.Mutex
	calls    int
	response datastructures.InferenceResponse
	err      error
}

func (f *fakeSource) Raw(ctx context.Context, image []byte) (datastructures.InferenceResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.response, f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func validResponse() datastructures.InferenceResponse {
	return datastructures.InferenceResponse{
		Labels:             []string{"Effusion", "Mass"},
		PredictionMean:     map[string]float64{"Effusion": 0.8, "Mass": 0.4},
		PredictionVariance: map[string]float64{"Effusion": 0.02, "Mass": 0.03},
		SuperimposedImages: map[string]string{"Effusion": "ZQ==", "Mass": "bQ=="},
	}
}

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Pool) {
	mr := miniredis.RunT(t)
	pool := commons.NewRedisPool(mr.Addr(), 5)
	t.Cleanup(func() { pool.Close() })
	return mr, pool
}

func writeImage(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(64, 64, color.Gray{Y: 200})))
	path := filepath.Join(t.TempDir(), "upload")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func takeResult(t *testing.T, pool *redis.Pool, id string) (datastructures.AnalysisResult, bool) {
	conn := pool.Get()
	defer conn.Close()
	res, ok, err := commons.TakeResult(conn, id)
	require.NoError(t, err)
	return res, ok
}

func TestAnalyzerStoresResult(t *testing.T) {
	_, pool := setup(t)
	source := &fakeSource{response: validResponse()}
	analyzer := NewAnalyzer(pool, source, 32)

	path := writeImage(t)
	require.NoError(t, analyzer.Process(context.Background(), datastructures.AnalysisRequest{Uuid: "req-1", Filename: path}))

	res, ok := takeResult(t, pool, "req-1")
	require.True(t, ok)
	assert.Nil(t, res.Error)
	assert.Equal(t, []string{"Effusion", "Mass"}, res.Result.Labels)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAnalyzerStoresFetchFailure(t *testing.T) {
	_, pool := setup(t)
	source := &fakeSource{err: analysis.FetchFailed(errors.New("connection refused"), "couldn't reach inference api")}
	analyzer := NewAnalyzer(pool, source, 0)

	require.NoError(t, analyzer.Process(context.Background(), datastructures.AnalysisRequest{Uuid: "req-1", Filename: writeImage(t)}))

	res, ok := takeResult(t, pool, "req-1")
	require.True(t, ok)
	require.NotNil(t, res.Error)
	assert.Equal(t, datastructures.ErrorKindFetchFailed, res.Error.Kind)
	assert.Contains(t, res.Error.Message, "connection refused")
}

func TestAnalyzerStoresInvalidPredictionSet(t *testing.T) {
	_, pool := setup(t)
	response := validResponse()
	delete(response.SuperimposedImages, "Mass")
	analyzer := NewAnalyzer(pool, &fakeSource{response: response}, 0)

	require.NoError(t, analyzer.Process(context.Background(), datastructures.AnalysisRequest{Uuid: "req-1", Filename: writeImage(t)}))

	res, ok := takeResult(t, pool, "req-1")
	require.True(t, ok)
	require.NotNil(t, res.Error)
	assert.Equal(t, datastructures.ErrorKindInvalidPredictionSet, res.Error.Kind)
}

func TestAnalyzerMissingFile(t *testing.T) {
	_, pool := setup(t)
	source := &fakeSource{response: validResponse()}
	analyzer := NewAnalyzer(pool, source, 0)

	require.NoError(t, analyzer.Process(context.Background(), datastructures.AnalysisRequest{Uuid: "req-1", Filename: "/not/existing"}))

	res, ok := takeResult(t, pool, "req-1")
	require.True(t, ok)
	require.NotNil(t, res.Error)
	assert.Equal(t, datastructures.ErrorKindFetchFailed, res.Error.Kind)
	assert.Equal(t, 0, source.Calls())
}

func TestAnalyzerSkipsCancelledRequests(t *testing.T) {
	mr, pool := setup(t)
	conn := pool.Get()
	require.NoError(t, commons.Cancel(conn, "req-1"))
	conn.Close()

	source := &fakeSource{response: validResponse()}
	analyzer := NewAnalyzer(pool, source, 0)
	require.NoError(t, analyzer.Process(context.Background(), datastructures.AnalysisRequest{Uuid: "req-1", Filename: writeImage(t)}))

	assert.Equal(t, 0, source.Calls())
	assert.False(t, mr.Exists(commons.ResultKey("req-1")))
}

func TestDispatcherProcessesQueuedRequests(t *testing.T) {
	_, pool := setup(t)
	source := &fakeSource{response: validResponse()}
	analyzer := NewAnalyzer(pool, source, 0)

	conn := pool.Get()
	for _, id := range []string{"req-1", "req-2", "req-3"} {
		require.NoError(t, commons.Enqueue(conn, datastructures.AnalysisRequest{Uuid: id, Filename: writeImage(t)}))
	}
	conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	jobQueue := make(chan Job, 10)
	dispatcher := NewDispatcher(jobQueue, 2, analyzer)

	done := make(chan error, 2)
	go func() { done <- dispatcher.run(ctx) }()
	go func() { done <- consume(ctx, pool, jobQueue, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return source.Calls() == 3 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		c := pool.Get()
		defer c.Close()
		n, err := redis.Int(c.Do("EXISTS", commons.ResultKey("req-1"), commons.ResultKey("req-2"), commons.ResultKey("req-3")))
		return err == nil && n == 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("dispatcher didn't stop")
		}
	}
}
