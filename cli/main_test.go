package main

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernhard/radiology-playground/analysis"
)

const predictions = `{
	"prediction_mean": {"Atelectasis": 0.12, "Cardiomegaly": 0.81, "Effusion": 0.55, "Infiltration": 0.3,
		"Mass": 0.05, "Nodule": 0.2, "Pneumonia": 0.44, "Pneumothorax": 0.09, "Edema": 0.61},
	"prediction_variance": {"Atelectasis": 0.01, "Cardiomegaly": 0.02, "Effusion": 0.03, "Infiltration": 0.01,
		"Mass": 0.01, "Nodule": 0.02, "Pneumonia": 0.05, "Pneumothorax": 0.01, "Edema": 0.04},
	"superimposed_images": {"Atelectasis": "a", "Cardiomegaly": "c", "Effusion": "e", "Infiltration": "i",
		"Mass": "m", "Nodule": "n", "Pneumonia": "p", "Pneumothorax": "t", "Edema": "d"}
}`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestRunFromPredictions(t *testing.T) {
	path := writeFile(t, "predictions.json", []byte(predictions))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-predictions", path}, &out))
	assert.Contains(t, out.String(), "Cardiomegaly")
	assert.NotContains(t, out.String(), "Mass ")
	assert.Contains(t, out.String(), "See more (2 hidden)")
	assert.Contains(t, out.String(), "Heatmap: Cardiomegaly")
}

func TestRunExpandedWithSelectionAndRadar(t *testing.T) {
	path := writeFile(t, "predictions.json", []byte(predictions))
	radar := filepath.Join(t.TempDir(), "radar.html")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-predictions", path, "-all", "-select", "Edema", "-radar", radar}, &out))
	assert.Contains(t, out.String(), "Mass")
	assert.Contains(t, out.String(), "See less")
	assert.Contains(t, out.String(), "Heatmap: Edema")

	html, err := os.ReadFile(radar)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Pneumothorax")
}

func TestRunUnknownSelection(t *testing.T) {
	path := writeFile(t, "predictions.json", []byte(predictions))
	err := run(context.Background(), []string{"-predictions", path, "-select", "Fracture"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrInvalidSelection))
}

func TestRunRequiresOneInput(t *testing.T) {
	assert.Error(t, run(context.Background(), nil, &bytes.Buffer{}))
	assert.Error(t, run(context.Background(), []string{"-image", "a.png", "-predictions", "b.json"}, &bytes.Buffer{}))
}

func TestRunFromImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(predictions))
	}))
	defer srv.Close()

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, imaging.New(32, 32, color.Gray{Y: 90})))
	path := writeFile(t, "xray.png", img.Bytes())

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-image", path, "-inference-url", srv.URL}, &out))
	assert.Contains(t, out.String(), "Heatmap: Cardiomegaly")
}

func TestRunInferenceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, imaging.New(32, 32, color.Gray{Y: 90})))
	path := writeFile(t, "xray.png", img.Bytes())

	err := run(context.Background(), []string{"-image", path, "-inference-url", srv.URL}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, analysis.IsFetchFailed(err))
}
