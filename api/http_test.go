package main

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernhard/radiology-playground/analysis"
	"github.com/bbernhard/radiology-playground/datastructures"
)

func testPostAnalysis(t *testing.T, baseUrl string, image []byte) string {
	client := resty.New()
	resp, err := client.R().
		SetFileReader("image", "xray.png", bytes.NewReader(image)).
		Post(baseUrl + "/v1/analysis")

	require.NoError(t, err)
	require.Equal(t, 202, resp.StatusCode()) //analysis happens asynchronously

	location := resp.Header().Get("Location")
	require.NotEmpty(t, location)
	return location
}

func testGetAnalysis(t *testing.T, baseUrl string, id string) analysis.Presentation {
	var res analysis.Presentation

	client := resty.New()
	resp, err := client.R().
		SetResult(&res).
		Get(baseUrl + "/v1/analysis/" + id)

	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode())
	return res
}

func testSelect(t *testing.T, baseUrl string, id string, label string) int {
	client := resty.New()
	resp, err := client.R().
		SetBody(datastructures.SelectRequest{Label: label}).
		Post(baseUrl + "/v1/analysis/" + id + "/select")

	require.NoError(t, err)
	return resp.StatusCode()
}

func TestAnalysisOverHttp(t *testing.T) {
	env := newTestEnv(t, false)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	id := testPostAnalysis(t, srv.URL, []byte("xray"))
	assert.Equal(t, analysis.StateLoading, testGetAnalysis(t, srv.URL, id).State)

	env.work(abcResponse())

	res := testGetAnalysis(t, srv.URL, id)
	require.Equal(t, analysis.StateReady, res.State)
	assert.Equal(t, "A", res.View.ActiveLabel)
	assert.Equal(t, analysis.Severe, res.View.Rows[0].Tier)
	assert.Equal(t, "red", res.View.Rows[0].Color)

	assert.Equal(t, 200, testSelect(t, srv.URL, id, "B"))
	res = testGetAnalysis(t, srv.URL, id)
	assert.Equal(t, "heatmap-B", res.View.ActiveHeatmap)
	assert.Equal(t, analysis.Moderate, res.View.Rows[2].Tier)

	assert.Equal(t, 409, testSelect(t, srv.URL, id, "Z"))
}
