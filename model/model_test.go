package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var names = []string{"a", "b", "c"}

func writeArtifact(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLogistic_PredictProba(t *testing.T) {
	m := &Logistic{Features: names, Coefficients: []float64{1, -1, 0}, Intercept: 0}

	p, err := m.PredictProba(context.Background(), []float64{0, 0, 5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p.Leave, 1e-9)
	assert.InDelta(t, 0.5, p.Stay, 1e-9)

	p, err = m.PredictProba(context.Background(), []float64{3, 0, 0})
	require.NoError(t, err)
	assert.Greater(t, p.Leave, 0.9)
	assert.InDelta(t, 1.0, p.Stay+p.Leave, 1e-12)

	_, err = m.PredictProba(context.Background(), []float64{1})
	require.Error(t, err)
}

func TestLoad_Logistic(t *testing.T) {
	path := writeArtifact(t, "kind: logistic\nfeatures: [a, b, c]\ncoefficients: [0.5, 0.1, -0.2]\nintercept: -1\n")

	c, err := Load(path, names)
	require.NoError(t, err)
	require.IsType(t, &Logistic{}, c)
	assert.Equal(t, -1.0, c.(*Logistic).Intercept)
}

func TestLoad_RejectsBadArtifacts(t *testing.T) {
	cases := map[string]string{
		"order":   "kind: logistic\nfeatures: [c, b, a]\ncoefficients: [1, 1, 1]\n",
		"count":   "kind: logistic\nfeatures: [a, b, c]\ncoefficients: [1, 1]\n",
		"kind":    "kind: forest\n",
		"yaml":    "kind: [\n",
		"url":     "kind: remote\nendpoint: not a url\n",
		"timeout": "kind: remote\nendpoint: http://localhost:1/predict\ntimeout: soon\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeArtifact(t, body), names)
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), names)
	require.Error(t, err)
}

func TestRemote_PredictProba(t *testing.T) {
	var got scoreRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"probabilities": [[0.55, 0.45]]}`))
	}))
	defer srv.Close()

	path := writeArtifact(t, "kind: remote\nendpoint: "+srv.URL+"\ntimeout: 2s\n")
	c, err := Load(path, names)
	require.NoError(t, err)

	p, err := c.PredictProba(context.Background(), []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, Probabilities{Stay: 0.55, Leave: 0.45}, p)
	assert.Equal(t, [][]float64{{1, 2, 3}}, got.Instances)
}

func TestRemote_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		},
		"malformed": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"probabilities":`))
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"probabilities": []}`))
		},
		"out of range": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"probabilities": [[1.4, -0.4]]}`))
		},
		"service error": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error": "bad input"}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			r, err := NewRemote(srv.URL)
			require.NoError(t, err)
			_, err = r.PredictProba(context.Background(), []float64{1})
			require.Error(t, err)
		})
	}
}

func TestRemote_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"probabilities": [[0.5, 0.5]]}`))
	}))
	defer srv.Close()

	r, err := NewRemote(srv.URL, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	_, err = r.PredictProba(context.Background(), []float64{1})
	require.Error(t, err)
}

func TestRemote_OptionOrder(t *testing.T) {
	custom := &http.Client{Timeout: time.Minute}

	r, err := NewRemote("http://scoring.local/predict", WithTimeout(3*time.Second), WithHTTPClient(custom))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, r.client.Timeout, "timeout survives a later client option")
	assert.Equal(t, time.Minute, custom.Timeout, "caller's client is not mutated")

	r, err = NewRemote("http://scoring.local/predict", WithHTTPClient(nil), WithTimeout(time.Second))
	require.NoError(t, err)
	require.NotNil(t, r.client)
	assert.Equal(t, time.Second, r.client.Timeout)

	r, err = NewRemote("http://scoring.local/predict", WithHTTPClient(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultRemoteTimeout, r.client.Timeout)
}
