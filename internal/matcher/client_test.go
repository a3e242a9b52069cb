package matcher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioattend/internal/biometric"
)

func newScorer(t *testing.T, score, threshold float64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/verify/fingerprint", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["sample"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": "Missing fingerprint data", "match_score": 0})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":           "success",
			"match_score":      score,
			"threshold":        threshold,
			"match_result":     score > threshold,
			"confidence_level": biometric.ConfidenceLevel(score),
			"stored_echo":      body["stored"],
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScore(t *testing.T) {
	srv := newScorer(t, 42.5, 20)
	c := New(srv.URL, false)

	res, err := c.Score(context.Background(), "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString([]byte("s")), []byte("stored"))
	require.NoError(t, err)
	assert.Equal(t, 42.5, res.MatchScore)
	assert.Equal(t, 20.0, res.Threshold)
	assert.True(t, res.MatchResult)
	assert.Equal(t, "medium", res.ConfidenceLevel)
}

func TestScoreRequiresSample(t *testing.T) {
	c := New("http://127.0.0.1:1", false)
	_, err := c.Score(context.Background(), "", []byte("stored"))
	assert.ErrorIs(t, err, biometric.ErrSampleRequired)
	_, err = c.Score(context.Background(), " \n\t", []byte("stored"))
	assert.ErrorIs(t, err, biometric.ErrSampleRequired)
}

func TestScoreSendsCanonicalSample(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		got = body["sample"]
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "match_score": 50, "threshold": 15})
	}))
	defer srv.Close()

	raw := []byte{0xfb, 0xff, 0xbf, 0x01}
	urlSafe := "data:image/png;base64," + base64.RawURLEncoding.EncodeToString(raw) + "\n"
	_, err := New(srv.URL, false).Score(context.Background(), urlSafe, []byte("stored"))
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), got)
}

func TestScoreServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, false).Score(context.Background(), "QUJD", []byte("x"))
	assert.ErrorContains(t, err, "500")
}

func TestVerifierUsesReportedThreshold(t *testing.T) {
	srv := newScorer(t, 12, 15)
	v := NewVerifier(New(srv.URL, false), 0)

	out, err := v.Verify(context.Background(), "QUJD", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, biometric.Rejected, out.Decision)
	assert.Equal(t, 15.0, out.Threshold)
}

func TestVerifierConfiguredThresholdWins(t *testing.T) {
	srv := newScorer(t, 12, 15)
	v := NewVerifier(New(srv.URL, false), 10)

	out, err := v.Verify(context.Background(), "QUJD", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, biometric.Verified, out.Decision)
	assert.Equal(t, 12.0, out.Score)
}

func TestSkipSelectsBypass(t *testing.T) {
	v := NewVerifier(New("http://unused", true), 0)
	_, ok := v.(biometric.Bypass)
	assert.True(t, ok)
	assert.NoError(t, New("http://unused", true).Health(context.Background()))
}

func TestHealth(t *testing.T) {
	srv := newScorer(t, 0, 0)
	assert.NoError(t, New(srv.URL, false).Health(context.Background()))
}
