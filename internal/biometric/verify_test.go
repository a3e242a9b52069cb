package biometric

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBypassAcceptsEverything(t *testing.T) {
	out, err := Bypass{}.Verify(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, Bypassed, out.Decision)
	assert.True(t, out.Accepted())
}

func TestJudge(t *testing.T) {
	out := Judge(20, 15)
	assert.Equal(t, Verified, out.Decision)
	assert.True(t, out.Accepted())
	assert.Equal(t, "low", out.Confidence)

	out = Judge(15, 15)
	assert.Equal(t, Verified, out.Decision)

	out = Judge(14.9, 15)
	assert.Equal(t, Rejected, out.Decision)
	assert.False(t, out.Accepted())
}

func TestConfidenceLevel(t *testing.T) {
	cases := map[float64]string{
		0:    "low",
		30:   "low",
		30.5: "medium",
		50:   "medium",
		51:   "high",
	}
	for score, want := range cases {
		assert.Equal(t, want, ConfidenceLevel(score), "score %v", score)
	}
}

func TestOutcomeJSON(t *testing.T) {
	b, err := json.Marshal(Judge(10, 15))
	require.NoError(t, err)
	assert.JSONEq(t, `{"decision":"rejected","score":10,"threshold":15,"confidence":"low"}`, string(b))
}
