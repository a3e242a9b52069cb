package biometric

import (
	"context"
	"errors"
	"fmt"
)

// ErrSampleRequired is returned by scoring verifiers when no live sample
// was captured.
var ErrSampleRequired = errors.New("fingerprint sample required")

// Decision is the verdict of a Verifier.
type Decision int

const (
	// Bypassed means no scoring took place and the sample is accepted.
	Bypassed Decision = iota
	// Verified means the score reached the threshold.
	Verified
	// Rejected means the score fell short of the threshold.
	Rejected
)

func (d Decision) String() string {
	switch d {
	case Bypassed:
		return "bypassed"
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// MarshalText encodes the decision by name.
func (d Decision) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Outcome is the result of checking a captured sample against a stored template.
type Outcome struct {
	Decision   Decision `json:"decision"`
	Score      float64  `json:"score"`
	Threshold  float64  `json:"threshold"`
	Confidence string   `json:"confidence,omitempty"`
}

// Accepted reports whether the outcome lets a mark proceed.
func (o Outcome) Accepted() bool {
	return o.Decision == Bypassed || o.Decision == Verified
}

// Verifier checks a sample against a stored template. Implementations must be
// safe for concurrent use.
type Verifier interface {
	Verify(ctx context.Context, sample string, stored []byte) (Outcome, error)
}

// Bypass accepts every sample without scoring.
type Bypass struct{}

// Verify always returns a Bypassed outcome.
func (Bypass) Verify(context.Context, string, []byte) (Outcome, error) {
	return Outcome{Decision: Bypassed}, nil
}

// Judge turns a raw score into an outcome: Verified when score >= threshold.
func Judge(score, threshold float64) Outcome {
	o := Outcome{Score: score, Threshold: threshold, Confidence: ConfidenceLevel(score)}
	if score >= threshold {
		o.Decision = Verified
	} else {
		o.Decision = Rejected
	}
	return o
}

// ConfidenceLevel buckets a matcher score the way the scoring service reports it.
func ConfidenceLevel(score float64) string {
	switch {
	case score > 50:
		return "high"
	case score > 30:
		return "medium"
	default:
		return "low"
	}
}
