package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// RetryFrom selects where a rate-limited file resumes.
type RetryFrom int

const (
	// RetryFromParse re-reads the document before extracting again.
	RetryFromParse RetryFrom = iota
	// RetryFromExtract reuses the text from the first parse.
	RetryFromExtract
)

func (r RetryFrom) String() string {
	switch r {
	case RetryFromExtract:
		return "extract"
	default:
		return "parse"
	}
}

// ParseRetryFrom accepts "parse" or "extract".
func ParseRetryFrom(s string) (RetryFrom, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "parse":
		return RetryFromParse, nil
	case "extract":
		return RetryFromExtract, nil
	default:
		return RetryFromParse, fmt.Errorf("unknown retry strategy %q (want parse or extract)", s)
	}
}

// RetryPolicy bounds how rate-limited extraction calls are repeated.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	From       RetryFrom
}

// DefaultRetryPolicy allows two retries, waiting 2s and then 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: 2 * time.Second, From: RetryFromParse}
}

// Delay is the wait before retry number attempt+1: (attempt+1) * BaseDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(attempt+1) * p.BaseDelay
}

// ShouldRetry reports whether another attempt is allowed after attempt failed.
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxRetries
}
