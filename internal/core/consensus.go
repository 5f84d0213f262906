// ABOUTME: Consensus voting over repeated samples of a noisy text oracle
// ABOUTME: A label wins once it collects threshold agreeing votes
package core

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Policy bounds one consensus run
type Policy struct {
	Threshold   int
	MaxAttempts int
}

// DefaultPolicy requires two agreeing votes within five samples
func DefaultPolicy() Policy {
	return Policy{Threshold: 2, MaxAttempts: 5}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.Threshold <= 0 {
		p.Threshold = 1
	}
	return p
}

// ResolveBySampling calls sample until one validated answer reaches the
// policy threshold. Samples rejected by validate or failing with an error
// are discarded and sampling continues as-is.
//
// ok is false when no answer reached the threshold within MaxAttempts.
// An error is returned only when ctx ends or every attempt failed.
func ResolveBySampling[T comparable](
	ctx context.Context,
	policy Policy,
	sample func(ctx context.Context, attempt int) (string, error),
	validate func(raw string) (T, bool),
) (T, bool, error) {
	var zero T
	policy = policy.normalized()
	votes := make(map[T]int)

	var lastErr error
	failures := 0
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}

		raw, err := sample(ctx, attempt)
		if err != nil {
			lastErr = err
			failures++
			continue
		}

		label, valid := validate(raw)
		if !valid {
			continue
		}
		votes[label]++
		if votes[label] >= policy.Threshold {
			return label, true, nil
		}
	}

	if failures == policy.MaxAttempts {
		return zero, false, fmt.Errorf("all %d samples failed: %w", failures, lastErr)
	}
	return zero, false, nil
}

// SingleLabel returns a validator accepting responses that mention exactly
// one distinct label from labels. Matching is case-insensitive and on whole words.
func SingleLabel(labels []string) func(string) (string, bool) {
	valid := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		valid[strings.ToLower(l)] = struct{}{}
	}

	return func(raw string) (string, bool) {
		words := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})

		found := ""
		for _, w := range words {
			if _, ok := valid[w]; !ok || w == found {
				continue
			}
			if found != "" {
				return "", false
			}
			found = w
		}
		return found, found != ""
	}
}
