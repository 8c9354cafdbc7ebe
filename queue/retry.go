/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package queue

import (
	"time"

	"github.com/scribd/Lucid-sub001/errors"
)

// RetryPolicy classifies outbound failures as retryable or final.
type RetryPolicy struct {
	// NetworkInterrupt retries connection-level failures.
	NetworkInterrupt bool
	// RequestTimeout retries timed-out requests.
	RequestTimeout bool
	// StatusCodes lists HTTP status codes that warrant a retry.
	StatusCodes []int

	// MaxAttempts bounds the total number of tries, including the first.
	MaxAttempts int
	// Backoff is the base delay between attempts; the delay grows
	// linearly with the attempt number.
	Backoff time.Duration
}

// DefaultRetryPolicy retries network interrupts and timeouts up to three
// attempts with a one second base backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		NetworkInterrupt: true,
		RequestTimeout:   true,
		MaxAttempts:      3,
		Backoff:          time.Second,
	}
}

// IsRetryable reports whether the policy allows another attempt after
// err.
func (p RetryPolicy) IsRetryable(err error) bool {
	apiErr, ok := errors.AsAPIError(err)
	if !ok {
		return false
	}

	switch apiErr.Kind {
	case errors.APIErrorNetwork:
		return p.NetworkInterrupt
	case errors.APIErrorTimeout:
		return p.RequestTimeout
	case errors.APIErrorStatus:
		for _, code := range p.StatusCodes {
			if apiErr.StatusCode == code {
				return true
			}
		}
	}
	return false
}
