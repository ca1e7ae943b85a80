// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package reembed

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy describes how a failing operation is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failure. It doubles on every
	// further failure.
	BaseDelay time.Duration
	// MaxDelay caps the wait between attempts. Zero means no cap.
	MaxDelay time.Duration
}

// delay returns the wait before attempt n+1, counting attempts from 1.
func (p RetryPolicy) delay(n int) time.Duration {
	d := p.BaseDelay << (n - 1)
	if d < p.BaseDelay || (p.MaxDelay > 0 && d > p.MaxDelay) {
		return p.MaxDelay
	}
	return d
}

// Do runs operation until it succeeds, the attempts are used up or ctx ends.
// The error of the last attempt is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, operation func() error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = operation(); lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		slog.Debug("operation failed", "attempt", attempt, "maxAttempts", p.MaxAttempts, "err", lastErr)

		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
