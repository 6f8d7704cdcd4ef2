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


package reindex

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryWithBackoff runs operation until it succeeds, maxAttempts is
// reached, or ctx is done. The delay before attempt n+1 is
// baseDelay * 2^(n-1). The error of the last attempt is returned.
func RetryWithBackoff(ctx context.Context, maxAttempts int, baseDelay time.Duration, operation func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	backoff := retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewExponential(max(baseDelay, time.Nanosecond)))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := operation(ctx); err != nil {
			slog.Debug("operation failed", "attempt", attempt, "maxAttempts", maxAttempts, "error", err)
			return retry.RetryableError(err)
		}
		if attempt > 1 {
			slog.Debug("operation succeeded after retry", "attempt", attempt)
		}
		return nil
	})
}
