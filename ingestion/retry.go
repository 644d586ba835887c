// Copyright 2025 The cssm Authors
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


package ingestion

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/schema"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type batchState int

const (
	stateAttempting batchState = iota
	stateRetryWait
	stateSuccess
	stateFailed
)

func (s batchState) String() string {
	switch s {
	case stateAttempting:
		return "ATTEMPTING"
	case stateRetryWait:
		return "RETRY_WAIT"
	case stateSuccess:
		return "SUCCESS"
	case stateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// batchOutcome is the terminal result of writing one batch.
type batchOutcome struct {
	ids      []string
	attempts int
	kind     error
	err      error
}

// nextBackoff doubles current and caps it at limit.
func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit || next < current {
		return limit
	}
	return next
}

// writeBatch drives one batch through the retry state machine.
func (in *Ingestor) writeBatch(ctx context.Context, batchNo int, batch []schema.Document) batchOutcome {
	var out batchOutcome
	backoff := in.config.InitialBackoff
	state := stateAttempting

	for {
		switch state {
		case stateAttempting:
			out.attempts++
			if in.limiter != nil {
				if err := in.limiter.Wait(ctx); err != nil {
					out.kind, out.err = ErrPermanentFailure, err
					state = stateFailed
					continue
				}
			}

			ids, err := in.writer.AddDocuments(ctx, batch)
			switch {
			case err == nil:
				out.ids = ids
				state = stateSuccess
			case !IsRetryable(err):
				out.kind, out.err = ErrPermanentFailure, err
				state = stateFailed
			case out.attempts > in.config.MaxRetries:
				out.kind, out.err = ErrRetriesExhausted, err
				state = stateFailed
			default:
				out.err = err
				state = stateRetryWait
			}

		case stateRetryWait:
			in.logger.Warn("batch insert failed, retrying",
				"batch", batchNo,
				"attempt", out.attempts,
				"max_retries", in.config.MaxRetries,
				"backoff", backoff,
				"err", out.err)

			if err := in.sleep(ctx, backoff); err != nil {
				out.kind, out.err = ErrPermanentFailure, err
				state = stateFailed
				continue
			}
			backoff = nextBackoff(backoff, in.config.MaxBackoff)
			state = stateAttempting

		case stateSuccess:
			if out.attempts > 1 {
				in.logger.Debug("batch succeeded after retry", "batch", batchNo, "attempts", out.attempts)
			}
			out.err = nil
			return out

		case stateFailed:
			in.logger.Error("batch insert failed, aborting ingestion",
				"batch", batchNo,
				"attempts", out.attempts,
				"state", state,
				"err", out.err)
			return out
		}
	}
}
