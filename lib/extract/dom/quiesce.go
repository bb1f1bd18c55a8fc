package dom

import (
	"context"
	"time"
)

// waitStable repeatedly samples a count at a fixed interval and
// returns once two consecutive samples are equal, or once maxSamples
// samples have been taken. A count that never stabilizes still
// returns; the caller gets the last observed value.
func waitStable(ctx context.Context, sample func() (int, error), interval time.Duration, maxSamples int) (int, error) {
	last := -1
	for i := 0; i < maxSamples; i++ {
		count, err := sample()
		if err != nil {
			return 0, err
		}
		if count == last {
			return count, nil
		}
		last = count

		if i == maxSamples-1 {
			break
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}
	return last, nil
}
