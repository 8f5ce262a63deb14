package internal

import (
	"math/rand"
	"time"
)

const int64Max = 1<<63 - 1

// GetBackoffTime returns a randomized exponential backoff: a uniform
// multiple of slotTime out of [0, 2^retries), capped at maximum.
func GetBackoffTime(retries int64, slotTime time.Duration, maximum time.Duration) (backoff time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			backoff = maximum
		}
	}()

	if slotTime <= 0 || retries <= 0 {
		return 0
	}

	slots := uint64(1) << retries
	if slots > int64Max || slots == 0 {
		return maximum
	}
	n := rand.Int63n(int64(slots))

	// n*slotTime can overflow a Duration long before it exceeds maximum.
	if uint64(slotTime.Nanoseconds())*uint64(n) > int64Max {
		return maximum
	}

	backoff = time.Duration(n) * slotTime
	if backoff > maximum {
		backoff = maximum
	}
	return backoff
}

// SleepBackedOff sleeps for GetBackoffTime(retries, slotTime, maximum).
func SleepBackedOff(retries int64, slotTime time.Duration, maximum time.Duration) {
	time.Sleep(GetBackoffTime(retries, slotTime, maximum))
}
