package scheduler

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

const (
	memoryPollInterval = 200 * time.Millisecond
	memoryWaitTimeout  = 30 * time.Second
)

// waitForMemory blocks while process heap usage sits above the ceiling,
// polling at a fixed interval. Halfway through the wait it hints the
// runtime to return memory to the OS. The wait is bounded: after the
// timeout the run proceeds regardless, so dispatch can never deadlock on
// a ceiling that is simply too low.
func waitForMemory(ctx context.Context, limitMB int) {
	if limitMB <= 0 {
		return
	}

	deadline := time.Now().Add(memoryWaitTimeout)
	hintAt := time.Now().Add(memoryWaitTimeout / 2)
	hinted := false

	for {
		if heapMB() < uint64(limitMB) {
			return
		}
		if time.Now().After(deadline) {
			zerolog.Ctx(ctx).Warn().
				Int("memory_limit_mb", limitMB).
				Msg("memory ceiling still exceeded after wait timeout, proceeding")
			return
		}
		if !hinted && time.Now().After(hintAt) {
			debug.FreeOSMemory()
			hinted = true
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(memoryPollInterval):
		}
	}
}

func heapMB() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc / (1 << 20)
}
