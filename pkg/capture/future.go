package capture

import "context"

// packetFuture is one in-flight dispatch cycle running on a background
// goroutine. The stream schedules at most one per instance: a new future
// is created only after the previous one's result has been consumed, so
// no two dispatch cycles ever touch the session concurrently.
type packetFuture struct {
	result chan dispatchResult
}

// schedule starts one dispatch cycle. It fails with ErrScheduling when
// the handle has been closed; failure to schedule is fatal, not a
// per-cycle condition.
func schedule(h *Handle, cfg Config) (*packetFuture, error) {
	if h.closed.Load() {
		return nil, ErrScheduling
	}
	f := &packetFuture{result: make(chan dispatchResult, 1)}
	go func() {
		f.result <- runDispatch(h, cfg)
	}()
	return f, nil
}

// await blocks until the cycle resolves or ctx is done. On ctx
// cancellation the cycle keeps running and a later await can still
// collect its result.
func (f *packetFuture) await(ctx context.Context) (dispatchResult, error) {
	select {
	case <-ctx.Done():
		return dispatchResult{}, ctx.Err()
	case res := <-f.result:
		return res, nil
	}
}
