package reactor

import (
	"context"
	"sync/atomic"
)

const (
	reqPending int32 = iota
	reqRunning
	reqDone
	reqCancelled
)

// request tracks one posted completion. Its state moves from pending (or running,
// for pool jobs) to done when the loop delivers it, or to cancelled when Cancel wins.
type request struct {
	state  atomic.Int32
	cancel context.CancelFunc
}

func newRequest(parent context.Context) (*request, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &request{cancel: cancel}, ctx
}

func (r *request) Cancel() bool {
	if r.state.CompareAndSwap(reqPending, reqCancelled) {
		r.cancel()
		return true
	}
	if r.state.Load() == reqRunning {
		r.cancel()
	}
	return false
}

func (r *request) start() bool { return r.state.CompareAndSwap(reqPending, reqRunning) }

// finish claims the right to run the callback.
func (r *request) finish() bool {
	for {
		s := r.state.Load()
		if s == reqDone || s == reqCancelled {
			return false
		}
		if r.state.CompareAndSwap(s, reqDone) {
			return true
		}
	}
}

// noCancel is the Request of operations the loop cannot intercept.
type noCancel struct{}

func (noCancel) Cancel() bool { return false }

// completion is an ingress entry for a request. Entries still queued when the
// loop closes are discarded rather than dropped, so resources they carry are freed.
type completion struct {
	req     *request
	deliver func()
	discard func()
}

func (c *completion) run(l *Loop) {
	l.active--
	c.req.cancel()
	if !c.req.finish() {
		c.drop()
		return
	}
	c.deliver()
}

func (c *completion) drop() {
	c.req.cancel()
	if c.discard != nil {
		c.discard()
	}
}

// complete posts the delivery of req. deliver runs on the loop unless the request
// was cancelled or the loop closed first; discard runs instead, on whichever
// goroutine learns that.
func (l *Loop) complete(req *request, deliver, discard func()) {
	c := &completion{req: req, deliver: deliver, discard: discard}
	if !l.enqueue(c) {
		c.drop()
	}
}
