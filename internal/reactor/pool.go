package reactor

import "context"

// QueueWork runs work on the pool, at most Config.PoolSize jobs at a time. A job
// cancelled while it waits for a worker never runs and after is never invoked.
// A job cancelled while running sees ctx done and after still runs.
func (l *Loop) QueueWork(work func(ctx context.Context), after func(error)) Request {
	req, ctx := newRequest(l.ctx)
	l.active++
	l.stats.WorkQueued.Add(1)
	l.poolJobs.Go(func() error {
		if err := l.poolSem.Acquire(ctx, 1); err != nil {
			l.complete(req, func() { after(err) }, nil)
			return nil
		}
		if req.start() {
			work(ctx)
			l.stats.WorkFinished.Add(1)
		}
		l.poolSem.Release(1)
		l.complete(req, func() { after(nil) }, nil)
		return nil
	})
	return req
}
