package reactor

type idleHandle struct {
	loop   *Loop
	cb     func()
	active bool
	closed bool
}

// NewIdle creates a stopped idle handle.
func (l *Loop) NewIdle(cb func()) Idle {
	return &idleHandle{loop: l, cb: cb}
}

func (h *idleHandle) Start() error {
	if h.closed || h.loop.isClosed() {
		return ErrClosed
	}
	if h.active {
		return nil
	}
	h.active = true
	h.loop.idles = append(h.loop.idles, h)
	h.loop.active++
	return nil
}

func (h *idleHandle) Stop() error {
	if !h.active {
		return nil
	}
	h.active = false
	l := h.loop
	for i, other := range l.idles {
		if other == h {
			l.idles = append(l.idles[:i], l.idles[i+1:]...)
			break
		}
	}
	l.active--
	return nil
}

func (h *idleHandle) Close() {
	_ = h.Stop() //nolint:errcheck
	h.closed = true
}

func (l *Loop) activeIdles() int { return len(l.idles) }

// runIdle runs a snapshot of the started idle handles; handles stopped by an
// earlier callback in the same pass are skipped.
func (l *Loop) runIdle() {
	if len(l.idles) == 0 {
		return
	}
	snapshot := append([]*idleHandle(nil), l.idles...)
	for _, h := range snapshot {
		if !h.active {
			continue
		}
		l.stats.Callbacks.Add(1)
		h.cb()
	}
}
