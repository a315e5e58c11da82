package aio

import (
	"bytes"

	"awaitrt/internal/coro"
	"awaitrt/internal/outcome"
	"awaitrt/internal/pending"
)

// Reader awaits inbound chunks of a connected handle. Awaiting yields a view of
// the next chunk, valid until the following await, or the terminal read error
// (io.EOF at end of stream). The stream is paused while a chunk is unconsumed.
type Reader struct {
	tcp      *TCP
	chunk    []byte
	has      bool
	err      error // terminal, repeated on every later await
	startErr error // reported once
	reading  bool
	waiter   coro.Handle
}

func (r *Reader) start() error {
	if r.reading {
		return nil
	}
	t := r.tcp
	switch {
	case t.closed:
		return ErrClosed
	case t.stream == nil:
		return ErrNotConnected
	}
	if err := t.stream.ReadStart(r.onRead); err != nil {
		return err
	}
	r.reading = true
	return nil
}

func (r *Reader) onRead(data []byte, err error) {
	r.Stop()
	if err != nil {
		r.err = err
	} else {
		r.chunk, r.has = data, true
	}
	if w := r.waiter; w != nil {
		r.waiter = nil
		w.Resume()
	}
}

// Stop pauses reading. The next await resumes it.
func (r *Reader) Stop() {
	if !r.reading {
		return
	}
	r.reading = false
	if r.tcp.stream != nil {
		_ = r.tcp.stream.ReadStop() //nolint:errcheck
	}
}

// shut ends the reader for a closed handle. A suspended waiter resumes with
// ErrClosed, and so does every later await once buffered data is consumed.
func (r *Reader) shut() {
	r.Stop()
	if r.err == nil {
		r.err = ErrClosed
	}
	if w := r.waiter; w != nil {
		r.waiter = nil
		w.Resume()
	}
}

// Close stops reading and drops a chunk nobody awaited. A later await starts
// reading again.
func (r *Reader) Close() {
	r.Stop()
	r.chunk, r.has = nil, false
	r.waiter = nil
}

// Pending reports 1 when a chunk or error waits to be awaited.
func (r *Reader) Pending() int {
	if r.has || r.err != nil {
		return 1
	}
	return 0
}

// Ready starts or resumes reading when nothing is buffered.
func (r *Reader) Ready() bool {
	if r.has || r.err != nil || r.startErr != nil {
		return true
	}
	if err := r.start(); err != nil {
		r.startErr = err
		return true
	}
	return false
}

func (r *Reader) Suspend(h coro.Handle) { r.waiter = h }

// Detach stops delivery to a destroyed task.
func (r *Reader) Detach(h coro.Handle) {
	if r.waiter == h {
		r.waiter = nil
		r.Stop()
	}
}

func (r *Reader) Resume() outcome.Outcome[[]byte] {
	switch {
	case r.has:
		chunk := r.chunk
		r.chunk, r.has = nil, false
		return outcome.Of(chunk)
	case r.startErr != nil:
		err := r.startErr
		r.startErr = nil
		return outcome.Failed[[]byte](err)
	default:
		return outcome.Failed[[]byte](r.err)
	}
}

// Writer is a write in flight. It owns a copy of the bytes until the write
// completes, including when the awaiting task is gone by then.
type Writer struct {
	tcp  *TCP
	cell *pending.Cell[error]
	size int
}

func (w *Writer) start(b []byte) {
	w.cell = pending.New[error](envOf(w.tcp.r), "write")
	w.size = len(b)
	t := w.tcp
	switch {
	case t.closed:
		w.cell.Settle(ErrClosed)
		return
	case t.stream == nil:
		w.cell.Settle(ErrNotConnected)
		return
	}
	buf := bytes.Clone(b)
	cell := w.cell
	if err := t.stream.Write(buf, func(err error) { cell.Complete(err) }); err != nil {
		cell.Settle(err)
		return
	}
	cell.Arm(nil)
}

// Write re-arms the writer with new bytes once the previous write was awaited.
func (w *Writer) Write(b []byte) error {
	switch w.cell.State() {
	case pending.Armed, pending.Ready:
		return ErrBusy
	case pending.AbandonedPending, pending.AbandonedCancelled, pending.Freed:
		return ErrClosed
	}
	w.start(b)
	return nil
}

// Len returns the size of the current write.
func (w *Writer) Len() int { return w.size }

// Close gives the write up; it still completes on the reactor.
func (w *Writer) Close() { w.cell.Abandon() }

func (w *Writer) Ready() bool           { return w.cell.Ready() }
func (w *Writer) Suspend(h coro.Handle) { w.cell.Suspend(h) }
func (w *Writer) Detach(h coro.Handle)  { w.cell.Detach(h) }

func (w *Writer) Resume() outcome.Outcome[outcome.Void] {
	return outcome.From(outcome.Void{}, w.cell.Resume())
}
