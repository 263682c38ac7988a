package runner

// Handle is the caller-facing control surface of one run. It is valid for
// exactly that run and becomes inert once the run completed.
type Handle struct {
	kill func()
	done <-chan struct{}
}

// Join blocks until every worker has produced its terminal message. The
// output channel must be drained concurrently, or the run cannot make
// progress.
func (h *Handle) Join() {
	<-h.done
}

// Done returns a channel that is closed once the run completed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Kill signals cancellation to all workers, best effort. It is idempotent
// and safe to call concurrently, repeatedly, and after the run completed.
func (h *Handle) Kill() {
	h.kill()
}
