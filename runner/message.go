package runner

// LineEnding records which terminator produced a framed chunk. A carriage
// return signals in-place-updating output (progress bars and the like) and
// is never folded into a newline.
type LineEnding int

const (
	// Newline marks a chunk terminated by '\n' (or "\r\n"), as well as an
	// unterminated trailing chunk at end of stream.
	Newline LineEnding = iota

	// CarriageReturn marks a chunk terminated by a bare '\r'.
	CarriageReturn
)

func (e LineEnding) String() string {
	if e == CarriageReturn {
		return "carriage_return"
	}
	return "newline"
}

// OutputMessage is one event produced by a worker, tagged with the worker
// name it is attributed to.
type OutputMessage struct {
	Name    string
	Payload OutputPayload
}

// OutputPayload is one of Started, Stdout, Stderr, Finished or WorkerError.
type OutputPayload interface {
	isOutputPayload()
}

// Started is emitted exactly once, right after the process spawned.
type Started struct {
	PID int
}

// Stdout is one framed chunk of the process's standard output. The
// terminator byte is not part of Data.
type Stdout struct {
	Ending LineEnding
	Data   []byte
}

// Stderr is one framed chunk of the process's standard error.
type Stderr struct {
	Ending LineEnding
	Data   []byte
}

// Finished is the terminal message of a worker whose process exited.
// ExitCode is nil when the process died without an exit status, e.g. when
// it was killed by a signal.
type Finished struct {
	ExitCode *int
}

// WorkerError reports a worker failure. It is the terminal message when
// the process never spawned, and informational when draining a stream
// failed while the process keeps running.
type WorkerError struct {
	Err error
}

func (Started) isOutputPayload()     {}
func (Stdout) isOutputPayload()      {}
func (Stderr) isOutputPayload()      {}
func (Finished) isOutputPayload()    {}
func (WorkerError) isOutputPayload() {}
