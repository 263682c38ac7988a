// Package console renders the output message feed of one run to a
// terminal: colorized name prefixes, optional stream flags, and faithful
// carriage-return passthrough for live-updating output.
package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/runmux/runmux/runner"
	"go.uber.org/zap"
)

// Options controls presentation. It is derived once per run and immutable
// afterwards.
type Options struct {
	// Verbose also prints SYSTEM lines for process start and exit.
	Verbose bool

	// ShowStreamFlags annotates each line with the stream it came from:
	// (o) for stdout, (e) for stderr.
	ShowStreamFlags bool
}

// Consumer renders the ordered output message feed of one run. It owns all
// presentation; the feed itself is consumed unchanged, exactly once.
type Consumer struct {
	w           io.Writer
	styles      map[string]lipgloss.Style
	system      lipgloss.Style
	numCommands int
	opts        Options
	started     map[string]bool
	exitCode    int
	log         *zap.Logger
}

// NewConsumer builds a consumer for the given worker names and their color
// assignment (see Assign).
func NewConsumer(
	w io.Writer,
	names []string,
	colors map[string]Color,
	opts Options,
	log *zap.Logger,
) *Consumer {
	styles := make(map[string]lipgloss.Style, len(colors))
	for name, color := range colors {
		styles[name] = lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	}

	return &Consumer{
		w:           w,
		styles:      styles,
		system:      lipgloss.NewStyle().Bold(true),
		numCommands: len(names),
		opts:        opts,
		started:     make(map[string]bool, len(names)),
		log:         log,
	}
}

// Run drains the feed until the runner closes it, rendering every message.
// A closed feed means normal run completion.
func (c *Consumer) Run(feed <-chan runner.OutputMessage) {
	for msg := range feed {
		c.render(msg)
	}
}

// ExitCode returns the first failing worker's exit code, 1 if a worker
// died without one, and 0 otherwise. Meaningful once Run returned.
func (c *Consumer) ExitCode() int {
	return c.exitCode
}

func (c *Consumer) render(msg runner.OutputMessage) {
	switch payload := msg.Payload.(type) {
	case runner.Started:
		c.started[msg.Name] = true
		if c.opts.Verbose {
			c.systemLine(fmt.Sprintf("SYSTEM: starting process %s", msg.Name))
		}
	case runner.Stdout:
		c.chunkLine(msg.Name, "(o)", payload.Ending, payload.Data)
	case runner.Stderr:
		c.chunkLine(msg.Name, "(e)", payload.Ending, payload.Data)
	case runner.Finished:
		c.recordExit(payload.ExitCode)
		if !c.opts.Verbose {
			return
		}
		if payload.ExitCode != nil {
			c.systemLine(fmt.Sprintf("SYSTEM: process %s exited with status %d", msg.Name, *payload.ExitCode))
		} else {
			c.systemLine(fmt.Sprintf("SYSTEM: process %s exited without exit status", msg.Name))
		}
	case runner.WorkerError:
		// an error before the process ever started is that worker's
		// terminal message and counts as a failure
		if !c.started[msg.Name] {
			c.recordExit(nil)
		}
		c.systemLine(fmt.Sprintf("SYSTEM (e): error with process %s: %v", msg.Name, payload.Err))
	}
}

func (c *Consumer) chunkLine(name, flag string, ending runner.LineEnding, data []byte) {
	prefix := name
	if c.opts.ShowStreamFlags {
		prefix = name + " " + flag
	}

	style, ok := c.styles[name]
	if !ok {
		c.log.Warn("no color assigned", zap.String("name", name))
		style = c.system
	}

	// a bare carriage return is passed through only when a single command
	// runs; with several, in-place updates would overwrite other workers'
	// lines
	terminator := byte('\n')
	if c.numCommands == 1 && ending == runner.CarriageReturn {
		terminator = '\r'
	}

	fmt.Fprintf(c.w, "%s %s%c", style.Render(prefix+":"), data, terminator)
}

func (c *Consumer) systemLine(line string) {
	fmt.Fprintf(c.w, "%s\n", c.system.Render(line))
}

func (c *Consumer) recordExit(code *int) {
	if c.exitCode != 0 {
		return
	}

	if code == nil {
		c.exitCode = 1
		return
	}

	c.exitCode = *code
}
