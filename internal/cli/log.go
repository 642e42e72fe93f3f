// Package cli implements the syncarch command-line interface.
//
// The CLI is a diagnostic harness around package pipeline: it imports a
// netlist fixture, runs the synthesis passes and prints or writes what they
// produced. It is built using cobra and logs via charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - synth: Run every pass and summarize the synthesized elements
//   - check: Run the consistency checker and island checks on a fixture
//   - dot: Print the Graphviz diagram of the synthesized elements
//   - simplify: Run sync simplification and export the rewritten fixture
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which
// includes every rewrite, every rejected merge and the time spent in each
// pass. Loggers are passed through context.Context.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/syncarch/pkg/pipeline"
)

// newLogger creates the CLI logger. Timestamps use "15:04:05.00" so pass
// timings of a few milliseconds stay readable.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// fixtureLogger tags every line with the fixture being processed.
func fixtureLogger(l *log.Logger, path string) *log.Logger {
	return l.With("fixture", filepath.Base(path))
}

// logPasses reports the duration of every pass that ran, in pass order.
func logPasses(l *log.Logger, s pipeline.Stats) {
	for _, pass := range pipeline.Passes {
		d, ok := s.Durations[pass]
		if !ok {
			continue
		}
		l.Debug("pass finished", "pass", pass, "took", d.Round(time.Microsecond))
	}
}

// progress measures one CLI step from creation to done.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Synthesized 3 elements (4ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext falls back to log.Default.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
