// Package logging builds the root logr.Logger for the CLI.
//
// The logger is backed by zap through controller-runtime's helper: a
// console encoder when writing to a terminal, JSON lines otherwise.
package logging

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap/zapcore"
	ctrlzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Options configures the root logger.
type Options struct {
	// Verbose enables debug output (logr V(1)).
	Verbose bool
	// JSON forces JSON output even on a terminal.
	JSON bool
	// Out defaults to os.Stderr.
	Out io.Writer
}

// New returns the root logger for opts.
func New(opts Options) logr.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	return ctrlzap.New(
		ctrlzap.WriteTo(out),
		ctrlzap.UseDevMode(!opts.JSON && IsTerminal(out)),
		ctrlzap.Level(level),
	)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Writer adapts a logger to an io.Writer, one Info record per write.
// Library code that only accepts writers (the drain helper) logs through it.
type Writer struct {
	Log logr.Logger
	Msg string
}

// Write implements io.Writer.
func (w Writer) Write(p []byte) (int, error) {
	msg := w.Msg
	if msg == "" {
		msg = "output"
	}
	text := string(p)
	for len(text) > 0 && (text[len(text)-1] == '\n' || text[len(text)-1] == '\r') {
		text = text[:len(text)-1]
	}
	if text != "" {
		w.Log.Info(msg, "text", text)
	}
	return len(p), nil
}
