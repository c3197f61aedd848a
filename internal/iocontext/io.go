// Package iocontext provides injectable I/O streams via context for testability.
package iocontext

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IO holds the input/output streams for commands.
type IO struct {
	Out    io.Writer // stdout
	ErrOut io.Writer // stderr
	In     io.Reader // stdin
}

// DefaultIO returns the standard IO streams.
func DefaultIO() *IO {
	return &IO{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
		In:     os.Stdin,
	}
}

// OutIsTerminal reports whether Out is an interactive terminal.
func (s *IO) OutIsTerminal() bool {
	return IsTerminal(s.Out)
}

// InIsTerminal reports whether In is an interactive terminal.
func (s *IO) InIsTerminal() bool {
	f, ok := s.In.(*os.File)
	return ok && isTerminalFd(f.Fd())
}

// IsTerminal reports whether w is a terminal. Buffers and pipes are not.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminalFd(f.Fd())
}

func isTerminalFd(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type ioKey struct{}

// WithIO adds IO streams to a context.
func WithIO(ctx context.Context, io *IO) context.Context {
	return context.WithValue(ctx, ioKey{}, io)
}

// GetIO retrieves IO streams from context, defaulting to standard streams.
func GetIO(ctx context.Context) *IO {
	if io, ok := ctx.Value(ioKey{}).(*IO); ok && io != nil {
		return io
	}
	return DefaultIO()
}
