package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type severity int

const (
	severityInfo severity = iota
	severityOK
	severityWarn
	severityError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func (s severity) label() string {
	switch s {
	case severityOK:
		return "OK"
	case severityWarn:
		return "WARN"
	case severityError:
		return "ERROR"
	}
	return "INFO"
}

func (s severity) color() string {
	switch s {
	case severityOK:
		return ansiGreen
	case severityWarn:
		return ansiYellow
	case severityError:
		return ansiRed
	}
	return ansiBlue
}

// printer writes status lines, colouring them only on terminals.
type printer struct {
	out      io.Writer
	colorize bool
}

func newPrinter(out io.Writer) printer {
	return printer{out: out, colorize: shouldColorize(out)}
}

func (p printer) status(s severity, format string, args ...any) {
	line := fmt.Sprintf("[%s] %s", s.label(), fmt.Sprintf(format, args...))
	if p.colorize {
		line = s.color() + line + ansiReset
	}
	fmt.Fprintln(p.out, line)
}

func (p printer) println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
