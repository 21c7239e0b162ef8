package lox

import "strings"

// CompileError aggregates every diagnostic the compiler reported
// before bailing out: a source can produce several error messages,
// and compile only returns this once its hadError flag is set. Its
// Error() joins them the way the CLI prints them: one per line.
type CompileError struct {
	Messages []string
}

func (e *CompileError) Error() string {
	return strings.Join(e.Messages, "\n")
}

// RuntimeError carries the formatted runtime message plus the
// rendered stack trace. The VM resets its own state after producing
// one, so the error itself is just the report.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, line := range e.Trace {
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}
