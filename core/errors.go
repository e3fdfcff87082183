package listopad

import (
	"errors"
	"fmt"
	"strings"
)

// SyntaxError is returned by the reader. Line and Col are 1-based.
// Incomplete marks input that ended in the middle of a form, which an
// interactive host can treat as a request for more lines.
type SyntaxError struct {
	Line       int
	Col        int
	Msg        string
	Incomplete bool
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("unbound variable: %s", e.Name)
}

// IllegalCallError reports a non-callable value in head position.
type IllegalCallError struct {
	Value Value
}

func (e *IllegalCallError) Error() string {
	return fmt.Sprintf("illegal function call: %s is a %s", e.Value.String(), e.Value.KindName())
}

type TypeError struct {
	Op  string
	Msg string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// ArityError reports a wrong operand count. Want is a human-readable
// description such as "2" or "at least 1".
type ArityError struct {
	Op   string
	Want string
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: expected %s args, got %d", e.Op, e.Want, e.Got)
}

// ExitError is the exit primitive's request to terminate the process.
// It is not a failure; hosts decide whether to honour it.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit requested (code %d)", e.Code)
}

func typeErrorf(op, format string, args ...any) error {
	return &TypeError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

func arityError(op, want string, got int) error {
	return &ArityError{Op: op, Want: want, Got: got}
}

// IsIncomplete reports whether err is a syntax error caused by input that
// stopped inside an unfinished form.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se) && se.Incomplete
}

// WrapErrorWithSource renders a SyntaxError as a snippet of src with a caret
// under the offending column. Other errors are returned unchanged.
func WrapErrorWithSource(err error, src string) error {
	var se *SyntaxError
	if !errors.As(err, &se) {
		return err
	}
	return errors.New(caretSnippet(src, se.Line, se.Col, se.Msg))
}

func caretSnippet(src string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	if col < 1 {
		col = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SYNTAX ERROR at %d:%d: %s\n\n", line, col, msg)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, strings.TrimRight(lines[line-1], "\r"))
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
