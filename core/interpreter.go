package listopad

import (
	"fmt"
	"io"
	"log"
	"os"
)

// DebugOnErrorVar names the global Boolean that hosts consult to decide
// whether to show full error detail.
const DebugOnErrorVar = "*debug-on-exception*"

// Interpreter owns the shared top-level environment. It is not safe for
// concurrent use.
type Interpreter struct {
	eval *Evaluator
	env  *Env
}

type Option func(*Interpreter)

// WithOutput redirects print. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.eval.Out = w }
}

func WithLogger(l *log.Logger) Option {
	return func(in *Interpreter) { in.eval.Logger = l }
}

// WithDebugger attaches the hook that the debug primitive calls.
func WithDebugger(fn func(env *Env)) Option {
	return func(in *Interpreter) { in.eval.Debugger = fn }
}

// New installs the primitives into a fresh global frame and runs the
// bootstrap prelude.
func New(opts ...Option) (*Interpreter, error) {
	in := &Interpreter{
		eval: &Evaluator{Out: os.Stdout, Logger: log.Default()},
		env:  NewEnv(),
	}
	for _, opt := range opts {
		opt(in)
	}
	for name, val := range Builtins() {
		in.env.DefineGlobal(name, val)
	}
	in.env.DefineGlobal(DebugOnErrorVar, BoolVal(false))

	if _, err := in.ReadAndEvaluate(prelude); err != nil {
		return nil, fmt.Errorf("prelude: %w", err)
	}
	return in, nil
}

// Env returns the shared top-level environment.
func (in *Interpreter) Env() *Env {
	return in.env
}

func (in *Interpreter) Evaluate(expr Value, env *Env) (Value, error) {
	return in.eval.Eval(expr, env)
}

// ReadAndEvaluate reads exactly one expression from text and evaluates it
// in the top-level environment.
func (in *Interpreter) ReadAndEvaluate(text string) (Value, error) {
	expr, err := ReadFromString(text)
	if err != nil {
		return Value{}, err
	}
	return in.Evaluate(expr, in.env)
}

// EvalAll evaluates every top-level form of a program in order and returns
// the value of the last one (Nil for an empty program).
func (in *Interpreter) EvalAll(text string) (Value, error) {
	exprs, err := ReadAll(text)
	if err != nil {
		return Value{}, err
	}
	result := NilVal()
	for _, expr := range exprs {
		result, err = in.Evaluate(expr, in.env)
		if err != nil {
			return Value{}, err
		}
	}
	return result, nil
}

// DebugOnError reports the current value of *debug-on-exception*.
func (in *Interpreter) DebugOnError() bool {
	v, err := in.env.Lookup(DebugOnErrorVar)
	return err == nil && v.Kind == KindBool && v.Bool
}

// SetDebugOnError rebinds *debug-on-exception* in the global frame.
func (in *Interpreter) SetDebugOnError(on bool) {
	in.env.DefineGlobal(DebugOnErrorVar, BoolVal(on))
}
