package listopad

import (
	"fmt"
	"io"
	"log"
	"strconv"
)

// Evaluator evaluates expressions. It holds only host plumbing; all
// language state lives in the Env passed to Eval.
type Evaluator struct {
	Out      io.Writer      // destination of print
	Logger   *log.Logger    // diagnostics from natives such as debug
	Debugger func(env *Env) // called by debug; nil means no debugger attached
}

// Eval applies the evaluation rule to v in env. Recursion depth follows the
// nesting depth of v; there is no tail-call elimination.
func (e *Evaluator) Eval(v Value, env *Env) (Value, error) {
	switch v.Kind {
	case KindNil, KindInt, KindFloat, KindString, KindBool, KindClosure, KindNative:
		return v, nil
	case KindSymbol:
		return env.Lookup(v.Str)
	case KindPair:
		return e.evalPair(v.Pair, env)
	default:
		return Value{}, fmt.Errorf("unknown value kind: %d", v.Kind)
	}
}

func (e *Evaluator) evalPair(p *Pair, env *Env) (Value, error) {
	fn, err := e.resolveCallable(p.First, env)
	if err != nil {
		return Value{}, err
	}
	switch fn.Kind {
	case KindNative:
		return fn.Native.Fn(e, p.Rest, env)
	case KindClosure:
		args, err := e.evalArgs("lambda", p.Rest, env)
		if err != nil {
			return Value{}, err
		}
		return e.callClosure(fn.Closure, args)
	default:
		return Value{}, &IllegalCallError{Value: fn}
	}
}

// resolveCallable turns the head of a call form into the value to invoke.
func (e *Evaluator) resolveCallable(head Value, env *Env) (Value, error) {
	switch head.Kind {
	case KindPair:
		return e.Eval(head, env)
	case KindSymbol:
		return env.Lookup(head.Str)
	case KindClosure, KindNative:
		return head, nil
	default:
		return Value{}, &IllegalCallError{Value: head}
	}
}

// evalArgs evaluates a proper argument list left to right in env.
func (e *Evaluator) evalArgs(op string, args Value, env *Env) ([]Value, error) {
	var vals []Value
	tail, err := args.Each(func(arg Value) error {
		val, err := e.Eval(arg, env)
		if err != nil {
			return err
		}
		vals = append(vals, val)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !tail.IsNil() {
		return nil, typeErrorf(op, "argument list must be a proper list, got dotted tail %s", tail.String())
	}
	return vals, nil
}

// callClosure binds already-evaluated args in a new frame on top of the
// closure's captured environment. The frame is popped on every exit path.
func (e *Evaluator) callClosure(c *Closure, args []Value) (Value, error) {
	if len(args) != len(c.Params) {
		return Value{}, arityError("lambda", strconv.Itoa(len(c.Params)), len(args))
	}

	env := c.Env.Snapshot()
	env.PushFrame()
	defer env.PopFrame()

	for i, param := range c.Params {
		env.Define(param, args[i])
	}

	result := NilVal()
	for _, form := range c.Body {
		var err error
		result, err = e.Eval(form, env)
		if err != nil {
			return Value{}, err
		}
	}
	return result, nil
}

// Apply invokes fn with arguments that are already values. A native sees
// each argument wrapped in a quote form so that it evaluates to itself.
// quote itself returns its argument as is.
func (e *Evaluator) Apply(fn Value, args []Value, env *Env) (Value, error) {
	switch fn.Kind {
	case KindClosure:
		return e.callClosure(fn.Closure, args)
	case KindNative:
		if fn.Native == quoteForm.Native {
			if len(args) != 1 {
				return Value{}, arityError("quote", "1", len(args))
			}
			return args[0], nil
		}
		quoted := make([]Value, len(args))
		for i, a := range args {
			quoted[i] = ListVal(quoteForm, a)
		}
		return fn.Native.Fn(e, ListVal(quoted...), env)
	default:
		return Value{}, &IllegalCallError{Value: fn}
	}
}

func (e *Evaluator) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
