package listopad

import (
	"fmt"
	"os"
	"strings"
)

// quoteForm is the quote native itself. Apply puts it in head position so
// that a quoted argument cannot be broken by rebinding the symbol quote.
var quoteForm = NativeVal("quote", builtinQuote)

// Builtins returns the primitive operations, keyed by the global name they
// are installed under.
func Builtins() map[string]Value {
	natives := map[string]NativeFunc{
		// Arithmetic
		"+": builtinAdd,
		"-": builtinSub,
		"*": builtinMul,
		">": builtinGt,
		// Pairs and lists
		"car":    builtinCar,
		"cdr":    builtinCdr,
		"cons":   builtinCons,
		"list":   builtinList,
		"concat": builtinConcat,
		"atomp":  builtinAtomP,
		"mapcar": builtinMapcar,
		// Evaluation control
		"eval":   builtinEval,
		"begin":  builtinBegin,
		"apply":  builtinApply,
		"if":     builtinIf,
		"define": builtinDefine,
		"lambda": builtinLambda,
		// Logic
		"eq":  builtinEq,
		"and": builtinAnd,
		"or":  builtinOr,
		"not": builtinNot,
		// Host
		"print": builtinPrint,
		"exit":  builtinExit,
		"debug": builtinDebug,
	}
	result := make(map[string]Value, len(natives)+1)
	for name, fn := range natives {
		result[name] = NativeVal(name, fn)
	}
	result["quote"] = quoteForm
	return result
}

// --- Argument helpers ---

// operands flattens an unevaluated argument list.
func operands(op string, args Value) ([]Value, error) {
	elems, ok := ListToSlice(args)
	if !ok {
		return nil, typeErrorf(op, "argument list must be a proper list")
	}
	return elems, nil
}

func exactOperands(op string, args Value, n int) ([]Value, error) {
	elems, err := operands(op, args)
	if err != nil {
		return nil, err
	}
	if len(elems) != n {
		return nil, arityError(op, fmt.Sprint(n), len(elems))
	}
	return elems, nil
}

// evalExact evaluates exactly n arguments left to right.
func evalExact(ev *Evaluator, op string, args Value, env *Env, n int) ([]Value, error) {
	vals, err := ev.evalArgs(op, args, env)
	if err != nil {
		return nil, err
	}
	if len(vals) != n {
		return nil, arityError(op, fmt.Sprint(n), len(vals))
	}
	return vals, nil
}

func requireCallable(op string, v Value) error {
	if v.Kind != KindClosure && v.Kind != KindNative {
		return typeErrorf(op, "expected a function, got %s", v.KindName())
	}
	return nil
}

func requireList(op string, v Value) ([]Value, error) {
	if v.Kind != KindNil && v.Kind != KindPair {
		return nil, typeErrorf(op, "expected a list, got %s", v.KindName())
	}
	elems, ok := ListToSlice(v)
	if !ok {
		return nil, typeErrorf(op, "expected a proper list, got %s", v.String())
	}
	return elems, nil
}

// --- Arithmetic ---

func isNumber(v Value) bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

func asFloat(v Value) float32 {
	if v.Kind == KindInt {
		return float32(v.Int)
	}
	return v.Float
}

// fold left-folds numeric args, promoting to Float as soon as either side is one.
func fold(op string, vals []Value, intOp func(a, b int32) int32, floatOp func(a, b float32) float32) (Value, error) {
	if len(vals) == 0 {
		return Value{}, arityError(op, "at least 1", 0)
	}
	for _, v := range vals {
		if !isNumber(v) {
			return Value{}, typeErrorf(op, "expected number, got %s", v.KindName())
		}
	}
	acc := vals[0]
	for _, v := range vals[1:] {
		if acc.Kind == KindInt && v.Kind == KindInt {
			acc = IntVal(intOp(acc.Int, v.Int))
			continue
		}
		acc = FloatVal(floatOp(asFloat(acc), asFloat(v)))
	}
	return acc, nil
}

func builtinAdd(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := ev.evalArgs("+", args, env)
	if err != nil {
		return Value{}, err
	}
	return fold("+", vals,
		func(a, b int32) int32 { return a + b },
		func(a, b float32) float32 { return a + b })
}

func builtinSub(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := ev.evalArgs("-", args, env)
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 1 {
		switch vals[0].Kind {
		case KindInt:
			return IntVal(-vals[0].Int), nil
		case KindFloat:
			return FloatVal(-vals[0].Float), nil
		default:
			return Value{}, typeErrorf("-", "expected number, got %s", vals[0].KindName())
		}
	}
	return fold("-", vals,
		func(a, b int32) int32 { return a - b },
		func(a, b float32) float32 { return a - b })
}

func builtinMul(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := ev.evalArgs("*", args, env)
	if err != nil {
		return Value{}, err
	}
	return fold("*", vals,
		func(a, b int32) int32 { return a * b },
		func(a, b float32) float32 { return a * b })
}

func builtinGt(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := evalExact(ev, ">", args, env, 2)
	if err != nil {
		return Value{}, err
	}
	a, b := vals[0], vals[1]
	if !isNumber(a) || !isNumber(b) {
		return Value{}, typeErrorf(">", "expected numbers, got %s and %s", a.KindName(), b.KindName())
	}
	if a.Kind == KindInt && b.Kind == KindInt {
		return BoolVal(a.Int > b.Int), nil
	}
	return BoolVal(asFloat(a) > asFloat(b)), nil
}

// --- Pairs and lists ---

func builtinCar(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := evalExact(ev, "car", args, env, 1)
	if err != nil {
		return Value{}, err
	}
	if !vals[0].IsPair() {
		return Value{}, typeErrorf("car", "expected a pair, got %s", vals[0].KindName())
	}
	return vals[0].Pair.First, nil
}

func builtinCdr(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := evalExact(ev, "cdr", args, env, 1)
	if err != nil {
		return Value{}, err
	}
	if !vals[0].IsPair() {
		return Value{}, typeErrorf("cdr", "expected a pair, got %s", vals[0].KindName())
	}
	return vals[0].Pair.Rest, nil
}

func builtinCons(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := evalExact(ev, "cons", args, env, 2)
	if err != nil {
		return Value{}, err
	}
	return Cons(vals[0], vals[1]), nil
}

func builtinList(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := ev.evalArgs("list", args, env)
	if err != nil {
		return Value{}, err
	}
	return ListVal(vals...), nil
}

// builtinConcat copies the elements of every list argument into one new list.
func builtinConcat(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := ev.evalArgs("concat", args, env)
	if err != nil {
		return Value{}, err
	}
	var all []Value
	for _, v := range vals {
		elems, err := requireList("concat", v)
		if err != nil {
			return Value{}, err
		}
		all = append(all, elems...)
	}
	return ListVal(all...), nil
}

// builtinAtomP is false only for non-empty proper lists.
func builtinAtomP(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := evalExact(ev, "atomp", args, env, 1)
	if err != nil {
		return Value{}, err
	}
	v := vals[0]
	return BoolVal(!(v.IsPair() && v.IsList())), nil
}

func builtinMapcar(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := evalExact(ev, "mapcar", args, env, 2)
	if err != nil {
		return Value{}, err
	}
	if err := requireCallable("mapcar", vals[0]); err != nil {
		return Value{}, err
	}
	elems, err := requireList("mapcar", vals[1])
	if err != nil {
		return Value{}, err
	}
	results := make([]Value, len(elems))
	for i, elem := range elems {
		r, err := ev.Apply(vals[0], []Value{elem}, env)
		if err != nil {
			return Value{}, err
		}
		results[i] = r
	}
	return ListVal(results...), nil
}

// --- Evaluation control ---

func builtinQuote(ev *Evaluator, args Value, env *Env) (Value, error) {
	ops, err := exactOperands("quote", args, 1)
	if err != nil {
		return Value{}, err
	}
	return ops[0], nil
}

// builtinEval evaluates its argument, then evaluates the result as code.
func builtinEval(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := evalExact(ev, "eval", args, env, 1)
	if err != nil {
		return Value{}, err
	}
	return ev.Eval(vals[0], env)
}

func builtinBegin(ev *Evaluator, args Value, env *Env) (Value, error) {
	ops, err := operands("begin", args)
	if err != nil {
		return Value{}, err
	}
	result := NilVal()
	for _, form := range ops {
		result, err = ev.Eval(form, env)
		if err != nil {
			return Value{}, err
		}
	}
	return result, nil
}

func builtinApply(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := evalExact(ev, "apply", args, env, 2)
	if err != nil {
		return Value{}, err
	}
	if err := requireCallable("apply", vals[0]); err != nil {
		return Value{}, err
	}
	elems, err := requireList("apply", vals[1])
	if err != nil {
		return Value{}, err
	}
	return ev.Apply(vals[0], elems, env)
}

// builtinIf evaluates only the taken branch. Only #f is false.
func builtinIf(ev *Evaluator, args Value, env *Env) (Value, error) {
	ops, err := exactOperands("if", args, 3)
	if err != nil {
		return Value{}, err
	}
	test, err := ev.Eval(ops[0], env)
	if err != nil {
		return Value{}, err
	}
	if test.IsFalse() {
		return ev.Eval(ops[2], env)
	}
	return ev.Eval(ops[1], env)
}

func builtinDefine(ev *Evaluator, args Value, env *Env) (Value, error) {
	ops, err := exactOperands("define", args, 2)
	if err != nil {
		return Value{}, err
	}
	if ops[0].Kind != KindSymbol {
		return Value{}, typeErrorf("define", "name must be a Symbol, got %s", ops[0].KindName())
	}
	val, err := ev.Eval(ops[1], env)
	if err != nil {
		return Value{}, err
	}
	env.Define(ops[0].Str, val)
	return val, nil
}

// builtinLambda: (lambda (params...) body...) captures a snapshot of env.
func builtinLambda(ev *Evaluator, args Value, env *Env) (Value, error) {
	ops, err := operands("lambda", args)
	if err != nil {
		return Value{}, err
	}
	if len(ops) < 2 {
		return Value{}, arityError("lambda", "at least 2", len(ops))
	}
	paramList, err := requireList("lambda", ops[0])
	if err != nil {
		return Value{}, err
	}
	params := make([]string, len(paramList))
	for i, p := range paramList {
		if p.Kind != KindSymbol {
			return Value{}, typeErrorf("lambda", "parameter names must be Symbols, got %s", p.KindName())
		}
		params[i] = p.Str
	}
	return ClosureVal(&Closure{
		Params: params,
		Body:   ops[1:],
		Env:    env.Snapshot(),
	}), nil
}

// --- Logic ---

func builtinEq(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := evalExact(ev, "eq", args, env, 2)
	if err != nil {
		return Value{}, err
	}
	return BoolVal(Eq(vals[0], vals[1])), nil
}

// builtinAnd returns the first #f it meets, else the last value; (and) is #t.
func builtinAnd(ev *Evaluator, args Value, env *Env) (Value, error) {
	ops, err := operands("and", args)
	if err != nil {
		return Value{}, err
	}
	result := BoolVal(true)
	for _, form := range ops {
		result, err = ev.Eval(form, env)
		if err != nil {
			return Value{}, err
		}
		if result.IsFalse() {
			return result, nil
		}
	}
	return result, nil
}

// builtinOr returns the first value that is not #f; (or) is #f.
func builtinOr(ev *Evaluator, args Value, env *Env) (Value, error) {
	ops, err := operands("or", args)
	if err != nil {
		return Value{}, err
	}
	for _, form := range ops {
		val, err := ev.Eval(form, env)
		if err != nil {
			return Value{}, err
		}
		if !val.IsFalse() {
			return val, nil
		}
	}
	return BoolVal(false), nil
}

func builtinNot(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := evalExact(ev, "not", args, env, 1)
	if err != nil {
		return Value{}, err
	}
	if vals[0].Kind != KindBool {
		return Value{}, typeErrorf("not", "expected Boolean, got %s", vals[0].KindName())
	}
	return BoolVal(!vals[0].Bool), nil
}

// --- Host ---

// builtinPrint writes its arguments and returns 0, the placeholder for "no value".
func builtinPrint(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := ev.evalArgs("print", args, env)
	if err != nil {
		return Value{}, err
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.Display()
	}
	out := ev.Out
	if out == nil {
		out = os.Stdout
	}
	if _, err := fmt.Fprintln(out, strings.Join(parts, " ")); err != nil {
		return Value{}, fmt.Errorf("print: %w", err)
	}
	return IntVal(0), nil
}

func builtinExit(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := ev.evalArgs("exit", args, env)
	if err != nil {
		return Value{}, err
	}
	switch len(vals) {
	case 0:
		return Value{}, &ExitError{Code: 0}
	case 1:
		if vals[0].Kind != KindInt {
			return Value{}, typeErrorf("exit", "status must be Integer, got %s", vals[0].KindName())
		}
		return Value{}, &ExitError{Code: int(vals[0].Int)}
	default:
		return Value{}, arityError("exit", "0 or 1", len(vals))
	}
}

func builtinDebug(ev *Evaluator, args Value, env *Env) (Value, error) {
	if ev.Debugger == nil {
		ev.logf("debug: debugger isn't attached")
		return BoolVal(false), nil
	}
	// env is the caller's handle and goes stale once the call returns.
	ev.Debugger(env.Snapshot())
	return BoolVal(true), nil
}
