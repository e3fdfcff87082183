package listopad

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

func newTestInterpreter(t *testing.T, opts ...Option) *Interpreter {
	t.Helper()
	opts = append([]Option{WithOutput(&bytes.Buffer{})}, opts...)
	in, err := New(opts...)
	if err != nil {
		t.Fatalf("new interpreter: %v", err)
	}
	return in
}

// testEval evaluates every form of input in a fresh interpreter and checks
// the rendering of the last result.
func testEval(t *testing.T, input string, expected string) {
	t.Helper()
	in := newTestInterpreter(t)
	val, err := in.EvalAll(input)
	if err != nil {
		t.Fatalf("eval %q: %v", input, err)
	}
	if val.String() != expected {
		t.Fatalf("eval %q: expected %s, got %s", input, expected, val.String())
	}
}

func testEvalError(t *testing.T, input string) error {
	t.Helper()
	in := newTestInterpreter(t)
	_, err := in.EvalAll(input)
	if err == nil {
		t.Fatalf("expected error for %q", input)
	}
	return err
}

// --- Scenarios ---

func TestEvalNestedAddition(t *testing.T) {
	testEval(t, "(+  1  2 3    4 (+ 1 2 5 ) 3  )", "21")
}

func TestEvalDefineAndCall(t *testing.T) {
	testEval(t, "(begin (define foobar (lambda (lol) (inc (inc lol)))) (foobar 60))", "62")
}

func TestEvalDottedCons(t *testing.T) {
	in := newTestInterpreter(t)
	val, err := in.ReadAndEvaluate("(cons 1 (cons 2 3))")
	if err != nil {
		t.Fatal(err)
	}
	if !val.IsPair() || !val.Pair.Rest.IsPair() {
		t.Fatalf("expected two nested pairs, got %s", val.String())
	}
	if tail := val.Pair.Rest.Pair.Rest; tail.Kind != KindInt || tail.Int != 3 {
		t.Fatalf("expected tail 3, got %s", tail.String())
	}
	if val.String() != "(1 2 . 3)" {
		t.Fatalf("expected (1 2 . 3), got %s", val.String())
	}
}

func TestEvalEqScalars(t *testing.T) {
	testEval(t, "(eq 1 1)", "#t")
	testEval(t, `(eq "foo" "bar")`, "#f")
}

func TestEvalConcat(t *testing.T) {
	testEval(t, "(concat '(1 2) '(3 4))", "(1 2 3 4)")
}

// --- Literals ---

func TestEvalLiterals(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected string
	}{
		{"42", "42"},
		{"-7", "-7"},
		{"3.14", "3.14"},
		{"#t", "#t"},
		{"#f", "#f"},
		{`"hello"`, `"hello"`},
		{"nil", "nil"},
	} {
		testEval(t, tc.input, tc.expected)
	}
}

func TestEvalEmptyProgram(t *testing.T) {
	testEval(t, "", "nil")
	testEval(t, "; only a comment\n", "nil")
}

// --- Arithmetic ---

func TestEvalArithmetic(t *testing.T) {
	testEval(t, "(+ 1 2)", "3")
	testEval(t, "(- 10 3 2)", "5")
	testEval(t, "(- 5)", "-5")
	testEval(t, "(- 2.5)", "-2.5")
	testEval(t, "(* 2 3 4)", "24")
	testEval(t, "(+ 7)", "7")
}

func TestEvalArithmeticPromotion(t *testing.T) {
	testEval(t, "(+ 1 2.5)", "3.5")
	testEval(t, "(* 2 3.0)", "6.0")
	testEval(t, "(- 1.5 1)", "0.5")
}

func TestEvalGreaterThan(t *testing.T) {
	testEval(t, "(> 3 2)", "#t")
	testEval(t, "(> 2 3)", "#f")
	testEval(t, "(> 2 2)", "#f")
	testEval(t, "(> 2.5 2)", "#t")
}

func TestEvalArithmeticErrors(t *testing.T) {
	var te *TypeError
	if err := testEvalError(t, `(+ 1 "a")`); !errors.As(err, &te) {
		t.Fatalf("expected TypeError, got %T: %v", err, err)
	}
	var ae *ArityError
	if err := testEvalError(t, "(+)"); !errors.As(err, &ae) {
		t.Fatalf("expected ArityError, got %T: %v", err, err)
	}
	if err := testEvalError(t, "(> 1)"); !errors.As(err, &ae) || ae.Got != 1 {
		t.Fatalf("expected ArityError with 1 arg, got %v", err)
	}
}

// --- Lists ---

func TestEvalListOps(t *testing.T) {
	testEval(t, "(car '(1 2))", "1")
	testEval(t, "(cdr '(1 2))", "(2)")
	testEval(t, "(cdr '(1))", "nil")
	testEval(t, "(list 1 (+ 1 1) 3)", "(1 2 3)")
	testEval(t, "(list)", "nil")
	testEval(t, "(concat)", "nil")
	testEval(t, "(concat '(1) nil '(2))", "(1 2)")
	testEval(t, "(cons 1 nil)", "(1)")
}

func TestEvalConcatCopies(t *testing.T) {
	testEval(t, "(begin (define a '(1 2)) (eq a (concat a)))", "#f")
}

func TestEvalAtomp(t *testing.T) {
	testEval(t, "(atomp 1)", "#t")
	testEval(t, `(atomp "s")`, "#t")
	testEval(t, "(atomp nil)", "#t")
	testEval(t, "(atomp '(1))", "#f")
	testEval(t, "(atomp (cons 1 2))", "#t")
	testEval(t, "(atomp car)", "#t")
}

func TestEvalMapcar(t *testing.T) {
	testEval(t, "(mapcar inc '(1 2 3))", "(2 3 4)")
	testEval(t, "(mapcar car '((1 2) (3 4)))", "(1 3)")
	testEval(t, "(mapcar (lambda (x) (* x x)) '(1 2 3))", "(1 4 9)")
	testEval(t, "(mapcar inc nil)", "nil")
	testEval(t, "(mapcar quote '(1 2))", "(1 2)")
	testEval(t, "(mapcar quote '((a b) c))", "((a b) c)")
}

// Elements handed to a native must not be evaluated a second time.
func TestEvalMapcarNativeSeesValues(t *testing.T) {
	testEval(t, "(mapcar list '(a b))", "((a) (b))")
	testEval(t, "(define l '(a b)) (define quote 1) (mapcar list l)", "((a) (b))")
}

func TestEvalListErrors(t *testing.T) {
	var te *TypeError
	for _, input := range []string{
		"(car 1)",
		"(cdr nil)",
		"(concat '(1) 2)",
		"(concat (cons 1 2))",
		"(mapcar 1 '(1))",
		"(mapcar inc 3)",
	} {
		if err := testEvalError(t, input); !errors.As(err, &te) {
			t.Fatalf("%s: expected TypeError, got %T: %v", input, err, err)
		}
	}
}

// --- Evaluation control ---

func TestEvalQuote(t *testing.T) {
	testEval(t, "'a", "a")
	testEval(t, "(quote (a b))", "(a b)")
	testEval(t, "'(1 (2 3))", "(1 (2 3))")
	testEval(t, "'()", "nil")
	testEval(t, "''a", "(quote a)")
}

func TestEvalEval(t *testing.T) {
	testEval(t, "(eval '(+ 1 2))", "3")
	testEval(t, "(eval 5)", "5")
	testEval(t, "(begin (define x 4) (eval 'x))", "4")
}

func TestEvalBegin(t *testing.T) {
	testEval(t, "(begin)", "nil")
	testEval(t, "(begin 1 2 3)", "3")
}

func TestEvalApply(t *testing.T) {
	testEval(t, "(apply + '(1 2 3))", "6")
	testEval(t, "(apply (lambda (a b) (cons a b)) '(1 2))", "(1 . 2)")
	testEval(t, "(apply list '((1) x))", "((1) x)")
	testEval(t, "(apply quote '(1))", "1")
	testEval(t, "(apply quote '((a b)))", "(a b)")

	var ae *ArityError
	if err := testEvalError(t, "(apply quote '(1 2))"); !errors.As(err, &ae) {
		t.Fatalf("expected *ArityError, got %T: %v", err, err)
	}
}

func TestEvalIf(t *testing.T) {
	testEval(t, "(if #t 1 2)", "1")
	testEval(t, "(if #f 1 2)", "2")
	testEval(t, "(if 0 1 2)", "1")
	testEval(t, "(if nil 1 2)", "1")
	testEval(t, `(if "" 1 2)`, "1")
	testEval(t, "(if #t 1 (undefined-thing))", "1")
	testEval(t, "(if #f (undefined-thing) 2)", "2")
}

func TestEvalIfArity(t *testing.T) {
	var ae *ArityError
	if err := testEvalError(t, "(if #t 1)"); !errors.As(err, &ae) {
		t.Fatalf("expected ArityError, got %T: %v", err, err)
	}
}

func TestEvalDefine(t *testing.T) {
	testEval(t, "(define x 5)", "5")
	testEval(t, "(define x 5) (+ x 1)", "6")
	testEval(t, "(define x 1) (define x 2) x", "2")

	var te *TypeError
	if err := testEvalError(t, "(define 1 2)"); !errors.As(err, &te) {
		t.Fatalf("expected TypeError, got %T: %v", err, err)
	}
}

// --- Logic ---

func TestEvalEq(t *testing.T) {
	testEval(t, "(eq 1 1.0)", "#f")
	testEval(t, "(eq 1.5 1.5)", "#t")
	testEval(t, `(eq "a" "a")`, "#t")
	testEval(t, "(eq 'a 'a)", "#t")
	testEval(t, "(eq nil nil)", "#t")
	testEval(t, "(eq #t #t)", "#t")
	testEval(t, "(eq '(1) '(1))", "#f")
	testEval(t, "(begin (define l '(1)) (eq l l))", "#t")
	testEval(t, "(eq car car)", "#t")
	testEval(t, "(begin (define f (lambda () 1)) (eq f f))", "#t")
}

func TestEvalAndOr(t *testing.T) {
	testEval(t, "(and)", "#t")
	testEval(t, "(and 1 2)", "2")
	testEval(t, "(and 1 #f (undefined-thing))", "#f")
	testEval(t, "(or)", "#f")
	testEval(t, "(or #f 3)", "3")
	testEval(t, "(or 1 (undefined-thing))", "1")
	testEval(t, "(or #f #f)", "#f")
}

func TestEvalNot(t *testing.T) {
	testEval(t, "(not #t)", "#f")
	testEval(t, "(not #f)", "#t")

	var te *TypeError
	if err := testEvalError(t, "(not 1)"); !errors.As(err, &te) {
		t.Fatalf("expected TypeError, got %T: %v", err, err)
	}
}

// --- Lambda and closures ---

func TestEvalLambda(t *testing.T) {
	testEval(t, "((lambda (x) x) 42)", "42")
	testEval(t, "((lambda (a b) (list a b)) 1 2)", "(1 2)")
	testEval(t, "((lambda () 12))", "12")
	testEval(t, "((lambda nil 12))", "12")
	testEval(t, "((lambda '() 12))", "12")
	testEval(t, "((lambda (x) 1 2 x) 3)", "3")
}

func TestEvalLambdaRendering(t *testing.T) {
	testEval(t, "(lambda (x y) x)", "#<FUNCTION (LAMBDA (x y))>")
	testEval(t, "(lambda () 1)", "#<FUNCTION (LAMBDA ())>")
	testEval(t, "car", "#<FUNCTION (car)>")
}

func TestEvalLambdaErrors(t *testing.T) {
	var ae *ArityError
	if err := testEvalError(t, "(lambda (x))"); !errors.As(err, &ae) {
		t.Fatalf("expected ArityError, got %T: %v", err, err)
	}
	var te *TypeError
	if err := testEvalError(t, "(lambda (1) 1)"); !errors.As(err, &te) {
		t.Fatalf("expected TypeError, got %T: %v", err, err)
	}
	if err := testEvalError(t, "(lambda 5 1)"); !errors.As(err, &te) {
		t.Fatalf("expected TypeError, got %T: %v", err, err)
	}
}

func TestEvalClosureArity(t *testing.T) {
	err := testEvalError(t, "((lambda (x) x))")
	var ae *ArityError
	if !errors.As(err, &ae) {
		t.Fatalf("expected ArityError, got %T: %v", err, err)
	}
	if ae.Want != "1" || ae.Got != 0 {
		t.Fatalf("expected want 1 got 0, got want %s got %d", ae.Want, ae.Got)
	}
	testEvalError(t, "((lambda (x) x) 1 2)")
}

func TestEvalClosureCapture(t *testing.T) {
	testEval(t, `
(define make-adder (lambda (n) (lambda (x) (+ x n))))
(define add5 (make-adder 5))
(define add1 (make-adder 1))
(list (add5 10) (add1 10))`, "(15 11)")
}

func TestEvalClosureSeesLaterGlobals(t *testing.T) {
	testEval(t, "(define f (lambda () later)) (define later 7) (f)", "7")
}

func TestEvalClosureShadowing(t *testing.T) {
	testEval(t, "(define x 1) ((lambda (x) x) 2)", "2")
	testEval(t, "(define x 1) ((lambda (x) x) 2) x", "1")
}

func TestEvalDefineInsideClosureIsLocal(t *testing.T) {
	err := testEvalError(t, "((lambda () (define y 3) y)) y")
	var ue *UnboundVariableError
	if !errors.As(err, &ue) || ue.Name != "y" {
		t.Fatalf("expected unbound y, got %v", err)
	}
}

func TestEvalRecursion(t *testing.T) {
	testEval(t, `
(define fact (lambda (n) (if (> n 1) (* n (fact (- n 1))) 1)))
(fact 10)`, "3628800")
}

func TestEvalHeadForms(t *testing.T) {
	testEval(t, "((car (list inc)) 1)", "2")
	testEval(t, "((if #t + *) 2 3)", "5")
}

// --- Environment hygiene ---

func TestEvalFramesPoppedOnSuccess(t *testing.T) {
	in := newTestInterpreter(t)
	if _, err := in.EvalAll("(define f (lambda (x) ((lambda (y) y) x))) (f 1)"); err != nil {
		t.Fatal(err)
	}
	if d := in.Env().Depth(); d != 1 {
		t.Fatalf("expected depth 1, got %d", d)
	}
}

func TestEvalFramesPoppedOnError(t *testing.T) {
	in := newTestInterpreter(t)
	if _, err := in.EvalAll("(define f (lambda (x) ((lambda (y) (car y)) x)))"); err != nil {
		t.Fatal(err)
	}
	if _, err := in.ReadAndEvaluate("(f 1)"); err == nil {
		t.Fatal("expected error")
	}
	if d := in.Env().Depth(); d != 1 {
		t.Fatalf("expected depth 1 after error, got %d", d)
	}
	val, err := in.ReadAndEvaluate("(f '(9))")
	if err != nil {
		t.Fatal(err)
	}
	if val.String() != "9" {
		t.Fatalf("expected 9, got %s", val.String())
	}
}

// --- Errors ---

func TestEvalUnboundVariable(t *testing.T) {
	err := testEvalError(t, "nope")
	var ue *UnboundVariableError
	if !errors.As(err, &ue) || ue.Name != "nope" {
		t.Fatalf("expected unbound nope, got %T: %v", err, err)
	}
	testEvalError(t, "(nope 1)")
}

func TestEvalIllegalCall(t *testing.T) {
	for _, input := range []string{"(1 2)", `("foo")`, "(#t)", "((+ 1 1) 2)"} {
		err := testEvalError(t, input)
		var ic *IllegalCallError
		if !errors.As(err, &ic) {
			t.Fatalf("%s: expected IllegalCallError, got %T: %v", input, err, err)
		}
	}
}

func TestEvalDottedArguments(t *testing.T) {
	in := newTestInterpreter(t)
	form := Cons(SymbolVal("+"), Cons(IntVal(1), IntVal(2)))
	_, err := in.Evaluate(form, in.Env())
	var te *TypeError
	if !errors.As(err, &te) {
		t.Fatalf("expected TypeError, got %T: %v", err, err)
	}
}

// --- Host primitives ---

func TestEvalPrint(t *testing.T) {
	var out bytes.Buffer
	in := newTestInterpreter(t, WithOutput(&out))
	val, err := in.ReadAndEvaluate(`(print "hi" 1 'a 2.5 '(1 "x"))`)
	if err != nil {
		t.Fatal(err)
	}
	if val.Kind != KindInt || val.Int != 0 {
		t.Fatalf("expected 0, got %s", val.String())
	}
	if got := out.String(); got != "hi 1 a 2.5 (1 \"x\")\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEvalExit(t *testing.T) {
	for _, tc := range []struct {
		input string
		code  int
	}{
		{"(exit)", 0},
		{"(exit 3)", 3},
		{"(begin (exit (+ 1 1)) (undefined-thing))", 2},
	} {
		err := testEvalError(t, tc.input)
		var ee *ExitError
		if !errors.As(err, &ee) {
			t.Fatalf("%s: expected ExitError, got %T: %v", tc.input, err, err)
		}
		if ee.Code != tc.code {
			t.Fatalf("%s: expected code %d, got %d", tc.input, tc.code, ee.Code)
		}
	}

	var te *TypeError
	if err := testEvalError(t, `(exit "x")`); !errors.As(err, &te) {
		t.Fatalf("expected TypeError, got %T: %v", err, err)
	}
}

func TestEvalDebugWithoutHook(t *testing.T) {
	var logs bytes.Buffer
	in := newTestInterpreter(t, WithLogger(log.New(&logs, "", 0)))
	val, err := in.ReadAndEvaluate("(debug)")
	if err != nil {
		t.Fatal(err)
	}
	if !val.IsFalse() {
		t.Fatalf("expected #f, got %s", val.String())
	}
	if !strings.Contains(logs.String(), "debugger isn't attached") {
		t.Fatalf("expected log message, got %q", logs.String())
	}
}

func TestEvalDebugHook(t *testing.T) {
	var seen *Env
	in := newTestInterpreter(t, WithDebugger(func(env *Env) { seen = env }))
	val, err := in.ReadAndEvaluate("((lambda (x) (debug)) 1)")
	if err != nil {
		t.Fatal(err)
	}
	if val.String() != "#t" {
		t.Fatalf("expected #t, got %s", val.String())
	}
	if seen == nil {
		t.Fatal("debugger was not called")
	}
	// The hook's env outlives the closure call that produced it.
	if seen.Depth() != 2 {
		t.Fatalf("expected the call frame to survive the return, depth %d", seen.Depth())
	}
	x, err := seen.Lookup("x")
	if err != nil || x.Int != 1 {
		t.Fatalf("expected x bound to 1 in debugger env, got %v %v", x, err)
	}
	if names := seen.Names(); len(names) != 1 || names[0] != "x" {
		t.Fatalf("expected only x in the innermost frame, got %v", names)
	}
}

// --- Prelude ---

func TestPrelude(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected string
	}{
		{"(inc 1)", "2"},
		{"(dec 1)", "0"},
		{"(abs -5)", "5"},
		{"(abs 5)", "5"},
		{"(abs -1.5)", "1.5"},
		{"(< 1 2)", "#t"},
		{"(< 2 1)", "#f"},
		{"(<= 2 2)", "#t"},
		{"(<= 3 2)", "#f"},
		{"(>= 2 2)", "#t"},
		{"(>= 1 2)", "#f"},
		{"(max 3 7)", "7"},
		{"(min 3 7)", "3"},
		{"(when #t '(+ 1 2))", "#t"},
		{"(when #f '(undefined-thing))", "#f"},
		{"(unless #f '(+ 1 2))", "#t"},
		{"(unless #t '(undefined-thing))", "#f"},
	} {
		testEval(t, tc.input, tc.expected)
	}
}

func TestDebugOnErrorFlag(t *testing.T) {
	in := newTestInterpreter(t)
	if in.DebugOnError() {
		t.Fatal("expected debug-on-error off by default")
	}
	in.SetDebugOnError(true)
	if !in.DebugOnError() {
		t.Fatal("expected debug-on-error on")
	}
	val, err := in.ReadAndEvaluate(DebugOnErrorVar)
	if err != nil || val.String() != "#t" {
		t.Fatalf("expected #t, got %v %v", val, err)
	}
	if _, err := in.ReadAndEvaluate("(define *debug-on-exception* #f)"); err != nil {
		t.Fatal(err)
	}
	if in.DebugOnError() {
		t.Fatal("expected define to turn debug-on-error off")
	}
}
