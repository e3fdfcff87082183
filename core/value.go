package listopad

import (
	"fmt"
	"strconv"
	"strings"
)

type ValueKind int

const (
	KindNil ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindSymbol
	KindPair
	KindClosure
	KindNative
)

// Pair is a cons cell. Both slots are mutable; a list's identity is the
// identity of its head pair.
type Pair struct {
	First Value
	Rest  Value
}

// Closure is a user-defined function: fixed parameters, a body evaluated in
// sequence, and the environment captured when the lambda form ran.
type Closure struct {
	Params []string
	Body   []Value
	Env    *Env
}

// NativeFunc receives its argument list unevaluated together with the
// caller's environment. Each native decides what to evaluate and when.
// The env handle is only valid for the duration of the call; a native that
// keeps it must store env.Snapshot() instead.
type NativeFunc func(ev *Evaluator, args Value, env *Env) (Value, error)

type Native struct {
	Name string
	Fn   NativeFunc
}

// Value is the single expression type shared by the reader, the
// environment and the evaluator. Construct it only through the helpers
// below; exactly one payload field is meaningful for a given Kind.
type Value struct {
	Kind    ValueKind
	Int     int32
	Float   float32
	Bool    bool
	Str     string
	Pair    *Pair
	Closure *Closure
	Native  *Native
}

func NilVal() Value               { return Value{Kind: KindNil} }
func IntVal(n int32) Value        { return Value{Kind: KindInt, Int: n} }
func FloatVal(f float32) Value    { return Value{Kind: KindFloat, Float: f} }
func StringVal(s string) Value    { return Value{Kind: KindString, Str: s} }
func BoolVal(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func SymbolVal(name string) Value { return Value{Kind: KindSymbol, Str: name} }
func ClosureVal(c *Closure) Value { return Value{Kind: KindClosure, Closure: c} }

func Cons(first, rest Value) Value {
	return Value{Kind: KindPair, Pair: &Pair{First: first, Rest: rest}}
}

func NativeVal(name string, fn NativeFunc) Value {
	return Value{Kind: KindNative, Native: &Native{Name: name, Fn: fn}}
}

// ListVal builds a proper list of fresh pairs.
func ListVal(elems ...Value) Value {
	result := NilVal()
	for i := len(elems) - 1; i >= 0; i-- {
		result = Cons(elems[i], result)
	}
	return result
}

func (v Value) IsNil() bool  { return v.Kind == KindNil }
func (v Value) IsPair() bool { return v.Kind == KindPair }

// IsFalse implements the language's truthiness: only Boolean false is falsy.
func (v Value) IsFalse() bool { return v.Kind == KindBool && !v.Bool }

// IsList reports whether v is Nil or a chain of pairs ending in Nil.
func (v Value) IsList() bool {
	for v.Kind == KindPair {
		v = v.Pair.Rest
	}
	return v.Kind == KindNil
}

// Each calls fn for every element of the pair chain starting at v and
// returns the value that terminated the chain: Nil for a proper list, the
// dotted tail otherwise. Iteration stops at the first error.
func (v Value) Each(fn func(Value) error) (Value, error) {
	for v.Kind == KindPair {
		if err := fn(v.Pair.First); err != nil {
			return v, err
		}
		v = v.Pair.Rest
	}
	return v, nil
}

// ListToSlice flattens a pair chain. ok is false when the chain has a
// dotted tail; the elements before the tail are still returned.
func ListToSlice(v Value) (elems []Value, ok bool) {
	tail, _ := v.Each(func(e Value) error {
		elems = append(elems, e)
		return nil
	})
	return elems, tail.Kind == KindNil
}

// Eq compares scalars by value and pairs, closures and natives by identity.
func Eq(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindString, KindSymbol:
		return a.Str == b.Str
	case KindBool:
		return a.Bool == b.Bool
	case KindPair:
		return a.Pair == b.Pair
	case KindClosure:
		return a.Closure == b.Closure
	case KindNative:
		return a.Native == b.Native
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindInt:
		return strconv.FormatInt(int64(v.Int), 10)
	case KindFloat:
		return formatFloat(v.Float)
	case KindString:
		return `"` + v.Str + `"`
	case KindBool:
		if v.Bool {
			return "#t"
		}
		return "#f"
	case KindSymbol:
		return v.Str
	case KindPair:
		var sb strings.Builder
		sb.WriteByte('(')
		first := true
		tail, _ := v.Each(func(e Value) error {
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			sb.WriteString(e.String())
			return nil
		})
		if tail.Kind != KindNil {
			sb.WriteString(" . ")
			sb.WriteString(tail.String())
		}
		sb.WriteByte(')')
		return sb.String()
	case KindClosure:
		return fmt.Sprintf("#<FUNCTION (LAMBDA (%s))>", strings.Join(v.Closure.Params, " "))
	case KindNative:
		return fmt.Sprintf("#<FUNCTION (%s)>", v.Native.Name)
	default:
		return fmt.Sprintf("<unknown:%d>", v.Kind)
	}
}

// Display is the rendering print uses: strings appear without quotes.
func (v Value) Display() string {
	if v.Kind == KindString {
		return v.Str
	}
	return v.String()
}

// formatFloat keeps a decimal point so that a printed float reads back as a float.
func formatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

func (v Value) KindName() string {
	switch v.Kind {
	case KindNil:
		return "Nil"
	case KindInt:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindBool:
		return "Boolean"
	case KindSymbol:
		return "Symbol"
	case KindPair:
		return "Pair"
	case KindClosure:
		return "Closure"
	case KindNative:
		return "Native"
	default:
		return "Unknown"
	}
}
