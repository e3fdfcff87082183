package listopad

// Trace captures one top-level evaluation: the source text, its result or
// error, and when it ran.
type Trace struct {
	Entry     string // source text that was evaluated
	Result    Value  // final result value; Nil on error
	Error     string // non-empty on error
	Timestamp string // RFC 3339
}

// ToValue converts a Trace to an association list for the traces builtin:
// (("entry" . src) ("result" . val) ("error" . msg-or-nil) ("timestamp" . ts)).
func (t *Trace) ToValue() Value {
	errVal := NilVal()
	if t.Error != "" {
		errVal = StringVal(t.Error)
	}
	return ListVal(
		Cons(StringVal("entry"), StringVal(t.Entry)),
		Cons(StringVal("result"), t.Result),
		Cons(StringVal("error"), errVal),
		Cons(StringVal("timestamp"), StringVal(t.Timestamp)),
	)
}

// ToGo converts a Trace to a JSON-friendly map. The result is rendered as text.
func (t *Trace) ToGo() map[string]any {
	m := map[string]any{
		"entry":     t.Entry,
		"result":    t.Result.String(),
		"timestamp": t.Timestamp,
	}
	if t.Error != "" {
		m["error"] = t.Error
	} else {
		m["error"] = nil
	}
	return m
}

// TraceLog keeps the most recent traces up to a fixed capacity.
type TraceLog struct {
	traces []Trace
	max    int
}

func NewTraceLog(max int) *TraceLog {
	if max <= 0 {
		max = 1000
	}
	return &TraceLog{max: max}
}

// Append adds a trace and drops the oldest ones beyond capacity.
func (l *TraceLog) Append(t Trace) {
	l.traces = append(l.traces, t)
	if len(l.traces) > l.max {
		excess := len(l.traces) - l.max
		l.traces = l.traces[excess:]
	}
}

// Last returns up to n most recent traces, oldest first. n < 0 means all.
func (l *TraceLog) Last(n int) []Trace {
	if n < 0 || n > len(l.traces) {
		n = len(l.traces)
	}
	out := make([]Trace, n)
	copy(out, l.traces[len(l.traces)-n:])
	return out
}

func (l *TraceLog) Len() int { return len(l.traces) }

func (l *TraceLog) Clear() { l.traces = nil }
