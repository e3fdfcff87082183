package listopad

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"
)

// Recorder receives the source of every top-level input that evaluated
// successfully, so a session can be rebuilt later.
type Recorder interface {
	Record(source string) error
	Clear() error
}

// Factory builds a ready-to-use interpreter. The server calls it once at
// start-up and again on every clear.
type Factory func() (*Interpreter, error)

type ServerOptions struct {
	MaxTraces int
	Recorder  Recorder // optional
	Logger    *log.Logger
}

// Server is the central actor that owns an interpreter and answers requests
// arriving over a unix socket.
type Server struct {
	factory  Factory
	interp   *Interpreter
	requests chan serverRequest
	done     chan struct{} // closed by Shutdown
	stopOnce sync.Once
	listener net.Listener
	traces   *TraceLog
	recorder Recorder
	logger   *log.Logger
}

type serverRequest struct {
	msg      map[string]any
	response chan map[string]any
}

// NewServer builds the first interpreter and listens on sockPath.
func NewServer(factory Factory, sockPath string, opts ServerOptions) (*Server, error) {
	s, err := newServer(factory, opts)
	if err != nil {
		return nil, err
	}

	// Clean up a stale socket
	os.Remove(sockPath)
	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	s.listener = listener
	return s, nil
}

func newServer(factory Factory, opts ServerOptions) (*Server, error) {
	s := &Server{
		factory:  factory,
		requests: make(chan serverRequest, 64),
		done:     make(chan struct{}),
		traces:   NewTraceLog(opts.MaxTraces),
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// reset swaps in a fresh interpreter with the server builtins installed.
func (s *Server) reset() error {
	interp, err := s.factory()
	if err != nil {
		return fmt.Errorf("init interpreter: %w", err)
	}
	interp.Env().DefineGlobal("traces", NativeVal("traces", s.builtinTraces))
	s.interp = interp
	return nil
}

// Run starts the actor goroutine and accepts connections. Blocks until shutdown.
func (s *Server) Run() {
	go s.actorLoop()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConnection(conn)
	}
}

// Shutdown stops accepting connections and ends the actor loop. Requests
// still arriving on open connections are dropped along with the connection.
// It is safe to call more than once.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		if s.listener != nil {
			s.listener.Close()
		}
		close(s.done)
	})
}

// actorLoop is the single goroutine that owns interpreter state.
func (s *Server) actorLoop() {
	for {
		select {
		case req := <-s.requests:
			req.response <- s.handleRequest(req.msg)
		case <-s.done:
			return
		}
	}
}

// sendToActor reports false once the server is shutting down.
func (s *Server) sendToActor(msg map[string]any) (map[string]any, bool) {
	select {
	case <-s.done:
		return nil, false
	default:
	}
	resp := make(chan map[string]any, 1)
	select {
	case s.requests <- serverRequest{msg: msg, response: resp}:
	case <-s.done:
		return nil, false
	}
	select {
	case r := <-resp:
		return r, true
	case <-s.done:
		return nil, false
	}
}

func (s *Server) handleRequest(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)

	op, _ := msg["op"].(string)
	switch op {
	case "":
		return s.manual(id)
	case "eval":
		return s.handleEval(id, msg)
	case "traces":
		return s.handleTraces(id, msg)
	case "clear":
		return s.handleClear(id)
	default:
		return errorResponse(id, fmt.Sprintf("unknown op: %s", op))
	}
}

func (s *Server) manual(id string) map[string]any {
	var builtins []any
	for _, name := range s.interp.Env().Names() {
		builtins = append(builtins, name)
	}
	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"name":    "listopad",
			"version": "1.0.0",
			"ops": map[string]any{
				"eval":   "Evaluate one expression. Params: expr (string)",
				"traces": "Recent evaluations, oldest first. Params: n (number, optional)",
				"clear":  "Start over: fresh interpreter, traces and session dropped.",
			},
			"builtins": builtins,
		},
	}
}

func (s *Server) handleEval(id string, msg map[string]any) map[string]any {
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "eval: missing 'expr' string")
	}

	trace := Trace{
		Entry:     expr,
		Result:    NilVal(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	val, err := s.interp.ReadAndEvaluate(expr)
	if err != nil {
		trace.Error = err.Error()
		s.traces.Append(trace)
		resp := errorResponse(id, err.Error())
		var exit *ExitError
		if errors.As(err, &exit) {
			resp["exit"] = exit.Code
		}
		return resp
	}

	trace.Result = val
	s.traces.Append(trace)
	if s.recorder != nil {
		if err := s.recorder.Record(expr); err != nil {
			s.logger.Printf("record entry: %v", err)
		}
	}
	return map[string]any{"id": id, "ok": true, "value": val.String(), "kind": val.KindName()}
}

func (s *Server) handleTraces(id string, msg map[string]any) map[string]any {
	n := -1
	if raw, ok := msg["n"]; ok {
		f, ok := raw.(float64)
		if !ok || f < 0 {
			return errorResponse(id, "traces: 'n' must be a non-negative number")
		}
		n = int(f)
	}
	var out []any
	for _, t := range s.traces.Last(n) {
		out = append(out, t.ToGo())
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (s *Server) handleClear(id string) map[string]any {
	if s.recorder != nil {
		if err := s.recorder.Clear(); err != nil {
			return errorResponse(id, err.Error())
		}
	}
	if err := s.reset(); err != nil {
		return errorResponse(id, err.Error())
	}
	s.traces.Clear()
	return map[string]any{"id": id, "ok": true, "value": nil}
}

func errorResponse(id, errMsg string) map[string]any {
	return map[string]any{"id": id, "ok": false, "error": errMsg}
}

// --- Connection handling ---

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	for {
		msg, err := ReadMsg(conn)
		if err != nil {
			if err != io.EOF {
				s.logger.Printf("read client message: %v", err)
			}
			return
		}
		resp, ok := s.sendToActor(msg)
		if !ok {
			return
		}
		if err := WriteMsg(conn, resp); err != nil {
			s.logger.Printf("write client response: %v", err)
			return
		}
	}
}

// builtinTraces: (traces) or (traces N), the last N traces as association lists.
func (s *Server) builtinTraces(ev *Evaluator, args Value, env *Env) (Value, error) {
	vals, err := ev.evalArgs("traces", args, env)
	if err != nil {
		return Value{}, err
	}
	n := -1
	switch len(vals) {
	case 0:
	case 1:
		if vals[0].Kind != KindInt || vals[0].Int < 0 {
			return Value{}, typeErrorf("traces", "expected a non-negative Integer, got %s", vals[0].KindName())
		}
		n = int(vals[0].Int)
	default:
		return Value{}, arityError("traces", "0 or 1", len(vals))
	}
	traces := s.traces.Last(n)
	result := make([]Value, len(traces))
	for i := range traces {
		result[i] = traces[i].ToValue()
	}
	return ListVal(result...), nil
}
