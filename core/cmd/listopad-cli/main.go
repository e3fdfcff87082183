package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/aeggydev/Listopad/config"
	listopad "github.com/aeggydev/Listopad/core"
)

// With arguments, they are joined into one expression and sent as an eval
// request. Without, a JSON request is read from stdin.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fail("config", err)
	}

	msg, err := request(os.Args[1:])
	if err != nil {
		fail("request", err)
	}
	if _, ok := msg["id"]; !ok {
		msg["id"] = listopad.NextID()
	}

	conn, err := net.Dial("unix", cfg.Socket)
	if err != nil {
		fail("connect", err)
	}
	defer conn.Close()

	if err := listopad.WriteMsg(conn, msg); err != nil {
		fail("send", err)
	}
	resp, err := listopad.ReadMsg(conn)
	if err != nil {
		fail("receive", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fail("format response", err)
	}
	fmt.Println(string(out))
	if ok, _ := resp["ok"].(bool); !ok {
		os.Exit(1)
	}
}

func request(args []string) (map[string]any, error) {
	if len(args) > 0 {
		return map[string]any{"op": "eval", "expr": strings.Join(args, " ")}, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if msg == nil {
		msg = map[string]any{}
	}
	return msg, nil
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
