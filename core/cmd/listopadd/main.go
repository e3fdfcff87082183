package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aeggydev/Listopad/config"
	listopad "github.com/aeggydev/Listopad/core"
	"github.com/aeggydev/Listopad/session"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts := listopad.ServerOptions{MaxTraces: cfg.MaxTraces}
	var store *session.Store
	if cfg.Database != "" {
		store, err = session.Open(cfg.Database)
		if err != nil {
			log.Fatalf("failed to open session: %v", err)
		}
		opts.Recorder = store
	}

	factory := func() (*listopad.Interpreter, error) {
		// print output has no client to go to; it ends up in the daemon log.
		interp, err := listopad.New(listopad.WithOutput(log.Writer()))
		if err != nil {
			return nil, err
		}
		interp.SetDebugOnError(cfg.DebugOnError)
		for _, path := range cfg.Preload {
			src, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("preload: %w", err)
			}
			if _, err := interp.EvalAll(string(src)); err != nil {
				return nil, fmt.Errorf("preload %s: %w", path, err)
			}
		}
		if store != nil {
			err := store.Replay(func(src string) error {
				_, err := interp.ReadAndEvaluate(src)
				return err
			})
			if err != nil {
				log.Printf("session replay: %v", err)
			}
		}
		return interp, nil
	}

	server, err := listopad.NewServer(factory, cfg.Socket, opts)
	if err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	// Handle shutdown signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("shutting down...")
		server.Shutdown()
		if store != nil {
			store.Close()
		}
		os.Exit(0)
	}()

	log.Printf("listopad listening (socket: %s, session db: %q)", cfg.Socket, cfg.Database)
	server.Run()
}
