package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/drake/quill/config"
	"github.com/drake/quill/debug"
	"github.com/drake/quill/engine"
	"github.com/drake/quill/luaeval"
	"github.com/drake/quill/network"
	"github.com/drake/quill/readline"
	"github.com/drake/quill/repl"
	"github.com/drake/quill/stream"
)

func main() {
	configPath := flag.String("config", config.File(), "config file path")
	listen := flag.String("listen", "", "serve the console over TCP on this address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Listen != "" {
		if err := serve(ctx, cfg); err != nil {
			fmt.Fprintln(os.Stderr, "serve:", err)
			os.Exit(1)
		}
		return
	}

	if err := runStdio(ctx, cancel, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serve runs the TCP console server until interrupted.
func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := func(conn stream.Conn) (*repl.Session, func()) {
		ev, err := luaeval.New(cfg.CompileCacheSize)
		if err != nil {
			panic(err) // cache size already validated
		}
		eng := engine.New(ev, &engine.Interrupt{})
		ed := readline.NewLineEditor(conn)
		sess := repl.NewSession(conn, ed, eng, repl.Options{
			Prompt:         cfg.Prompt,
			ContPrompt:     cfg.ContPrompt,
			StopOnExit:     true,
			RawPasteWindow: cfg.RawPasteWindow,
		})
		return sess, ev.Close
	}

	srv := network.NewServer(cfg.Listen, factory, log.New(os.Stderr, "", log.LstdFlags))
	return srv.ListenAndServe(ctx)
}

// runStdio runs the REPL on the local terminal, looping through soft
// resets with a fresh namespace each time.
func runStdio(ctx context.Context, cancel context.CancelFunc, cfg config.Config) error {
	sc, err := stream.NewStdio()
	if err != nil {
		return err
	}
	defer sc.Close()

	for {
		ev, err := luaeval.New(cfg.CompileCacheSize)
		if err != nil {
			return err
		}

		intr := &engine.Interrupt{}
		eng := engine.New(ev, intr)
		ed := readline.NewLineEditor(sc)
		sess := repl.NewSession(sc, ed, eng, repl.Options{
			Prompt:         cfg.Prompt,
			ContPrompt:     cfg.ContPrompt,
			StopOnExit:     true,
			Stop:           cancel,
			RawPasteWindow: cfg.RawPasteWindow,
		})

		// SIGINT interrupts the running snippet, when one is running
		// and interrupt delivery is enabled; otherwise it is dropped,
		// matching serial-console Ctrl-C semantics.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		go func() {
			for range sigCh {
				intr.Trigger()
			}
		}()

		debug.NewMonitor(ctx, sess).Start()

		sc.SetRaw(true)
		runErr := sess.Run(ctx)
		sc.SetRaw(false)

		signal.Stop(sigCh)
		close(sigCh)
		ev.Close()

		if errors.Is(runErr, repl.ErrResetRequested) {
			fmt.Println("soft reset")
			continue
		}
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return runErr
		}
		return nil
	}
}
