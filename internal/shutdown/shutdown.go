// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Package shutdown mirrors the teacher's signal package: a process-wide
// interrupt handler that cancels a shared context on the first SIGINT or
// SIGTERM, and forces an exit if a second signal arrives before the
// daemon has finished unwinding.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	vlog "github.com/vectorlabs/vectord/log"
)

var log = vlog.Logger(vlog.SubsystemMain)

var (
	once      sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	interrupt chan os.Signal
)

// Context returns the process-wide context that is cancelled on the
// first interrupt signal, constructing the signal handler the first time
// it is called.
func Context() context.Context {
	once.Do(start)
	return ctx
}

func start() {
	ctx, cancel = context.WithCancel(context.Background())
	interrupt = make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-interrupt
		log.Infof("received %v, shutting down", sig)
		cancel()

		sig = <-interrupt
		log.Warnf("received %v during shutdown, forcing exit", sig)
		os.Exit(1)
	}()
}

// RequestShutdown cancels the shared context as though an interrupt had
// been received, for callers that detect a fatal condition internally
// (e.g. an unrecoverable store error).
func RequestShutdown() {
	once.Do(start)
	cancel()
}
