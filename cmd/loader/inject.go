package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unknproject/loader/internal/catalog"
	"github.com/unknproject/loader/internal/engine"
)

var injectProcess string

var injectCmd = &cobra.Command{
	Use:   "inject <name>",
	Short: "Download a catalog payload and inject it into its target process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInject(cmd.Context(), func(ctx context.Context, reg *catalog.Registry) (engine.Request, error) {
			if err := reg.Refresh(ctx); err != nil {
				return engine.Request{}, fmt.Errorf("failed to load hacks: %w", err)
			}
			p, err := reg.Lookup(args[0])
			if err != nil {
				return engine.Request{}, err
			}
			return engine.CatalogRequest(p), nil
		})
	},
}

var injectFileCmd = &cobra.Command{
	Use:   "inject-file <path>",
	Short: "Inject a local library into a running process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInject(cmd.Context(), func(context.Context, *catalog.Registry) (engine.Request, error) {
			return engine.FileRequest(args[0], injectProcess), nil
		})
	},
}

func init() {
	injectFileCmd.Flags().StringVarP(&injectProcess, "process", "p", "", "target process executable name, e.g. hl2.exe")
	_ = injectFileCmd.MarkFlagRequired("process")
}

// statusPrinter writes each new status line of the running session.
type statusPrinter struct {
	mu     sync.Mutex
	last   string
	status func() string
}

func (p *statusPrinter) Repaint() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		return
	}
	if s := p.status(); s != p.last {
		p.last = s
		fmt.Println(s)
	}
}

type requestFunc func(context.Context, *catalog.Registry) (engine.Request, error)

func runInject(ctx context.Context, build requestFunc) error {
	printer := &statusPrinter{}
	a, err := newApp(printer, true)
	if err != nil {
		return err
	}
	defer a.Close()

	printer.mu.Lock()
	printer.status = a.Orchestrator().CurrentStatus
	printer.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	req, err := build(ctx, a.Catalog())
	if err != nil {
		return err
	}
	if _, err := a.Orchestrator().Submit(req); err != nil {
		return err
	}

	select {
	case r := <-a.Orchestrator().Results():
		fmt.Println(r.String())
		if !r.Success() {
			return errors.New("injection failed")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
