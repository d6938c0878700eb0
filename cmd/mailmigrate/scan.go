package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nhle/mailmigrate/internal/scan"
)

type scanCommand struct{}

func (c *scanCommand) Execute([]string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := a.Runner()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := runner.Run(ctx)
	if res != nil {
		renderScanResult(os.Stdout, res)
	}
	if err != nil {
		if scan.IsPersistError(err) {
			return fmt.Errorf("scan failed while saving results: %w", err)
		}
		return err
	}
	return nil
}

type serveCommand struct {
	Now bool `long:"now" description:"Run one scan immediately on start"`
}

func (c *serveCommand) Execute([]string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := a.Runner()
	if err != nil {
		return err
	}
	sched, err := a.Scheduler(runner)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !a.Config.Scheduler.Enabled {
		if !c.Now {
			return fmt.Errorf("scheduler is disabled in %s; enable it or pass --now", configPath())
		}
		a.Logger.Warn("Scheduler disabled, running a single scan")
		res, err := sched.TriggerNow(ctx)
		if res != nil {
			renderScanResult(os.Stdout, res)
		}
		return err
	}

	if err := sched.Start(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	if c.Now {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, err := sched.TriggerNow(ctx); err == nil {
				renderScanResult(os.Stdout, res)
			}
		}()
	}

	st := sched.Status()
	a.Logger.Info("Waiting for scheduled scans", "schedule", st.Description, "next", st.NextRun)

	<-ctx.Done()
	a.Logger.Info("Shutting down")
	<-sched.Stop().Done()
	wg.Wait()
	return nil
}

type checkCommand struct{}

func (c *checkCommand) Execute([]string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	src, err := a.IMAPSource()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, err := src.Check(ctx)
	if err != nil {
		return fmt.Errorf("IMAP check failed: %w", err)
	}

	fmt.Printf("Connected as %s: %s holds %d messages\n", info.Username, info.Mailbox, info.Messages)
	return nil
}
