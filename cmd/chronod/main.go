package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"chronod/internal/app"
	"chronod/internal/config"
)

func main() {
	var (
		cfgPath string
		check   bool
		history int
		job     string
	)
	pflag.StringVarP(&cfgPath, "config", "c", config.DefaultPath, "path to config file (yaml or json); built-in defaults if the default path is missing")
	pflag.BoolVar(&check, "check", false, "validate the config, print each job's next due time and exit")
	pflag.IntVar(&history, "history", 0, "print the N most recent runs from the run history and exit")
	pflag.StringVar(&job, "job", "", "limit --history to one job")
	pflag.Parse()

	switch {
	case check:
		os.Exit(runCheck(cfgPath))
	case history > 0:
		os.Exit(runHistory(cfgPath, job, history))
	}
	os.Exit(run(cfgPath))
}

func run(cfgPath string) int {
	a, err := app.NewApp(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		for sig := range sigs {
			// Only flip the stop flag here; the grace wait happens in Stop.
			if sig == syscall.SIGTERM {
				a.RequestStop(app.StopSIGTERM)
			} else {
				a.RequestStop(app.StopSIGINT)
			}
		}
	}()

	if err := a.Start(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		_ = a.Stop(context.Background(), app.StopFatalError)
		return 1
	}

	<-a.Done()
	reason := app.StopAppStop
	if a.Err() != nil {
		reason = app.StopFatalError
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Lifecycle().Grace()+10*time.Second)
	defer cancel()
	if err := a.Stop(ctx, reason); err != nil {
		fmt.Fprintln(os.Stderr, "stop:", err)
	}
	if err := a.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	return 0
}

func runCheck(cfgPath string) int {
	cfg, err := config.NewConfigManager(cfgPath).Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		return 1
	}
	plan, err := app.Plan(cfg, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid job:", err)
		return 1
	}
	for _, j := range plan {
		fmt.Printf("%-12s %-24s next %s\n", j.Name, j.Recurrence, j.NextDue.Format(time.RFC3339))
	}
	fmt.Printf("ok: %d jobs\n", len(plan))
	return 0
}

func runHistory(cfgPath, job string, limit int) int {
	cfg, err := config.NewConfigManager(cfgPath).Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		return 1
	}
	runs, err := app.History(context.Background(), cfg, job, limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "history:", err)
		return 1
	}
	for _, r := range runs {
		status := "ok"
		if !r.OK {
			status = "FAILED: " + r.Error
		}
		fmt.Printf("%s %-12s %6dms %s\n", r.Started.Format(time.RFC3339), r.Job, r.TookMS, status)
	}
	return 0
}
