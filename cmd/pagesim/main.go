// Command pagesim runs the paged-memory scheduler simulation in a terminal.
// Demands typed on stdin (one MB value per line) are submitted as new
// processes; "r" submits a random one. The snapshot is printed periodically.
//
// Usage:
//
//	pagesim [-c config.yaml] [-random 5s] [-display 1s] [-seed n]
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/pagesim"
	"github.com/viant/pagesim/model/types"
	"github.com/viant/pagesim/policy"
	"github.com/viant/pagesim/progress"
	"github.com/viant/pagesim/service/event"
)

func main() {
	var (
		configURL = flag.String("c", "", "Configuration URL (file, mem, s3, gs ...)")
		random    = flag.Duration("random", 5*time.Second, "Random process submission interval, 0 disables")
		display   = flag.Duration("display", time.Second, "Snapshot print interval")
		seed      = flag.Int64("seed", 0, "Random seed, 0 seeds from the clock")
		assign    = flag.String("assign", policy.AssignRandom, "Resource assignment: random or round-robin")
		trace     = flag.String("trace", "", "Write OpenTelemetry spans to this file")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := pagesim.DefaultConfig()
	if *configURL != "" {
		var err error
		if config, err = pagesim.LoadConfig(ctx, *configURL); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, _ := logrus.ParseLevel(config.Log.Level)
	logger.SetLevel(level)

	randomizer := policy.NewRandom(*seed)
	assigner, err := policy.ByName(*assign, randomizer)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	options := []pagesim.Option{
		pagesim.WithConfig(config),
		pagesim.WithLogger(logger),
		pagesim.WithAssigner(assigner),
		pagesim.WithGenerator(policy.NewDemandGenerator(config.Generator.MinDemandMB, config.Generator.MaxDemandMB, randomizer)),
	}
	if *trace != "" {
		options = append(options, pagesim.WithTracing("pagesim", pagesim.Version, *trace))
	}
	srv, err := pagesim.New(options...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rt := srv.Runtime()
	rt.OnProgress(func(c progress.Counters) {
		logger.WithFields(logrus.Fields{
			"admitted":   c.Admitted,
			"blocked":    c.Blocked,
			"terminated": c.Terminated,
			"allocMiss":  c.AllocationMiss,
			"acqMiss":    c.AcquisitionMiss,
		}).Trace("progress")
	})
	rt.Events().Listen(func(e *event.Transition) {
		logger.WithFields(logrus.Fields{"loop": e.Context.Loop, "event": e.Context.EventType}).Debug(e.Data.String())
	})
	if err = rt.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	go readDemands(ctx, rt, logger)
	if *random > 0 {
		go every(ctx, *random, func() {
			if _, err := rt.SubmitRandom(ctx); err != nil {
				logger.WithError(err).Error("random submission failed")
			}
		})
	}

	ticker := time.NewTicker(*display)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdown(rt, logger)
			return
		case <-ticker.C:
			fmt.Print("\033[H\033[2J")
			fmt.Println(rt.Snapshot())
			if fault := rt.Err(); fault != nil {
				fmt.Printf("halted: %+v\n", fault)
			}
		}
	}
}

func readDemands(ctx context.Context, rt *pagesim.Runtime, logger *logrus.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "r" {
			if _, err := rt.SubmitRandom(ctx); err != nil {
				logger.WithError(err).Error("random submission failed")
			}
			continue
		}
		demand, err := types.ParseDemand(line)
		if err != nil {
			logger.Warn(err.Error())
			continue
		}
		if _, err = rt.Submit(ctx, demand); err != nil {
			logger.Warn(err.Error())
		}
	}
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func shutdown(rt *pagesim.Runtime, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}
