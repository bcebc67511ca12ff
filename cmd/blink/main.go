// Command blink runs a handful of coroutines against a simulated board
// and logs every pin transition.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/webriots/cosched"
	"github.com/webriots/cosched/internal/board"
)

func main() {
	var (
		configPath = flag.String("config", "", "pool config file (.toml, .yaml or .yml)")
		slots      = flag.Int("slots", 0, "number of coroutine slots, overrides the config file")
		duration   = flag.Uint("duration", 2000, "simulated run time in milliseconds")
		tick       = flag.Uint("tick", 10, "simulated milliseconds per main loop iteration")
		stopAt     = flag.Uint("stop", 600, "terminate the forever coroutines at this time")
		verbose    = flag.Bool("v", false, "log scheduler trace events")
	)
	flag.Parse()

	if err := run(*configPath, *slots, *duration, *tick, *stopAt, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "blink:", err)
		os.Exit(1)
	}
}

func run(configPath string, slots int, durationMs, tickMs, stopMs uint, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg := cosched.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = cosched.LoadConfig(configPath); err != nil {
			return err
		}
	}
	if slots > 0 {
		cfg.Slots = slots
	}
	if tickMs == 0 {
		return fmt.Errorf("tick must be positive")
	}
	for name, v := range map[string]uint{"duration": durationMs, "tick": tickMs, "stop": stopMs} {
		if v > math.MaxUint32 {
			return fmt.Errorf("%s %d exceeds the %d ms clock range", name, v, uint32(math.MaxUint32))
		}
	}
	duration, tick, stopAt := uint32(durationMs), uint32(tickMs), uint32(stopMs)

	clock := &board.SimClock{}
	pool, err := cosched.New(
		cosched.WithConfig(cfg),
		cosched.WithClock(clock),
		cosched.WithLogger(log),
	)
	if err != nil {
		return err
	}

	s := &sketch{
		log:   log,
		led:   board.NewLogPin("led", clock, log),
		beep:  board.NewLogPin("beep", clock, log),
		pulse: board.NewLogPin("pulse", clock, log),
	}

	once := pool.Start(s.flashOnce)
	var forever []*cosched.Coroutine
	forever = append(forever, pool.Start(s.flashForever))
	forever = append(forever, pool.Start(s.waitThenReport))
	forever = append(forever, pool.Spawn(s.heartbeat))

	for clock.Millis() < duration {
		now := clock.Millis()
		if once.IsTerminated() {
			// flashOnce ended by itself, so its slot was retired in the last update
			once = pool.Start(s.flashThrice)
		}
		if now >= stopAt && forever != nil {
			for _, c := range forever {
				c.Terminate()
			}
			forever = nil
		}
		pool.UpdateAt(now)
		clock.Advance(tick)
	}

	st := pool.Stats()
	log.Info("done", "slots", st.Slots, "active", st.Active, "started", st.Started, "finished", st.Finished)
	return nil
}
