package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Mavwarf/quizspeak/internal/config"
	"github.com/Mavwarf/quizspeak/internal/eventloop"
	"github.com/Mavwarf/quizspeak/internal/playback"
)

const sayTrigger playback.TriggerID = "say"

// sayCmd speaks text through the same controller the page uses. On a
// terminal, space toggles playback and q quits; otherwise it speaks once
// and returns when the utterance ends.
func sayCmd(cfg config.Config, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return errors.New("say requires text")
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loop := eventloop.New()
	sched := eventloop.NewScheduler(loop, frameInterval(cfg))
	ctrl := playback.New(loop, sched, engine, cfg.Selector(), controllerOptions(cfg)...)
	ctrl.Registry().Register(playback.Trigger{ID: sayTrigger, Text: text})

	done := make(chan error, 1)
	ctrl.Subscribe(func(ev playback.Event) {
		if line := describeEvent(ev); line != "" {
			fmt.Fprint(os.Stderr, line+"\r\n")
		}
		var err error
		switch ev.Kind {
		case playback.EventErrored:
			err = errors.New(ev.Err)
		case playback.EventEnded:
		default:
			return
		}
		select {
		case done <- err:
		default:
		}
	})
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go loop.Run(loopCtx)
	defer func() { _ = disposeAndStop(loop, ctrl, stopLoop) }()

	toggle := func() error {
		var err error
		if doErr := loop.Do(func() { err = ctrl.Toggle(sayTrigger) }); doErr != nil {
			return doErr
		}
		return err
	}
	if err := toggle(); err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return nil
		}
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("cannot enter raw mode: %w", err)
	}
	defer term.Restore(fd, old)
	fmt.Fprint(os.Stderr, "space: play/stop  q: quit\r\n")

	keys := make(chan byte, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				keys <- buf[0]
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
		case k := <-keys:
			switch k {
			case ' ':
				if err := toggle(); err != nil {
					return err
				}
			case 'q', 'Q', 3: // 3 = Ctrl-C in raw mode
				return nil
			}
		}
	}
}

// describeEvent renders a controller event for the terminal. Level
// events are not shown.
func describeEvent(ev playback.Event) string {
	switch ev.Kind {
	case playback.EventStarted:
		return fmt.Sprintf("%s speaking with %s (%s)", green("▶"), ev.Voice, ev.Locale)
	case playback.EventEnded:
		return dim("done")
	case playback.EventStopped:
		return dim("stopped")
	case playback.EventRetry:
		return dim(fmt.Sprintf("waiting for voices (attempt %d)", ev.Attempt))
	case playback.EventErrored:
		return yellow("error: " + ev.Err)
	}
	return ""
}
