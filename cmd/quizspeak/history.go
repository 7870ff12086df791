package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Mavwarf/quizspeak/internal/config"
	"github.com/Mavwarf/quizspeak/internal/eventlog"
)

// --- ANSI color helpers (disabled when NO_COLOR env var is set) ---

var noColor = os.Getenv("NO_COLOR") != ""

func ansi(code, s string) string {
	if noColor {
		return s
	}
	return code + s + "\033[0m"
}

func bold(s string) string   { return ansi("\033[1m", s) }
func dim(s string) string    { return ansi("\033[2m", s) }
func green(s string) string  { return ansi("\033[32m", s) }
func yellow(s string) string { return ansi("\033[33m", s) }

// parseDays parses a day count, where "all" means 0.
func parseDays(s string) (int, error) {
	if s == "all" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("days must be a positive integer or \"all\"")
	}
	return n, nil
}

func historyCmd(cfg config.Config, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Println("Playback history is disabled (storage.backend = \"off\").")
		return nil
	}
	defer store.Close()

	if len(args) > 0 {
		switch args[0] {
		case "phrases":
			days := 0
			if len(args) > 1 {
				if days, err = parseDays(args[1]); err != nil {
					return err
				}
			}
			return historyPhrases(store, days)
		case "clean":
			if len(args) < 2 {
				return fmt.Errorf("usage: quizspeak history clean <days>")
			}
			days, err := parseDays(args[1])
			if err != nil || days == 0 {
				return fmt.Errorf("days must be a positive integer")
			}
			n, err := store.Clean(days)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d records older than %d days.\n", n, days)
			return nil
		case "clear":
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Println("Playback history cleared.")
			return nil
		}
	}

	count := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("count must be a positive integer")
		}
		count = n
	}

	recs, err := store.Recent(count)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No playback recorded yet.")
		return nil
	}
	// Recent is newest first; print oldest first like a log.
	for i := len(recs) - 1; i >= 0; i-- {
		fmt.Println(formatRecord(recs[i]))
	}
	return nil
}

func historyPhrases(store eventlog.Store, days int) error {
	phrases, err := store.Phrases(days)
	if err != nil {
		return err
	}
	if len(phrases) == 0 {
		fmt.Println("No phrases spoken.")
		return nil
	}
	fmt.Printf("%s  %s\n", bold(padL("Count", 6)), bold("Phrase"))
	for _, p := range phrases {
		fmt.Printf("%s  %s\n", padL(strconv.Itoa(p.Count), 6), truncate(p.Text, 70))
	}
	return nil
}

// formatRecord renders one record as a single terminal line.
func formatRecord(r eventlog.Record) string {
	var b strings.Builder
	b.WriteString(dim(r.Time.Local().Format("2006-01-02 15:04:05")))
	b.WriteString("  ")
	kind := padR(r.Kind, 8)
	switch r.Kind {
	case eventlog.KindErrored:
		kind = yellow(kind)
	case eventlog.KindStarted:
		kind = green(kind)
	}
	b.WriteString(kind)
	b.WriteString("  ")
	b.WriteString(padR(r.Trigger, 8))
	if r.Voice != "" {
		fmt.Fprintf(&b, "  %s (%s)", r.Voice, r.Locale)
	}
	if r.Text != "" {
		fmt.Fprintf(&b, "  %q", truncate(r.Text, 48))
	}
	if r.Err != "" {
		b.WriteString("  " + r.Err)
	}
	return b.String()
}

// padL pads s to width with spaces on the left.
func padL(s string, width int) string {
	if pad := width - len(s); pad > 0 {
		return strings.Repeat(" ", pad) + s
	}
	return s
}

// padR pads s to width with spaces on the right.
func padR(s string, width int) string {
	if pad := width - len(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// truncate shortens s to at most n runes, marking the cut with "…".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
