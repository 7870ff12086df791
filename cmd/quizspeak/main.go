package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/Mavwarf/quizspeak/internal/config"
	"github.com/Mavwarf/quizspeak/internal/logging"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// options are the global flags accepted before or after the command.
type options struct {
	configPath string
	listen     string
	engine     string
}

// parseArgs strips the global flags from args and returns the rest.
func parseArgs(args []string) (options, []string, error) {
	var o options
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config", "-c", "--listen", "-l", "--engine", "-e":
			if i+1 >= len(args) {
				return o, nil, fmt.Errorf("%s requires a value", args[i])
			}
			v := args[i+1]
			i++
			switch args[i-1] {
			case "--config", "-c":
				o.configPath = v
			case "--listen", "-l":
				o.listen = v
			default:
				o.engine = v
			}
		default:
			rest = append(rest, args[i])
		}
	}
	return o, rest, nil
}

// loadConfig loads the config and applies the command-line overrides.
func loadConfig(o options) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.listen != "" {
		cfg.Server.Listen = o.listen
	}
	if o.engine != "" {
		cfg.Speech.Engine = o.engine
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func main() {
	o, args, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "help", "-h", "--help":
		printUsage()
		return
	case "version", "-V", "--version":
		printVersion()
		return
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch args[0] {
	case "serve":
		err = serveCmd(cfg)
	case "say":
		err = sayCmd(cfg, args[1:])
	case "voices":
		err = voicesCmd(cfg)
	case "history":
		err = historyCmd(cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", args[0])
		fmt.Fprintf(os.Stderr, "Run 'quizspeak help' for usage.\n")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("quizspeak %s (%s) %s/%s\n", version, buildDate, runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Printf("quizspeak %s - Read quiz prompts aloud\n", version)
	fmt.Println(`
Usage:
  quizspeak [options] <command> [args]

Options:
  --config, -c <path>    Path to quizspeak-config.json
  --listen, -l <addr>    Override server.listen
  --engine, -e <name>    Override speech.engine (auto, system, openai, off)

Commands:
  serve                  Serve the quiz page and its playback controls
  say <text...>          Speak text; space toggles, q quits
  voices                 List the voices of the configured engine
  history [n]            Show the last n playback records (default 10)
  history phrases [days|all]
                         Most spoken prompts
  history clean <days>   Remove records older than days
  history clear          Remove every record
  version, -V            Show version and build date
  help, -h, --help       Show this help message

Config resolution:
  1. --config <path>                         (explicit)
  2. quizspeak-config.json next to binary    (portable)
  3. ~/.config/quizspeak/quizspeak-config.json (user default)`)
}
