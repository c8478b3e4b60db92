package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/drunlade/go-xmodem/xmodem"
)

var (
	verbose = flag.Bool("v", false, "verbose mode")
	quiet   = flag.Bool("q", false, "quiet mode")
	logFile = flag.String("log", "", "protocol log file (for debugging)")
	help    = flag.Bool("h", false, "show help")
	version = flag.Bool("version", false, "show version")
)

const versionString = "gsx version 0.1.0"

func main() {
	flag.Parse()

	if *help {
		showUsage(0)
	}

	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "%s: exactly one file must be specified\n", os.Args[0])
		showUsage(1)
	}
	filename := args[0]

	file, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", filename, err)
		os.Exit(1)
	}
	defer file.Close()

	// The transfer runs over stdin/stdout. When stdin is a terminal it
	// has to be switched to raw mode so control bytes pass through
	// unmangled.
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to set raw terminal mode: %v\n", err)
			os.Exit(1)
		}
		defer term.Restore(fd, oldState)
	}

	callbacks := &xmodem.Callbacks{
		OnTransferStart: func(dir xmodem.Direction) {
			if *verbose && !*quiet {
				fmt.Fprintf(os.Stderr, "Sending: %s\n", filename)
			}
		},
		OnProgress: func(transferred int64, rate float64) {
			if *verbose && !*quiet {
				fmt.Fprintf(os.Stderr, "\r%d bytes (%.0f bytes/s)", transferred, rate)
			}
		},
		OnTransferComplete: func(dir xmodem.Direction, bytes int64, duration time.Duration) {
			if *verbose && !*quiet {
				fmt.Fprintf(os.Stderr, "\nCompleted in %v\n", duration)
			}
		},
		OnError: func(err error, context string) {
			if !*quiet {
				fmt.Fprintf(os.Stderr, "\nError in %s: %v\n", context, err)
			}
		},
	}

	session := xmodem.NewSession(&stdioRW{},
		xmodem.WithCallbacks(callbacks),
		xmodem.WithLogger(makeLogger()),
	)

	n, err := session.Send(file)
	if err != nil {
		os.Exit(1)
	}

	if !*quiet {
		fmt.Fprintf(os.Stderr, "\n%s: %d bytes sent\n", filename, n)
	}
}

// stdioRW is the stdin/stdout transport.
type stdioRW struct{}

func (*stdioRW) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (*stdioRW) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func makeLogger() xmodem.Logger {
	if *logFile != "" {
		logger, err := xmodem.NewFileLogger(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log file: %v\n", err)
			os.Exit(1)
		}
		return logger
	}
	if *verbose {
		return xmodem.NewConsoleLogger(os.Stderr, slog.LevelDebug)
	}
	return xmodem.NoopLogger{}
}

func showUsage(exitcode int) {
	fmt.Fprintf(os.Stderr, `%s - send a file with the XMODEM protocol

Usage: %s [options] file

Options:
  -h            show this help message
  -log FILE     write a protocol debug log to FILE
  -q            quiet mode, minimal output
  -v            verbose mode
  --version     show version

Examples:
  %s file.bin            # Send a single file over stdin/stdout
  %s -v file.bin         # Send with progress on stderr

`, versionString, os.Args[0], os.Args[0], os.Args[0])
	os.Exit(exitcode)
}
