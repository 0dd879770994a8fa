// Command regadmin is a REPL demo for the registrar's admin console:
// status/verify/help commands against a running store, with no scheduler,
// notifier, or background daemon attached. Grounded on the teacher's
// cmd/ripc/main.go (flag.NewFlagSet with custom Usage, package-level error
// vars, os.Stat existence checks, age-backed secure store construction).
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caasmo/regverify/admin"
	"github.com/caasmo/regverify/config"
	"github.com/caasmo/regverify/engine"
	"github.com/caasmo/regverify/primitives"
	"github.com/caasmo/regverify/store/zombiezen"
)

var (
	ErrMissingFlag = errors.New("missing required global flag")
	ErrDBNotFound  = errors.New("database file not found")
	ErrOpenStore   = errors.New("failed to open store")
	ErrLoadConfig  = errors.New("failed to load secure config")
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, input io.Reader, output, errOutput io.Writer) error {
	fs := flag.NewFlagSet("regadmin", flag.ContinueOnError)
	fs.SetOutput(errOutput)

	dbPathFlag := fs.String("dbfile", "", "Path to the SQLite store file")
	ageKeyFlag := fs.String("age-key", "", "Path to the age identity file protecting the secure config store")
	chainFlag := fs.String("chain", "", "Chain this console administers (e.g. polkadot, kusama)")

	originalUsage := fs.Usage
	fs.Usage = func() {
		fmt.Fprintf(errOutput, "Usage: regadmin -dbfile <path> -age-key <path> -chain <name>\n\n")
		fmt.Fprintf(errOutput, "Starts an interactive admin console over a running registrar store.\n\n")
		fmt.Fprintf(errOutput, "Options:\n")
		originalUsage()
		fmt.Fprintf(errOutput, "\nConsole commands:\n")
		fmt.Fprintf(errOutput, "  status <address>\n")
		fmt.Fprintf(errOutput, "  verify <address> <field> [field...]\n")
		fmt.Fprintf(errOutput, "  help\n")
		fmt.Fprintf(errOutput, "  quit\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dbPathFlag == "" || *ageKeyFlag == "" || *chainFlag == "" {
		fs.Usage()
		return ErrMissingFlag
	}
	if _, err := os.Stat(*dbPathFlag); err != nil {
		return fmt.Errorf("%w: %s", ErrDBNotFound, *dbPathFlag)
	}

	logger := slog.New(slog.NewTextHandler(errOutput, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := zombiezen.New(*dbPathFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenStore, err)
	}
	defer store.Close()

	secureStore, err := config.NewSecureStoreAge(store, *ageKeyFlag, logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	ctx := context.Background()
	cfg, err := config.LoadFromSecureStore(ctx, secureStore, logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	eng := engine.New(store, logger)
	dispatcher := admin.NewDispatcher(eng, logger)
	chain := primitives.ChainName(*chainFlag)
	if chain == "" {
		chain = primitives.ChainName(cfg.Chain.Name)
	}

	fmt.Fprintf(output, "regadmin connected to %s (%s)\n", *dbPathFlag, chain)
	fmt.Fprint(output, "> ")

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "quit" || line == "exit" {
			break
		}
		if line != "" {
			cmd, parseErr := admin.ParseCommand(chain, line)
			if parseErr != nil {
				fmt.Fprintln(output, parseErr.String())
			} else {
				resp := dispatcher.Dispatch(ctx, cmd)
				fmt.Fprintln(output, resp.String())
			}
		}
		fmt.Fprint(output, "> ")
	}
	fmt.Fprintln(output)
	return scanner.Err()
}
