package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/ValdemirJunior2020/churchApp-Saas/internal/config"
	"github.com/ValdemirJunior2020/churchApp-Saas/internal/logging"
	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const usage = `usage: congregate [-config file] [-env file] <command> [flags]

commands:
  login    sign in to a church
  join     register as a member of a church and sign in
  create   create a church with yourself as admin
  logout   sign out and drop cached church data
  status   show the current session and access gate
  refresh  re-read one collection from the backend
  show     print cached collections
  mutate   create, update or delete a record
  stub     serve an in-memory backend for local development
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "congregate: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	fs := flag.NewFlagSet("congregate", flag.ContinueOnError)
	configFile := fs.String("config", "", "YAML config file")
	envFile := fs.String("env", ".env", "dotenv file loaded into the environment when present")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", *envFile, err)
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.GetLogLevel(), cfg.GetEnv())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name, rest := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", name)
	}
	return cmd(ctx, &app{cfg: cfg, logger: logger}, rest)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
