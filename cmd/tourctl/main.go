// tourctl drives the tour booking API from a terminal: sign in, search tours,
// manage the cart, confirm a booking and wait for its payment.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tourbooking/internal/client"
	"tourbooking/internal/utils"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", client.UserMessage(err))
		os.Exit(1)
	}
}

type app struct {
	cfg    Config
	api    *client.Client
	log    utils.Logger
	stdout *os.File
}

func run(args []string) error {
	global := pflag.NewFlagSet("tourctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	configPath := global.String("config", defaultConfigPath(), "path to the YAML config file")
	baseURL := global.String("base-url", "", "API base URL (overrides config)")
	debug := global.Bool("debug", false, "log client activity to stderr")
	global.Usage = func() { printUsage(global) }
	if err := global.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *debug {
		cfg.Debug = true
	}

	log := utils.NopLogger()
	if cfg.Debug {
		log = utils.NewLogger(true)
	}
	utils.SetDefaultLogger(log)

	rest := global.Args()
	if len(rest) == 0 {
		printUsage(global)
		return pflag.ErrHelp
	}

	a := &app{cfg: cfg, log: log, stdout: os.Stdout}
	a.api = client.New(client.Options{
		BaseURL: cfg.BaseURL,
		Local:   client.NewFileStorage(cfg.StoragePath),
		Logger:  log,
		OnLogout: func(redirect string) {
			fmt.Fprintf(os.Stderr, "session expired; run `tourctl login` (%s)\n", redirect)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, ok := commands[rest[0]]
	if !ok {
		printUsage(global)
		return fmt.Errorf("unknown command %q", rest[0])
	}
	return cmd.run(ctx, a, rest[1:])
}

func printUsage(fs *pflag.FlagSet) {
	fmt.Fprint(os.Stderr, `tourctl talks to the tour booking API.

Usage:
  tourctl [global flags] <command> [flags] [args]

Commands:
`)
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprint(os.Stderr, "\nGlobal flags:\n")
	fs.SetOutput(os.Stderr)
	fs.PrintDefaults()
}
