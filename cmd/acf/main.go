// Command acf inspects and edits ACF configuration files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/uplang/acf/internal/logging"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	env := &environment{stdin: stdin, stdout: stdout}

	return &cli.App{
		Name:      "acf",
		Usage:     "inspect and edit ACF configuration files",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "log verbosity: debug, info, warn or error",
				EnvVars: []string{"ACF_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logging.ParseLevel(c.String("log-level"))
			if err != nil {
				return err
			}
			logging.InitForCLI(level, stderr)
			env.open()
			return nil
		},
		After: func(c *cli.Context) error {
			return env.close()
		},
		Commands: []*cli.Command{
			checkCommand(env),
			getCommand(env),
			setCommand(env),
			rmCommand(env),
			keysCommand(env),
			exportCommand(env),
			validateCommand(env),
			fmtCommand(env),
			watchCommand(env),
		},
	}
}
