// Package main implements rollpipe, a filter that copies stdin into a
// self-rotating log file.
//
// Rotation comes from a one-line descriptor:
//
//	myapp 2>&1 | rollpipe -d size:1048576:5:/var/log/myapp.log
//	myapp 2>&1 | rollpipe -d time:1:MIDNIGHT:L:7:/var/log/myapp.log
//
// or from a YAML or JSON config file:
//
//	myapp 2>&1 | rollpipe -c /etc/rollpipe.yaml
//
// SIGINT and SIGTERM stop the pipe and close the log file cleanly.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v3"
	"golift.io/rollerr"
	"golift.io/rollerr/descriptor"
)

// ErrNoSink means neither way of describing the log file was given.
var ErrNoSink = errors.New("one of --descriptor or --config is required")

func main() {
	app := &cli.Command{
		Name:  "rollpipe",
		Usage: "copy stdin into a self-rotating log file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "descriptor",
				Aliases: []string{"d"},
				Usage:   "rotation descriptor, size:<bytes>:<backups>:<path> or time:<count>:<unit>:<tz>:<backups>:<path>",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML or JSON config file describing the log file and policy",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print rotation activity on stderr",
			},
		},
		Action: pipe,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func pipe(ctx context.Context, cmd *cli.Command) error {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "rollpipe",
		Level:  hclog.Warn,
		Output: os.Stderr,
	})
	if cmd.Bool("verbose") {
		logger.SetLevel(hclog.Debug)
	}

	sink, err := openSink(cmd, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		// Closing stdin unblocks the scanner so the deferred close runs.
		<-ctx.Done()
		os.Stdin.Close()
	}()

	var line []byte

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line = append(line[:0], scanner.Bytes()...)
		line = append(line, '\n')

		if _, err := sink.Write(line); err != nil {
			return fmt.Errorf("writing log line: %w", err)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("reading stdin: %w", err)
	}

	return nil
}

// openSink builds the sink from whichever source was flagged and opens it.
func openSink(cmd *cli.Command, logger hclog.Logger) (*rollerr.Sink, error) {
	var (
		sink *rollerr.Sink
		err  error
	)

	switch {
	case cmd.String("descriptor") != "":
		sink, err = descriptor.Parse(cmd.String("descriptor"), &descriptor.Options{Logger: logger})
	case cmd.String("config") != "":
		var config *Config
		if config, err = loadConfig(cmd.String("config")); err == nil {
			sink, err = config.sink(logger)
		}
	default:
		return nil, ErrNoSink
	}

	if err != nil {
		return nil, err
	}

	if err := sink.Open(); err != nil {
		return nil, err
	}

	return sink, nil
}
