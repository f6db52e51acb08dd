package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	ctrunner "github.com/phetsims/ct-runner"
	"github.com/phetsims/ct-runner/flags"
	"github.com/phetsims/ct-runner/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "ct-runner"
	app.Usage = "Continuous Testing Browser Client"
	app.Description = "ct-runner pulls test pages from a continuous-testing server, runs them in a headless browser and reports the results back"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), ctrunner.ExitCodeFor(err)))
		}
	}

	// Start telemetry
	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		logrus.WithError(err).Fatal("failed to setup open telemetry")
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start sidecar servers
	svc := service.New(logrus.StandardLogger())
	svc.Start(ctx)
	defer svc.Shutdown()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}

func run(cliCtx *cli.Context) error {
	log, err := newLogger(cliCtx)
	if err != nil {
		return ctrunner.NewRuntimeError(err)
	}

	cfg, err := ctrunner.NewConfig(cliCtx, log)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return ctrunner.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	ctx, cancel := context.WithCancelCause(cliCtx.Context)
	defer cancel(nil)

	svc, err := ctrunner.New(ctx, cfg, Version, cancel)
	if err != nil {
		return ctrunner.NewRuntimeError(fmt.Errorf("failed to create service: %w", err))
	}

	if err := svc.Start(ctx); err != nil {
		return err
	}
	if cfg.RunOnce {
		// The run-once path triggers shutdown through the cancel callback.
		<-ctx.Done()
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return nil
	}

	// Continuous mode: run until interrupted, then stop cleanly.
	<-ctx.Done()
	log.Info("shutdown signal received")
	return svc.Stop(context.Background())
}

func newLogger(cliCtx *cli.Context) (logrus.FieldLogger, error) {
	level, err := logrus.ParseLevel(cliCtx.String(flags.LogLevel.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	if cliCtx.String(flags.LogFormat.Name) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrus.StandardLogger(), nil
}
