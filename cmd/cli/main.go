package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nomis52/clubsignup/buildinfo"
	"github.com/nomis52/clubsignup/clients/activityclient"
	"github.com/nomis52/clubsignup/config"
	"github.com/nomis52/clubsignup/logging"
	"github.com/nomis52/clubsignup/metrics"
	"github.com/nomis52/clubsignup/notifier"
	"github.com/nomis52/clubsignup/page"
)

type Args struct {
	ConfigPath  string
	ShowVersion bool
	Validate    bool
	Command     string
	Activity    string
	Email       string
	Yes         bool
}

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	args, err := parseArgs()
	if err != nil {
		return err
	}

	if args.ShowVersion {
		showVersion()
		return nil
	}

	if args.ConfigPath == "" {
		return fmt.Errorf("config flag (-c or --config) is required")
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if args.Validate {
		fmt.Printf("Configuration validation successful: %s\n", args.ConfigPath)
		return nil
	}

	logger, err := logging.New(logging.Config(cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	props := buildinfo.Get()
	logger.Debug("clubsignup started",
		"build_time", props.BuildTime,
		"git_commit", props.GitCommit,
		"config_path", args.ConfigPath,
		"command", args.Command,
	)

	var registry metrics.Registry = metrics.Discard
	var push *metrics.PushRegistry
	if cfg.Monitoring.VictoriaMetricsURL != "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.VictoriaMetricsURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
			Logger:   logger.Logger,
		})
		registry = push
	}
	pageMetrics, err := page.NewMetrics(registry)
	if err != nil {
		return err
	}

	client, err := activityclient.New(cfg.API.BaseURL,
		activityclient.WithLogger(logger.Logger),
		activityclient.WithTimeout(cfg.API.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create activities client: %w", err)
	}

	// The process exits right after the command, so the banner never needs hiding.
	n := notifier.New(notifier.WithLogger(logger.Logger))
	defer n.Stop()
	p, err := page.New(client,
		page.WithLogger(logger.Logger),
		page.WithNotifier(n),
		page.WithMetrics(pageMetrics),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := execute(ctx, p, args, os.Stdin, os.Stdout, os.Stderr)

	if push != nil {
		if err := push.Flush(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to push metrics", "error", err)
		}
	}
	return runErr
}

func showVersion() {
	props := buildinfo.Get()
	fmt.Printf("clubsignup\n")
	fmt.Printf("Built: %s\n", props.BuildTime)
	fmt.Printf("Commit: %s\n", props.GitCommit)
}

func parseArgs() (Args, error) {
	configPath := flag.String("config", "", "Path to config file")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	showVersion := flag.Bool("version", false, "Show version information")
	versionShort := flag.Bool("v", false, "Show version information (shorthand)")
	validate := flag.Bool("validate", false, "Validate configuration and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [list|signup|unregister] [command options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMergington High School activity signup\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommand options:\n")
		fmt.Fprintf(os.Stderr, "  -activity string\tActivity name (signup, unregister)\n")
		fmt.Fprintf(os.Stderr, "  -email string\tStudent email (signup, unregister)\n")
		fmt.Fprintf(os.Stderr, "  -yes\tSkip the unregister confirmation\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml signup -activity \"Chess Club\" -email new@mergington.edu\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml unregister -activity \"Chess Club\" -email new@mergington.edu -yes\n", os.Args[0])
	}

	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}

	args := Args{
		ConfigPath:  path,
		ShowVersion: *showVersion || *versionShort,
		Validate:    *validate,
	}
	if err := parseCommand(&args, flag.Args()); err != nil {
		return Args{}, err
	}
	return args, nil
}
