package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/yukyudata/deployops/internal/ctl"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "deploy":
		fs := flag.NewFlagSet("deploy", flag.ExitOnError)
		file := fs.String("f", "", "Path to release definition YAML file (required)")
		wait := fs.Bool("wait", false, "Block until the deployment reaches a terminal result")
		timeout := fs.Duration("timeout", 30*time.Minute, "Timeout when waiting")
		fs.Parse(os.Args[2:])

		if *file == "" {
			fmt.Fprintln(os.Stderr, "Error: -f flag is required")
			fs.Usage()
			os.Exit(1)
		}

		if err := ctl.Deploy(*file, *wait, *timeout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "canary":
		fs := flag.NewFlagSet("canary", flag.ExitOnError)
		file := fs.String("f", "", "Path to release definition YAML file (required)")
		wait := fs.Bool("wait", false, "Block until the rollout reaches a terminal result")
		timeout := fs.Duration("timeout", 90*time.Minute, "Timeout when waiting")
		fs.Parse(os.Args[2:])

		if *file == "" {
			fmt.Fprintln(os.Stderr, "Error: -f flag is required")
			fs.Usage()
			os.Exit(1)
		}

		if err := ctl.Canary(*file, *wait, *timeout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "rollback":
		fs := flag.NewFlagSet("rollback", flag.ExitOnError)
		apiURL := fs.String("api", "http://localhost:8090", "Deployment API base URL")
		apiKey := fs.String("key", "", "API key (defaults to DEPLOYOPS_API_KEY)")
		deployment := fs.String("deployment", "", "Restore the backup taken by this deployment")
		backup := fs.String("backup", "", "Restore an exact backup artifact path")
		fs.Parse(os.Args[2:])

		if err := ctl.Rollback(*apiURL, *apiKey, *deployment, *backup); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		apiURL := fs.String("api", "http://localhost:8090", "Deployment API base URL")
		apiKey := fs.String("key", "", "API key (defaults to DEPLOYOPS_API_KEY)")
		fs.Parse(os.Args[2:])

		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: deployctl status [-api URL] <deployment-id>")
			os.Exit(1)
		}

		if err := ctl.Status(*apiURL, *apiKey, fs.Arg(0)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		apiURL := fs.String("api", "http://localhost:8090", "Deployment API base URL")
		apiKey := fs.String("key", "", "API key (defaults to DEPLOYOPS_API_KEY)")
		fs.Parse(os.Args[2:])

		if err := ctl.List(*apiURL, *apiKey); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "smoke":
		fs := flag.NewFlagSet("smoke", flag.ExitOnError)
		host := fs.String("host", "http://localhost:8000", "Application base URL")
		fs.Parse(os.Args[2:])

		if err := ctl.Smoke(context.Background(), *host); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "health":
		fs := flag.NewFlagSet("health", flag.ExitOnError)
		host := fs.String("host", "http://localhost:8000", "Application base URL")
		interval := fs.Duration("interval", 30*time.Second, "Probe interval")
		threshold := fs.Int("threshold", 3, "Consecutive failures before alerting")
		alertCmd := fs.String("alert-cmd", "", "Shell command to run when the alert fires")
		fs.Parse(os.Args[2:])

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := ctl.Watch(ctx, *host, *interval, *threshold, *alertCmd); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "slot":
		fs := flag.NewFlagSet("slot", flag.ExitOnError)
		apiURL := fs.String("api", "http://localhost:8090", "Deployment API base URL")
		apiKey := fs.String("key", "", "API key (defaults to DEPLOYOPS_API_KEY)")
		fs.Parse(os.Args[2:])

		if err := ctl.SlotStatus(*apiURL, *apiKey); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  deployctl deploy  -f <release.yaml> [-wait] [-timeout 30m]
  deployctl canary  -f <release.yaml> [-wait] [-timeout 90m]
  deployctl rollback [-api URL] [-deployment <id>] [-backup <path>]
  deployctl status  [-api URL] <deployment-id>
  deployctl list    [-api URL]
  deployctl slot    [-api URL]
  deployctl smoke   [-host URL]
  deployctl health  [-host URL] [-interval 30s] [-threshold 3] [-alert-cmd CMD]

Commands:
  deploy    Start a blue-green deployment from a release definition
  canary    Start a staged canary rollout from a release definition
  rollback  Restore a database backup and restart the active slot
  status    Show one deployment record
  list      List recent deployments, newest first
  slot      Show the active slot and the next deploy target
  smoke     Run the post-deployment check suite against a host
  health    Watch a host's health endpoint with edge-triggered alerting

Flags:
  -f string         Path to release definition YAML file
  -api string       Deployment API base URL (default: http://localhost:8090)
  -key string       API key (defaults to DEPLOYOPS_API_KEY env var)
  -wait             Block until the run reaches a terminal result
  -timeout duration Timeout when waiting`)
}
