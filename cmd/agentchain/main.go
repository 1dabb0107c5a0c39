package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentchain"
	"github.com/hupe1980/agentchain/config"
	"github.com/hupe1980/agentchain/logging"
	"github.com/hupe1980/agentchain/model"
	"github.com/hupe1980/agentchain/workflow"
)

var version = "0.1.0"

// ModelFactory creates the transport for a provider config and resolved key.
type ModelFactory func(p config.ProviderConfig, apiKey string) (model.Model, error)

// KeyResolver returns the provider credential.
type KeyResolver func(p config.ProviderConfig) (string, error)

type app struct {
	newModel   ModelFactory
	resolveKey KeyResolver
	stdout     io.Writer
	stderr     io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		newModel:   config.NewModel,
		resolveKey: config.ResolveAPIKey,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agentchain",
		Short:         "Run sequential LLM agent workflows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringP("config", "c", "", "path to a workflow YAML file (default: built-in calculation workflow)")

	root.AddCommand(a.runCmd())
	root.AddCommand(a.validateCmd())
	return root
}

func (a *app) runCmd() *cobra.Command {
	var (
		task      string
		showTrace bool
		logLevel  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workflow on a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return a.fail(err)
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return a.fail(err)
			}
			logger := logging.NewSlogLogger(level, cfg.LogFormat, a.stderr)

			chain, err := agentchain.New(cfg, func(o *agentchain.Options) {
				o.Logger = logger
				o.ResolveAPIKey = a.resolveKey
				o.NewModel = a.newModel
			})
			if err != nil {
				return a.fail(err)
			}

			res, err := chain.RunWithTrace(cmd.Context(), task)
			if err != nil {
				var werr *workflow.Error
				if showTrace && errors.As(err, &werr) {
					_ = a.printTrace(werr.Trace, "")
				}
				return a.fail(err)
			}
			if showTrace {
				return a.printTrace(res.Trace, res.Output)
			}
			_, err = fmt.Fprintln(a.stdout, res.Output)
			return err
		},
	}
	cmd.Flags().StringVarP(&task, "task", "t", "", "task handed to the first agent")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print every agent's output as JSON")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the workflow configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return a.fail(err)
			}
			_, err = fmt.Fprintf(a.stdout, "%s: %d agents, provider %s (%s)\n",
				cfg.Name, len(cfg.Agents), cfg.Provider.Kind, cfg.Provider.Model)
			return err
		},
	}
}

func (a *app) loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func (a *app) printTrace(trace []workflow.Step, output string) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(workflow.Result{Output: output, Trace: trace})
}

func (a *app) fail(err error) error {
	fmt.Fprintf(a.stderr, "error: %v\n", err)
	return err
}
