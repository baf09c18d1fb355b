package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbot-ai/finbot-go/pkg/agent"
	"github.com/finbot-ai/finbot-go/pkg/api"
	"github.com/finbot-ai/finbot-go/pkg/bus"
	"github.com/finbot-ai/finbot-go/pkg/config"
	"github.com/finbot-ai/finbot-go/pkg/providers"
	"github.com/finbot-ai/finbot-go/pkg/registry"
	"github.com/finbot-ai/finbot-go/pkg/report"
	"github.com/finbot-ai/finbot-go/pkg/scheduler"
	"github.com/finbot-ai/finbot-go/pkg/userconfig"
	"github.com/finbot-ai/finbot-go/pkg/utils"
	"github.com/finbot-ai/finbot-go/pkg/workspace"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "finbot",
		Short: "Multi-tenant financial report assistant",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(serveCmd())
	root.AddCommand(reportCmd())
	root.AddCommand(userCmd())
	root.AddCommand(onboardCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// app bundles the wired services for a command invocation.
type app struct {
	cfg        *config.Config
	workspaces *workspace.Store
	configs    *userconfig.Store
	scheduler  *scheduler.Service
	reports    *report.Generator
	registry   *registry.Registry
	runtime    *agent.Runtime
	bus        *bus.EventBus
}

func buildApp(needProvider bool) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	base := expandPath(cfg.Agents.Defaults.WorkspaceBase)
	utils.SetupLogger(filepath.Join(base, "logs"))

	workspaces, err := workspace.NewStore(base)
	if err != nil {
		return nil, err
	}
	configs, err := userconfig.NewStore(base)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		workspaces: workspaces,
		configs:    configs,
		bus:        bus.NewEventBus(),
	}

	var client providers.Generator
	if needProvider {
		client, err = providers.NewGenerator(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w (run 'finbot onboard' or edit %s)", err, filepath.Join(".finbot", "config.json"))
		}
	}

	a.reports = report.NewGenerator(configs, workspaces, client, a.bus)
	a.reports.MaxAttempts = cfg.Report.MaxAttempts
	a.reports.BackoffBase = time.Duration(cfg.Report.BackoffBaseMs) * time.Millisecond
	a.reports.CallTimeout = time.Duration(cfg.Report.TimeoutSeconds) * time.Second

	a.scheduler = scheduler.NewService(a.reports.RunScheduled)
	a.scheduler.MaxInstances = cfg.Scheduler.MaxInstances
	a.scheduler.Grace = time.Duration(cfg.Scheduler.GraceSeconds) * time.Second

	a.registry = registry.NewRegistry(workspaces, configs, a.scheduler)
	if needProvider {
		a.runtime = agent.NewRuntime(workspaces, configs, client, a.bus)
	}
	return a, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(true)
			if err != nil {
				return err
			}

			a.scheduler.Start()
			defer a.scheduler.Stop()
			defer a.bus.Stop()

			// Log-only delivery for the push channel. Real transports
			// subscribe here.
			a.bus.Subscribe("push", func(n bus.Notification) {
				fmt.Printf("[push] %s: %s\n", n.TenantID, n.Subject)
			})
			go a.bus.Dispatch()

			if err := a.registry.SyncAllSchedules(); err != nil {
				fmt.Printf("Warning: schedule restore failed: %v\n", err)
			}

			server := api.NewServer(a.registry, a.reports, a.runtime, a.scheduler)
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(a.cfg.Gateway.Host, a.cfg.Gateway.Port)
			}()
			fmt.Printf("finbot gateway listening on %s:%d\n", a.cfg.Gateway.Host, a.cfg.Gateway.Port)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
				fmt.Println("shutting down")
				return server.Shutdown()
			}
		},
	}
}

func reportCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "report <user-id>",
		Short: "Generate a report for one user immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(true)
			if err != nil {
				return err
			}
			defer a.bus.Stop()

			// No dispatcher runs on the one-shot path; notification
			// fan-out belongs to serve.
			a.reports.Bus = nil

			result, err := a.reports.Generate(cmd.Context(), args[0], kind, nil)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("generation failed after %d attempts: %s", result.Attempts, result.Error)
			}
			fmt.Printf("Report %s written to %s\n", result.ReportID, result.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", "daily", "report type (daily, weekly, alert)")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <user-id>",
			Short: "Create a user with a fresh workspace",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(false)
				if err != nil {
					return err
				}
				cfg, err := a.registry.CreateTenant(args[0], nil)
				if err != nil {
					return err
				}
				fmt.Printf("Created user %s (workspace: %s)\n", cfg.UserID, a.workspaces.Path(cfg.UserID))
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List all users",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(false)
				if err != nil {
					return err
				}
				ids, err := a.registry.ListTenants()
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				fmt.Printf("%d user(s)\n", len(ids))
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <user-id>",
			Short: "Show a user's configuration and workspace",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(false)
				if err != nil {
					return err
				}
				t, err := a.registry.GetTenant(args[0])
				if err != nil {
					return err
				}
				out, _ := json.MarshalIndent(t, "", "  ")
				fmt.Println(string(out))
				return nil
			},
		},
		&cobra.Command{
			Use:   "clone <source-id> <dest-id>",
			Short: "Create a user from an existing user's workspace",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(false)
				if err != nil {
					return err
				}
				cfg, err := a.registry.CloneTenant(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Printf("Cloned %s into %s\n", args[0], cfg.UserID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <user-id>",
			Short: "Delete a user, their workspace and scheduled jobs",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(false)
				if err != nil {
					return err
				}
				if err := a.registry.DeleteTenant(args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted user %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Create a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir := ".finbot"
			if err := os.MkdirAll(configDir, 0755); err != nil {
				return err
			}

			configFile := filepath.Join(configDir, "config.json")
			if _, err := os.Stat(configFile); err == nil {
				fmt.Printf("Config file already exists at %s\n", configFile)
				return nil
			}

			cfg := config.DefaultConfig()
			if abs, err := filepath.Abs(filepath.Join(configDir, "workspaces")); err == nil {
				cfg.Agents.Defaults.WorkspaceBase = abs
			}

			file, err := os.Create(configFile)
			if err != nil {
				return err
			}
			defer file.Close()

			encoder := json.NewEncoder(file)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(cfg); err != nil {
				return err
			}
			fmt.Printf("Created config file at %s\n", configFile)
			fmt.Println("Edit it to add your API key, then run 'finbot serve'.")
			return nil
		},
	}
}
