package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/priority-living/pl/internal/bridge"
	"github.com/priority-living/pl/internal/config"
	"github.com/priority-living/pl/internal/diag"
	"github.com/priority-living/pl/internal/history"
	"github.com/priority-living/pl/internal/models"
)

// Load configuration honoring the persistent --config flag
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	return cfg, cfgPath, err
}

// Bridge worker management
func newBridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Bridge worker management",
	}
	cmd.AddCommand(newBridgeStartCmd())
	return cmd
}

func newBridgeStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bridge worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if key, _ := cmd.Flags().GetString("key"); key != "" {
				cfg.BridgeKey = key
			}
			if name, _ := cmd.Flags().GetString("name"); name != "" {
				cfg.MachineName = name
			}
			if cmd.Flags().Changed("poll-interval") {
				cfg.PollInterval, _ = cmd.Flags().GetInt("poll-interval")
			}
			if cmd.Flags().Changed("auto-restart") {
				cfg.AutoRestart, _ = cmd.Flags().GetBool("auto-restart")
			}

			opts := bridge.Options{
				MachineName:  cfg.MachineName,
				BridgeKey:    cfg.BridgeKey,
				BackendURL:   cfg.BackendURL,
				AnonKey:      cfg.AnonKey,
				PollInterval: time.Duration(cfg.PollInterval) * time.Second,
				AutoRestart:  cfg.AutoRestart,
				Version:      version,
				ModelsDir:    cfg.ModelsDir,
			}
			if journal, err := history.Open(history.DefaultPath()); err != nil {
				log.Warn().Err(err).Msg("command journal unavailable")
			} else {
				defer journal.Close()
				opts.Journal = journal
			}

			w, err := bridge.New(opts)
			if err != nil {
				return err
			}

			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigc
				fmt.Fprintln(os.Stderr, "shutting down gracefully...")
				w.Stop()
			}()

			w.Serve()
			return nil
		},
	}
	cmd.Flags().StringP("key", "k", "", "bridge API key (pb_...)")
	cmd.Flags().StringP("name", "n", "", "machine name")
	cmd.Flags().Int("poll-interval", 3, "poll interval (seconds)")
	cmd.Flags().Bool("auto-restart", false, "auto-restart on crash")
	return cmd
}

// Local configuration
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Local configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("bridge_key: %s\n", config.MaskKey(cfg.BridgeKey))
			fmt.Printf("backend_url: %s\n", cfg.BackendURL)
			fmt.Printf("anon_key: %s\n", config.MaskKey(cfg.AnonKey))
			fmt.Printf("machine_name: %s\n", cfg.MachineName)
			fmt.Printf("poll_interval: %d\n", cfg.PollInterval)
			fmt.Printf("auto_restart: %t\n", cfg.AutoRestart)
			fmt.Printf("models_dir: %s\n", cfg.ModelsDir)
			fmt.Printf("\nconfig file: %s\n", config.Path())
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			return config.Save(cfg, cfgPath)
		},
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}

	cmd.AddCommand(set)
	cmd.AddCommand(get)
	return cmd
}

// System & bridge status
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system & bridge status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			diag.Status(os.Stdout, cfg, version)
			return nil
		},
	}
}

// Deep diagnostic scan
func newDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Deep diagnostic scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if issues := diag.Diagnose(os.Stdout, cfg); issues > 0 {
				return fmt.Errorf("%d issue(s) found", issues)
			}
			return nil
		},
	}
}

// Local model management
func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Local model management",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List installed models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			for _, name := range models.Installed(cfg.ModelsDir) {
				fmt.Println(name)
			}
			return nil
		},
	}

	download := &cobra.Command{
		Use:   "download <name>",
		Short: "Download a model from an https:// or sftp:// source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			source, _ := cmd.Flags().GetString("source")
			dest := filepath.Join(cfg.ModelsDir, models.SanitizeName(args[0]))
			path, err := models.NewFetcher().Fetch(cmd.Context(), source, dest)
			if err != nil {
				return err
			}
			fmt.Printf("model saved to %s\n", path)
			return nil
		},
	}
	download.Flags().String("source", "", "download source URL")
	_ = download.MarkFlagRequired("source")

	serve := &cobra.Command{
		Use:   "serve <name>",
		Short: "Serve a model directory over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir := filepath.Join(cfg.ModelsDir, models.SanitizeName(args[0]))
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("model %q is not installed: %w", args[0], err)
			}
			addr, _ := cmd.Flags().GetString("addr")
			srv := &models.Server{Version: version, Model: args[0], Dir: dir}
			go func() {
				if err := srv.ListenAndServe(addr); err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
			}()
			fmt.Printf("serving %s on %s\n", args[0], addr)
			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
			<-sigc
			fmt.Fprintln(os.Stderr, "shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	serve.Flags().String("addr", ":8000", "listen address")

	cmd.AddCommand(list)
	cmd.AddCommand(download)
	cmd.AddCommand(serve)
	return cmd
}

// Backend agent roster
func newAgentsCmd() *cobra.Command {
	list := func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.BridgeKey == "" {
			return fmt.Errorf("bridge key required; run: pl config set bridge_key %sxxx", bridge.KeyPrefix)
		}
		agents, ok := bridge.ListAgents(bridge.NewClient(cfg.BackendURL, cfg.BridgeKey, cfg.AnonKey))
		if !ok {
			return fmt.Errorf("could not fetch agents")
		}
		if len(agents) == 0 {
			fmt.Println("no agents bound to this bridge key")
			return nil
		}
		for _, a := range agents {
			id := a.ID
			if len(id) > 8 {
				id = id[:8] + "..."
			}
			fmt.Printf("  %-8s %s (%s) %s\n", a.Status, a.Name, a.AgentType, id)
		}
		return nil
	}

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Backend agent management",
		RunE:  list,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agents bound to this bridge key",
		RunE:  list,
	})
	return cmd
}

// Command journal
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently executed bridge commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("count")
			store, err := history.Open(history.DefaultPath())
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.Recent(cmd.Context(), n)
			if err != nil {
				return err
			}
			for _, e := range entries {
				command := e.Command
				if len(command) > 60 {
					command = command[:60] + "..."
				}
				marker := ""
				if e.Truncated {
					marker = " (truncated)"
				}
				fmt.Printf("%s  exit=%d  %dms  %s%s\n",
					e.RanAt.Format(time.RFC3339), e.ExitCode, e.DurationMS, command, marker)
			}
			return nil
		},
	}
	cmd.Flags().IntP("count", "n", 20, "number of entries to show")
	return cmd
}
