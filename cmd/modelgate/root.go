package main

import (
	"os"

	"github.com/spf13/cobra"

	"modelgate/internal/config"
)

// newRootCmd builds the command tree. Running the bare binary serves.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "modelgate",
		Short:         "Readiness-aware HTTP proxy in front of a local Ollama daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, os.Stderr)
		},
	}
	addServeFlags(serve)
	addServeFlags(root)
	root.RunE = serve.RunE

	printCfg := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return config.WriteYAML(cmd.OutOrStdout(), cfg)
		},
	}
	addServeFlags(printCfg)

	root.AddCommand(serve, printCfg)
	return root
}

func addServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "Path to a config file (.yaml, .json or .toml)")
	f.String("addr", config.DefaultAddr, "HTTP listen address")
	f.String("daemon-url", config.DefaultDaemonURL, "Ollama daemon base URL")
	f.String("daemon-bin", config.DefaultDaemonBin, "Daemon executable started when the daemon is down")
	f.String("model", config.DefaultModel, "Model served by this instance")
	f.String("instance-id", "", "Instance identity (default: hostname)")
	f.String("log-level", config.DefaultLogLevel, "Log level: debug|info|warn|error")
	f.String("log-format", config.DefaultLogFormat, "Log format: auto|json|console")
	f.Bool("bootstrap", true, "Start the daemon and model download at startup")
	f.Bool("cors", true, "Enable CORS")
}

// resolveConfig layers defaults < file < environment < explicitly set flags.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg = cfg.ApplyEnv(os.LookupEnv)

	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	flag := func(name string, dst **bool) {
		if f.Changed(name) {
			b, _ := f.GetBool(name)
			*dst = &b
		}
	}
	str("addr", &cfg.Addr)
	str("daemon-url", &cfg.DaemonURL)
	str("daemon-bin", &cfg.DaemonBin)
	str("model", &cfg.Model)
	str("instance-id", &cfg.InstanceID)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	flag("bootstrap", &cfg.BootstrapOnStart)
	flag("cors", &cfg.CORSEnabled)
	return cfg.WithDefaults(), nil
}
