package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"medstock/internal/cli"
	"medstock/internal/config"
	"medstock/internal/logging"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" env:"MEDSTOCK_CONFIG_PATH" default:"configs/config.yaml"`

	Serve  cli.ServeCmd  `cmd:"" help:"Run the HTTP API, reminder scheduler and backups." default:"1"`
	Backup cli.BackupCmd `cmd:"" help:"Write a database backup now."`
	Export cli.ExportCmd `cmd:"" help:"Export inventory reports."`
	Remind cli.RemindCmd `cmd:"" help:"Send due expiry reminders now."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("medstock"),
		kong.Description("Medicine inventory tracker with expiry reminders"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty, os.Stdout)

	if err := ctx.Run(&cli.Context{Config: cfg, Logger: logger}); err != nil {
		logger.Error().Err(err).Str("command", ctx.Command()).Msg("command failed")
		os.Exit(1)
	}
}
