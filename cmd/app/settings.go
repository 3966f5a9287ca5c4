package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/qarchive/internal"
	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/settings"
)

type settingsView struct {
	Path     string          `json:"path"`
	Settings models.Settings `json:"settings"`
	DataRoot string          `json:"dataRoot"`
}

func openSettings(cmd *cli.Command) (*settings.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)
	return internal.OpenSettings(cfg, logger)
}

func printSettings(st *settings.Store, s models.Settings) error {
	root, err := settings.Resolve(s)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(settingsView{Path: st.Path(), Settings: s, DataRoot: root.Dir})
}

func saveAndPrint(ctx context.Context, st *settings.Store, dir string) error {
	saved, err := st.Save(ctx, models.Settings{DataDirectory: dir})
	if err != nil {
		return err
	}
	return printSettings(st, saved)
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change the data directory",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the preferences and the resolved data root",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					st, err := openSettings(cmd)
					if err != nil {
						return err
					}
					s, err := st.Load(ctx)
					if err != nil {
						return err
					}
					return printSettings(st, s)
				},
			},
			{
				Name:      "set",
				Usage:     "Set the data directory",
				ArgsUsage: "<dir>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					dir := cmd.Args().First()
					if dir == "" {
						return fmt.Errorf("settings set: directory argument is required")
					}
					st, err := openSettings(cmd)
					if err != nil {
						return err
					}
					return saveAndPrint(ctx, st, dir)
				},
			},
			{
				Name:  "pick",
				Usage: "Prompt for the data directory",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					st, err := openSettings(cmd)
					if err != nil {
						return err
					}
					picker := settings.PromptPicker{In: os.Stdin, Out: os.Stderr, Prompt: "Data directory: "}
					dir, ok, err := picker.PickDirectory(ctx)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(os.Stderr, "cancelled")
						return nil
					}
					return saveAndPrint(ctx, st, dir)
				},
			},
		},
	}
}
