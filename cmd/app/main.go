package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/qarchive/internal"
	"github.com/starford/qarchive/internal/settings"
	pkgconfig "github.com/starford/qarchive/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}
	if cmd.Bool("prompt-picker") {
		opts = append(opts, internal.WithPicker(settings.PromptPicker{
			In:     os.Stdin,
			Out:    os.Stderr,
			Prompt: "Data directory: ",
		}))
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func main() {
	serveFlags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "prompt-picker",
			Usage: "Answer pick-directory requests by prompting on this terminal",
		},
	}

	cmd := &cli.Command{
		Name:    "qarchive",
		Usage:   "Local archive of LLM question/answer pairs stored as Markdown documents",
		Version: version,
		Action:  serve,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		}, serveFlags...),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with change events (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the archive to MCP clients over stdio",
				Action: serveMCP,
			},
			settingsCommand(),
			remoteCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
