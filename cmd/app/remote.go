package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/qarchive/internal"
	"github.com/starford/qarchive/internal/client"
	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/search"
)

func newClient(cmd *cli.Command) (*client.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	return client.New(cfg.Remote.URL,
		client.WithToken(cfg.Remote.Token),
		client.WithPolicy(cfg.Retry.Policy(logger)),
	), nil
}

func remoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "remote",
		Usage: "Talk to a running server",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List archived pairs",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					pairs, err := c.ListAll(ctx)
					if err != nil {
						return err
					}
					for p := pairs.Oldest(); p != nil; p = p.Next() {
						fmt.Printf("%s\t%s\t%s\n", p.Key, p.Value.Source, p.Value.Title)
					}
					return nil
				},
			},
			{
				Name:      "search",
				Usage:     "Search pairs",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "full-text or tags",
						Value: string(search.FullText),
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					mode, err := search.ParseMode(cmd.String("mode"))
					if err != nil {
						return err
					}
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					ids, err := c.Search(ctx, strings.Join(cmd.Args().Slice(), " "), mode)
					if err != nil {
						return err
					}
					for _, id := range ids {
						fmt.Println(id)
					}
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Archive a pair; the answer is read from stdin when --answer is omitted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "source"},
					&cli.StringFlag{Name: "url"},
					&cli.StringSliceFlag{Name: "tag"},
					&cli.StringFlag{Name: "question", Required: true},
					&cli.StringFlag{Name: "answer"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					answer := cmd.String("answer")
					if answer == "" {
						data, err := io.ReadAll(os.Stdin)
						if err != nil {
							return fmt.Errorf("read answer: %w", err)
						}
						answer = strings.TrimSpace(string(data))
					}
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					pair, err := c.Create(ctx, models.QACreateData{
						Title:    cmd.String("title"),
						Source:   cmd.String("source"),
						URL:      cmd.String("url"),
						Tags:     cmd.StringSlice("tag"),
						Question: cmd.String("question"),
						Answer:   answer,
					})
					if err != nil {
						return err
					}
					fmt.Println(pair.ID)
					return nil
				},
			},
			{
				Name:  "threads",
				Usage: "List threads",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					threads, err := c.LoadThreads(ctx)
					if err != nil {
						return err
					}
					for p := threads.Oldest(); p != nil; p = p.Next() {
						fmt.Printf("%s\t%s\t%d items\n", p.Key, p.Value.Name, len(p.Value.Items))
					}
					return nil
				},
			},
		},
	}
}
