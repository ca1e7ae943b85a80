// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	collectionFlag := func(usage string) *cli.StringFlag {
		return &cli.StringFlag{
			Name:    "collection",
			Aliases: []string{"c"},
			Usage:   usage + " (defaults to the configured news collection)",
		}
	}

	return &cli.App{
		Name:  "newsdesk",
		Usage: "Feed ingestion and retrieval-augmented question answering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"NEWSDESK_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Fetch feeds and store new articles",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "feeds",
						Usage: "Feed catalogue to fetch (news, blogs)",
						Value: "news",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum items per feed (defaults to ingestion.per_source_limit)",
					},
				},
			},
			{
				Name:   "chat",
				Usage:  "Answer questions over blog articles with query prediction",
				Action: chatCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "feeds",
						Usage: "Feed catalogue loaded before the session (news, blogs)",
						Value: "blogs",
					},
					&cli.BoolFlag{
						Name:  "skip-load",
						Usage: "Serve stored articles without fetching feeds",
					},
				},
			},
			{
				Name:   "agent",
				Usage:  "Search news and personal memory",
				Action: agentCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "skip-load",
						Usage: "Serve stored articles without fetching feeds",
					},
				},
			},
			{
				Name:   "team",
				Usage:  "Load the sample team roster and ask one question about it",
				Action: teamCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "question",
						Aliases: []string{"q"},
						Usage:   "Question to ask",
						Value:   "Who is working on my team as architect",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed every record of a collection with the configured model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					collectionFlag("Collection to reembed"),
					&cli.StringFlag{
						Name:  "field",
						Usage: "Record field to embed (text, description)",
						Value: "text",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch (overrides reembed.batch_size)",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations (overrides reembed.max_retries)",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff (overrides reembed.retry_delay_ms)",
					},
				},
			},
			{
				Name:   "export",
				Usage:  "Write a collection as zstd-compressed JSON lines",
				Action: exportCommand,
				Flags: []cli.Flag{
					collectionFlag("Collection to export"),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file or object name (defaults to <collection>.jsonl.zst)",
					},
					&cli.BoolFlag{
						Name:  "bucket",
						Usage: "Upload to the configured export bucket instead of a local file",
					},
					&cli.BoolFlag{
						Name:  "vectors",
						Usage: "Include embedding vectors",
						Value: true,
					},
				},
			},
			{
				Name:   "import",
				Usage:  "Load records from an export archive",
				Action: importCommand,
				Flags: []cli.Flag{
					collectionFlag("Collection to import into"),
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Archive file or object name",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "bucket",
						Usage: "Read from the configured export bucket instead of a local file",
					},
				},
			},
		},
	}
}

// setupLogger configures the default slog logger based on the log-level flag.
func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
