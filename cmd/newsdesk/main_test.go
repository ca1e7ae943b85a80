package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/poiesic/newsdesk"
	"github.com/poiesic/newsdesk/ai/mock"
	"github.com/poiesic/newsdesk/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example News</title>
  <item>
    <title>Markets rally</title>
    <link>https://example.com/markets</link>
    <description>Stocks rose sharply.</description>
  </item>
  <item>
    <title>Storm warning</title>
    <link>https://example.com/storm</link>
    <description>Heavy rain expected.</description>
  </item>
</channel>
</rss>`

// env is a scratch configuration and mock provider for one test.
type env struct {
	dir      string
	config   string
	provider *mock.MockProvider
}

func newEnv(t *testing.T, feedURL string, extra string) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		dir:      dir,
		config:   filepath.Join(dir, "newsdesk.yaml"),
		provider: mock.NewMockProviderWithServices(topicEmbedder(), mock.NewMockChat("Stocks rose sharply today.")).(*mock.MockProvider),
	}

	yaml := "ai:\n  provider: ollama\n" +
		"store:\n  backend: badger\n  path: " + filepath.Join(dir, "db") + "\n" +
		"export:\n  directory: " + dir + "\n" +
		"news_feeds:\n  - name: Example\n    url: " + feedURL + "\n" +
		"blog_feeds:\n  - name: Example blog\n    url: " + feedURL + "\n" +
		extra
	require.NoError(t, os.WriteFile(e.config, []byte(yaml), 0o600))

	orig := openDatabase
	openDatabase = func(cfg *config.Config) (*newsdesk.Database, error) {
		return newsdesk.NewDatabase(cfg, newsdesk.WithAIProvider(e.provider))
	}
	t.Cleanup(func() { openDatabase = orig })
	return e
}

// topicEmbedder places texts about architects, markets and everything else
// on separate axes.
func topicEmbedder() *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "architect"):
			return []float32{1, 0, 0}, nil
		case strings.Contains(lower, "market") || strings.Contains(lower, "stock"):
			return []float32{0, 1, 0}, nil
		}
		return []float32{0, 0, 1}, nil
	}
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i], _ = embedder.EmbedTextFunc(ctx, text)
		}
		return out, nil
	}
	return embedder
}

func newFeedServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(sampleRSS))
	}))
	t.Cleanup(server.Close)
	return server
}

func (e *env) run(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader(input)
	app.Writer = &out
	app.ErrWriter = &errOut

	argv := append([]string{"newsdesk", "--config", e.config}, args...)
	err := app.RunContext(context.Background(), argv)
	return out.String(), errOut.String(), err
}

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %s not found", name)
	return nil
}

func TestApp_Commands(t *testing.T) {
	app := newApp()

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"ingest", "chat", "agent", "team", "reembed", "export", "import"}, names)

	t.Run("team question has default value", func(t *testing.T) {
		cmd := findCommand(t, app, "team")
		var questionFlag *cli.StringFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "question" {
				questionFlag = f
			}
		}
		require.NotNil(t, questionFlag)
		assert.Equal(t, "Who is working on my team as architect", questionFlag.Value)
	})

	t.Run("export includes vectors by default", func(t *testing.T) {
		cmd := findCommand(t, app, "export")
		var vectorsFlag *cli.BoolFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.BoolFlag); ok && f.Name == "vectors" {
				vectorsFlag = f
			}
		}
		require.NotNil(t, vectorsFlag)
		assert.True(t, vectorsFlag.Value)
	})

	t.Run("config flag reads NEWSDESK_CONFIG", func(t *testing.T) {
		var configFlag *cli.StringFlag
		for _, flag := range app.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "config" {
				configFlag = f
			}
		}
		require.NotNil(t, configFlag)
		assert.Equal(t, []string{"NEWSDESK_CONFIG"}, configFlag.EnvVars)
	})
}

func TestIngestCommand(t *testing.T) {
	server := newFeedServer(t, http.StatusOK)
	e := newEnv(t, server.URL, "")

	out, _, err := e.run(t, "", "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Fetched news article from https://example.com/markets")
	assert.Contains(t, out, "Fetched news article from https://example.com/storm")
	assert.Contains(t, out, "Stored 2 new articles in news_articles")

	out, _, err = e.run(t, "", "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored 0 new articles in news_articles")

	_, _, err = e.run(t, "", "ingest", "--feeds", "podcasts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown feed catalogue")
}

func TestChatCommand(t *testing.T) {
	server := newFeedServer(t, http.StatusOK)
	e := newEnv(t, server.URL, "")

	out, _, err := e.run(t, "how are the markets\n\n", "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "News data loading complete")
	assert.Contains(t, out, "Press enter with no prompt to exit.")
	assert.Contains(t, out, "Assistant: Stocks rose sharply today.")

	// answer, summary of the logged query, next-query prediction
	assert.Equal(t, 3, e.provider.GetMockChat().CallCount())
}

func TestChatCommand_LoadFailure(t *testing.T) {
	server := newFeedServer(t, http.StatusInternalServerError)

	t.Run("continue serves stored data", func(t *testing.T) {
		e := newEnv(t, server.URL, "")
		out, _, err := e.run(t, "\n", "chat")
		require.NoError(t, err)
		assert.Contains(t, out, "Failed to load data")
		assert.Contains(t, out, "Press enter with no prompt to exit.")
	})

	t.Run("abort returns the error", func(t *testing.T) {
		e := newEnv(t, server.URL, "ingestion:\n  on_failure: abort\n")
		out, _, err := e.run(t, "\n", "chat")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load data")
		assert.NotContains(t, out, "Press enter with no prompt to exit.")
	})
}

func TestAgentCommand(t *testing.T) {
	server := newFeedServer(t, http.StatusOK)
	e := newEnv(t, server.URL, "")

	out, _, err := e.run(t, "fact: I follow the stock market\nmarkets today\n\n", "agent")
	require.NoError(t, err)

	assert.Contains(t, out, "Persisting Fact data: I follow the stock market")
	assert.Contains(t, out, "Markets rally\n[https://example.com/markets]\n(score 1.00)")
	assert.Contains(t, out, "I follow the stock market\n[Fact]\n(score 1.00)")
	assert.NotContains(t, out, "Storm warning\n[")
}

func TestTeamCommand(t *testing.T) {
	e := newEnv(t, "http://unused.invalid/rss", "")

	out, _, err := e.run(t, "", "team")
	require.NoError(t, err)
	assert.Equal(t, "Result: Kim, Architect working on the biggest projects.\n", out)
}

func TestExportImportCommands(t *testing.T) {
	e := newEnv(t, "http://unused.invalid/rss", "")

	_, _, err := e.run(t, "", "team")
	require.NoError(t, err)

	archivePath := filepath.Join(e.dir, "team.jsonl.zst")
	out, _, err := e.run(t, "", "export", "--collection", "memory", "--output", archivePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 records from memory")
	assert.FileExists(t, archivePath)

	out, _, err = e.run(t, "", "import", "--collection", "restored", "--input", archivePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 records into restored")

	_, _, err = e.run(t, "", "import", "--collection", "restored")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestReembedCommand(t *testing.T) {
	e := newEnv(t, "http://unused.invalid/rss", "")

	_, _, err := e.run(t, "", "team")
	require.NoError(t, err)

	_, progress, err := e.run(t, "", "reembed", "--collection", "memory", "--field", "description")
	require.NoError(t, err)
	assert.Contains(t, progress, "Collection: memory")

	t.Run("rejects unknown field", func(t *testing.T) {
		_, _, err := e.run(t, "", "reembed", "--field", "title")
		require.Error(t, err)
	})

	t.Run("rejects non-positive batch size", func(t *testing.T) {
		_, _, err := e.run(t, "", "reembed", "--batch-size", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch-size must be greater than 0")
	})
}

func TestConfigErrorsAreFatal(t *testing.T) {
	t.Setenv("OPENAI_APIKEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "newsdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: memory\n"), 0o600))

	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"newsdesk", "--config", path, "team"})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingSetting)
	assert.Contains(t, err.Error(), "OPENAI_APIKEY not found")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: tc.input,
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						assert.True(t, slog.Default().Enabled(context.Background(), tc.expected))
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "warn",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := newApp()
		app.Writer = &bytes.Buffer{}
		err := app.Run([]string{"newsdesk", "--log-level", "verbose", "team"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("default log level is warn", func(t *testing.T) {
		app := newApp()
		app.Commands = []*cli.Command{{
			Name: "probe",
			Action: func(c *cli.Context) error {
				assert.Equal(t, "warn", c.String("log-level"))
				assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
				return nil
			},
		}}
		require.NoError(t, app.Run([]string{"newsdesk", "probe"}))
	})
}

func TestMain(m *testing.M) {
	color.NoColor = true
	code := m.Run()
	os.Exit(code)
}
