package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notewright/internal"
	"github.com/starford/notewright/internal/prompt"
	"github.com/starford/notewright/internal/tui"
	pkgconfig "github.com/starford/notewright/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// open bootstraps the application for a subcommand.
func open(ctx context.Context, cmd *cli.Command, extra ...internal.Option) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := append([]internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, extra...)
	app, err := internal.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("app init error: %w", err)
	}
	return app, nil
}

// cancelledIsSuccess turns a dismissed prompt into a clean exit; the notice
// has already been shown.
func cancelledIsSuccess(err error) error {
	if internal.IsCancelled(err) {
		return nil
	}
	return err
}

func create(ctx context.Context, cmd *cli.Command) error {
	var (
		extra  []internal.Option
		script *prompt.Script
	)
	if path := cmd.String("script"); path != "" {
		var err error
		if script, err = prompt.LoadScript(path); err != nil {
			return err
		}
		extra = append(extra, internal.WithPrompter(script))
	} else if cmd.Bool("accessible") {
		extra = append(extra, internal.WithPrompter(tui.New(tui.WithAccessible(true))))
	}

	app, err := open(ctx, cmd, extra...)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.Create(ctx)
	if script != nil && script.Remaining() > 0 {
		slog.Warn("scripted replies left unused", slog.Int("remaining", script.Remaining()))
	}
	if err != nil {
		return cancelledIsSuccess(err)
	}
	fmt.Println(out.Document.Path)
	return nil
}

func newEntry(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.Args().First())
	if name == "" {
		return fmt.Errorf("entry name is required")
	}
	app, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.CreateEntry(ctx, name, cmd.String("type"), cmd.String("subtype"))
	if err != nil {
		return cancelledIsSuccess(err)
	}
	fmt.Println(out.Document.Path)
	return nil
}

func indexList(ctx context.Context, cmd *cli.Command) error {
	app, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	for _, ix := range app.Service().Indices(ctx) {
		line := fmt.Sprintf("%s\t%d entries", ix.Name, ix.Entries)
		if len(ix.Parents) > 0 {
			line += tui.Muted("\tparent: " + strings.Join(ix.Parents, ", "))
		}
		fmt.Println(line)
	}
	return nil
}

func indexShow(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("index name is required")
	}
	app, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.Service().Entries(ctx, name, cmd.String("parent"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		line := e.Name
		if len(e.Children) > 0 {
			line += tui.Muted("\t" + strings.Join(e.Children, ", "))
		}
		fmt.Println(line)
	}
	return nil
}

func indexAdd(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: index add <index> <entry>")
	}
	app, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	item, err := app.Service().AddEntry(ctx, cmd.Args().Get(0), cmd.Args().Get(1), cmd.String("parent"))
	if err != nil {
		return err
	}
	fmt.Printf("%s (level %d)\n", item.Name, item.Level)
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	app, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.Serve(ctx); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	app, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.ServeMCP(ctx)
}

func main() {
	parentFlag := &cli.StringFlag{
		Name:    "parent",
		Aliases: []string{"p"},
		Usage:   "Parent entry name",
	}

	cmd := &cli.Command{
		Name:    "notewright",
		Usage:   "Template-based document creation for a Markdown vault",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Create a document by answering the configured questions",
				Action: create,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "script",
						Usage: "YAML file with the answers to replay instead of prompting",
					},
					&cli.BoolFlag{
						Name:    "accessible",
						Usage:   "Line-based prompts for screen readers",
						Sources: cli.EnvVars("ACCESSIBLE"),
					},
				},
			},
			{
				Name:      "new-entry",
				Usage:     "Create the document for an index entry",
				ArgsUsage: "<entry>",
				Action:    newEntry,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Note type id", Required: true},
					&cli.StringFlag{Name: "subtype", Aliases: []string{"s"}, Usage: "Note subtype id", Required: true},
				},
			},
			{
				Name:  "index",
				Usage: "Inspect and edit indices",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List indices",
						Action: indexList,
					},
					{
						Name:      "show",
						Usage:     "List the entries of an index",
						ArgsUsage: "<index>",
						Action:    indexShow,
						Flags:     []cli.Flag{parentFlag},
					},
					{
						Name:      "add",
						Usage:     "Add an entry to an index",
						ArgsUsage: "<index> <entry>",
						Action:    indexAdd,
						Flags:     []cli.Flag{parentFlag},
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and live events",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
