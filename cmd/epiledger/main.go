package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/epiledger/internal"
	pkgconfig "github.com/starford/epiledger/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	root := cmd.Root()

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(root.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if path := root.String("data"); path != "" {
		cfg.Data.Path = path
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port := cmd.String("port"); port != "" {
		n, err := parsePort(port)
		if err != nil {
			return err
		}
		cfg.App.HTTP.Port = n
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:    "epiledger",
		Usage:   "Record daily per-city case counts in a CSV file and analyze risk, trends and hotspots",
		Version: version,
		Action:  runMenu,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("EPILEDGER_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the CSV data file (overrides config)",
				Sources: cli.EnvVars("EPILEDGER_DATA_FILE"),
			},
		},
		Commands: []*cli.Command{
			addCommand(),
			listCommand(),
			riskCommand(),
			trendCommand(),
			hotspotCommand(),
			{
				Name:   "menu",
				Usage:  "Run the interactive menu (default when no command is given)",
				Action: runMenu,
			},
			{
				Name:  "serve",
				Usage: "Serve the HTTP API, live events and metrics",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP port (overrides config)"},
				},
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
