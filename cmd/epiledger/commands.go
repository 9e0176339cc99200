package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/starford/epiledger/internal"
	"github.com/starford/epiledger/internal/console"
	"github.com/starford/epiledger/internal/parser"
	"github.com/starford/epiledger/internal/recordservice"
)

func openConsole(ctx context.Context, cmd *cli.Command) (*console.Console, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	svc, err := internal.OpenRecords(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
	if err != nil {
		return nil, err
	}
	return console.New(svc, os.Stdout), nil
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return n, nil
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Print JSON instead of text"}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Append a daily record and save the data file",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "city", Required: true, Usage: "City name"},
			&cli.StringFlag{Name: "date", Value: "today", Usage: "Date in any common form (2021-01-05, Jan 5 2021, yesterday)"},
			&cli.StringFlag{Name: "cases", Required: true, Usage: "Confirmed cases"},
			&cli.StringFlag{Name: "recovered", Value: "0", Usage: "Recovered"},
			&cli.StringFlag{Name: "deaths", Value: "0", Usage: "Deaths"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			in := recordservice.AddInput{
				City: cmd.String("city"),
				Date: cmd.String("date"),
			}
			var err error
			if in.Cases, err = parser.ParseCount("cases", cmd.String("cases")); err != nil {
				return err
			}
			if in.Recovered, err = parser.ParseCount("recovered", cmd.String("recovered")); err != nil {
				return err
			}
			if in.Deaths, err = parser.ParseCount("deaths", cmd.String("deaths")); err != nil {
				return err
			}

			c, err := openConsole(ctx, cmd)
			if err != nil {
				return err
			}
			return c.Add(ctx, in)
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print all records in insertion order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "city", Usage: "Only records for this city"},
			jsonFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openConsole(ctx, cmd)
			if err != nil {
				return err
			}
			return c.List(ctx, cmd.String("city"), cmd.Bool("json"))
		},
	}
}

func riskCommand() *cli.Command {
	return &cli.Command{
		Name:  "risk",
		Usage: "Classify cities into High, Medium and Low risk zones by their first record",
		Flags: []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openConsole(ctx, cmd)
			if err != nil {
				return err
			}
			return c.RiskZones(ctx, cmd.Bool("json"))
		},
	}
}

func trendCommand() *cli.Command {
	return &cli.Command{
		Name:      "trend",
		Usage:     "Print per-city (date, cases) series for charting",
		ArgsUsage: "[city]",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openConsole(ctx, cmd)
			if err != nil {
				return err
			}
			return c.Trends(ctx, cmd.Args().First(), cmd.Bool("json"))
		},
	}
}

func hotspotCommand() *cli.Command {
	return &cli.Command{
		Name:  "hotspot",
		Usage: "Name the city with the highest cumulative case count",
		Flags: []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openConsole(ctx, cmd)
			if err != nil {
				return err
			}
			return c.Hotspot(ctx, cmd.Bool("json"))
		},
	}
}

func runMenu(ctx context.Context, cmd *cli.Command) error {
	c, err := openConsole(ctx, cmd)
	if err != nil {
		return err
	}
	return c.Menu(ctx, os.Stdin)
}
