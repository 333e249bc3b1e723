package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/cra-planner/internal/config"
	"github.com/andresuchdata/cra-planner/internal/domain"
	"github.com/andresuchdata/cra-planner/internal/repository/postgres"
	"github.com/andresuchdata/cra-planner/internal/service"
	"github.com/andresuchdata/cra-planner/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Setup("debug", os.Stderr)
	logger.SetLevel(cfg.Server.LogLevel)

	app := &cli.App{
		Name:  "planner",
		Usage: "Generate monthly purchase suggestions per warehouse",
		Commands: []*cli.Command{
			reportCommand(cfg),
			warehousesCommand(cfg),
			runsCommand(cfg),
			archiveCommand(cfg),
			migrateCommand(cfg),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("planner failed")
	}
}

// withService runs fn against a service built from configuration.
func withService(c *cli.Context, cfg *config.Config, fn func(*service.PlanningService) error) error {
	svc, closeFn, err := service.NewFromConfig(c.Context, cfg, nil)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}

func reportCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Generate the purchase suggestion report of a warehouse",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "warehouse", Aliases: []string{"w"}, Usage: "Warehouse name as it appears in the inventory", Required: true},
			&cli.Float64Flag{Name: "coverage", Aliases: []string{"c"}, Usage: "Months of coverage (multiple of 0.5)", Value: cfg.Planning.DefaultCoverage},
			&cli.StringFlag{Name: "transit-file", Usage: "In-transit quantities (xlsx or csv)"},
			&cli.StringFlag{Name: "transfer-file", Usage: "Transfer situation export (xlsx or csv)"},
			&cli.StringFlag{Name: "transfer-tag", Usage: "Transfer situation tag to keep"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Directory to write the report to", Value: "."},
		},
		Action: func(c *cli.Context) error {
			req := domain.ReportRequest{
				Warehouse:   c.String("warehouse"),
				Coverage:    c.Float64("coverage"),
				TransferTag: c.String("transfer-tag"),
			}

			var err error
			if req.TransitFile, req.TransitFileName, err = readOptional(c.String("transit-file")); err != nil {
				return err
			}
			if req.TransferFile, req.TransferFileName, err = readOptional(c.String("transfer-file")); err != nil {
				return err
			}

			return withService(c, cfg, func(svc *service.PlanningService) error {
				result, err := svc.GenerateReport(c.Context, req)
				if err != nil {
					return err
				}

				path := filepath.Join(c.String("out"), result.FileName)
				if err := os.WriteFile(path, result.Content, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}

				fmt.Fprintf(c.App.Writer, "%s -> %s (apoyo: %s)\n", result.Local, path, result.Support)
				for _, s := range result.Summary {
					fmt.Fprintf(c.App.Writer, "  %-18s %d\n", s.Classification, s.Parts)
				}
				return nil
			})
		},
	}
}

func readOptional(path string) ([]byte, string, error) {
	if path == "" {
		return nil, "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, filepath.Base(path), nil
}

func warehousesCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "warehouses",
		Usage: "List the warehouses of the inventory snapshot",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "refresh", Usage: "Reload the inventory instead of using the cache"},
		},
		Action: func(c *cli.Context) error {
			return withService(c, cfg, func(svc *service.PlanningService) error {
				if c.Bool("refresh") {
					if err := svc.RefreshInventory(c.Context); err != nil {
						return err
					}
				}
				options, err := svc.ListWarehouses(c.Context)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ALMACEN\tSUCURSAL\tPIEZAS")
				for _, o := range options {
					fmt.Fprintf(w, "%s\t%s\t%d\n", o.Warehouse, o.Branch, o.Parts)
				}
				return w.Flush()
			})
		},
	}
}

func runsCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recent report runs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "warehouse", Aliases: []string{"w"}},
			&cli.IntFlag{Name: "limit", Value: 20},
		},
		Action: func(c *cli.Context) error {
			return withService(c, cfg, func(svc *service.PlanningService) error {
				runs, err := svc.ListRuns(c.Context, c.String("warehouse"), c.Int("limit"))
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tALMACEN\tESTADO\tPIEZAS\tINICIO")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Warehouse, r.Status, r.Parts, r.StartedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}
}

func archiveCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Browse reports archived in object storage",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List archived reports",
				Flags: []cli.Flag{&cli.StringFlag{Name: "branch", Aliases: []string{"b"}}},
				Action: func(c *cli.Context) error {
					return withService(c, cfg, func(svc *service.PlanningService) error {
						objects, err := svc.ListArchive(c.Context, c.String("branch"))
						if err != nil {
							return err
						}
						for _, o := range objects {
							fmt.Fprintf(c.App.Writer, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Format("2006-01-02 15:04"))
						}
						return nil
					})
				},
			},
			{
				Name:  "get",
				Usage: "Download an archived report",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Required: true},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "."},
				},
				Action: func(c *cli.Context) error {
					return withService(c, cfg, func(svc *service.PlanningService) error {
						key := c.String("key")
						data, err := svc.GetArchived(c.Context, key)
						if err != nil {
							return err
						}
						path := filepath.Join(c.String("out"), key[strings.LastIndex(key, "/")+1:])
						return os.WriteFile(path, data, 0o644)
					})
				},
			},
		},
	}
}

func migrateCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the run history schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Database connection string",
				Value:   cfg.Database.URL(),
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Action: func(c *cli.Context) error {
			db, err := sql.Open("pgx", c.String("db-url"))
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if err := db.PingContext(c.Context); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}

			applied, err := postgres.Migrate(c.Context, db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(c.App.Writer, "schema up to date")
				return nil
			}
			fmt.Fprintf(c.App.Writer, "applied: %s\n", strings.Join(applied, ", "))
			return nil
		},
	}
}
