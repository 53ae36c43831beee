package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reportes/internal/backend"
	"reportes/internal/config"
	"reportes/internal/core"
	"reportes/internal/seed"
	"reportes/internal/services"
	"reportes/internal/source"
	"reportes/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply (or roll back) the sqlite reporting schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a YAML dataset into the sqlite reporting database",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

var exportCmd = &cobra.Command{
	Use:   "export pdf|xlsx|dimension <name>",
	Short: "Build a report file from the configured backend",
	Long: `Builds the general PDF report, the combined workbook, or the workbook
of one dimension (categoria, institucion, actividad, tramo-edad, genero).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExport,
}

var genderCmd = &cobra.Command{
	Use:   "gender <text>...",
	Short: "Print the gender bucket of each free-text value",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, raw := range args {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", raw, core.NormalizeGender(raw))
		}
	},
}

func init() {
	migrateCmd.Flags().Bool("down", false, "roll every migration back")
	migrateCmd.Flags().String("db", "", "sqlite file (default SQLITE_DB_PATH)")

	seedCmd.Flags().String("file", "", "YAML dataset (default: bundled sample)")
	seedCmd.Flags().String("db", "", "sqlite file (default SQLITE_DB_PATH)")

	exportCmd.Flags().StringP("out", "o", "", "output file (default: the report's download name)")
	exportCmd.Flags().Int("top", 0, "truncate a dimension workbook to the first N rows")
}

func sqlitePath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p
	}
	return config.Load().SQLiteDBPath
}

func runMigrate(cmd *cobra.Command, args []string) error {
	down, _ := cmd.Flags().GetBool("down")
	path := sqlitePath(cmd)
	version, err := storage.Migrate(path, down)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", path, version)
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	ds, err := seed.Load(file)
	if err != nil {
		return err
	}

	cfg := config.Load()
	repo, err := storage.NewSQLiteRepository(sqlitePath(cmd), storage.Options{View: cfg.ReportView, Pushdown: cfg.ReportPushdown})
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Seed(cmd.Context(), ds); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d participants\n", len(ds.Records(time.Now())))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	build, err := exportBuilder(args)
	if err != nil {
		return err
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(nil).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer be.Close()

	sess, err := be.Opener.Open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	top, _ := cmd.Flags().GetInt("top")
	art, err := build(ctx, services.NewReportService(nil, nil), sess, top)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = art.Filename
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, art.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(art.Data))
	return nil
}

type buildFunc func(ctx context.Context, svc *services.ReportService, sess source.Aggregator, top int) (services.Artifact, error)

// exportBuilder maps export arguments onto a report builder.
func exportBuilder(args []string) (buildFunc, error) {
	switch strings.ToLower(args[0]) {
	case "pdf":
		if len(args) != 1 {
			return nil, errors.New("pdf takes no further arguments")
		}
		return func(ctx context.Context, svc *services.ReportService, sess source.Aggregator, _ int) (services.Artifact, error) {
			return svc.GeneralReport(ctx, sess)
		}, nil
	case "xlsx":
		if len(args) != 1 {
			return nil, errors.New("xlsx takes no further arguments")
		}
		return func(ctx context.Context, svc *services.ReportService, sess source.Aggregator, _ int) (services.Artifact, error) {
			return svc.CombinedWorkbook(ctx, sess)
		}, nil
	case "dimension":
		if len(args) != 2 {
			return nil, errors.New("dimension requires a name")
		}
		dim, err := core.ParseDimension(args[1])
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, svc *services.ReportService, sess source.Aggregator, top int) (services.Artifact, error) {
			return svc.DimensionWorkbook(ctx, sess, dim, top)
		}, nil
	default:
		return nil, fmt.Errorf("unknown export %q: want pdf, xlsx or dimension", args[0])
	}
}
