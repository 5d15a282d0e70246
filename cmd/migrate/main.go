package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/config"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/logger"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/migration"
	"github.com/MerlinStacks/woodash-dashboard-sub007/migrations"
)

const (
	defaultMigrationsPath = "migrations"
	pingTimeout           = 5 * time.Second
)

var errUsage = errors.New("invalid arguments")

// command is one migrate subcommand. Commands with a nil schema func only
// touch migration files and never connect to the database.
type command struct {
	usage  string
	args   int
	files  func(env *cliEnv, args []string) error
	schema func(m *migration.Migrator, log *zap.Logger, args []string) error
}

type cliEnv struct {
	dir string // -path value, empty for the embedded set
	log *zap.Logger
}

var commands = map[string]command{
	"up": {usage: "up                    Apply all pending migrations",
		schema: func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Up() }},
	"down": {usage: "down                  Roll back all migrations",
		schema: func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Down() }},
	"step": {usage: "step <n>              Apply n migrations, negative n rolls back", args: 1,
		schema: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: step count %q", errUsage, args[0])
			}
			return m.Steps(n)
		}},
	"goto": {usage: "goto <version>        Migrate up or down to version", args: 1,
		schema: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("%w: version %q", errUsage, args[0])
			}
			return m.GoTo(uint(v))
		}},
	"force": {usage: "force <version>       Mark version applied after a failed migration", args: 1,
		schema: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: version %q", errUsage, args[0])
			}
			return m.Force(v)
		}},
	"version": {usage: "version               Show the applied version",
		schema: func(m *migration.Migrator, log *zap.Logger, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			log.Info("Schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
			return nil
		}},
	"create": {usage: "create <name> [desc]  Write a new up/down file pair", args: 1, files: createMigration},
	"list":   {usage: "list                  List available migrations", files: listMigrations},
}

func main() {
	dir := flag.String("path", "", "Migrations directory (default: the migrations embedded in this binary)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	name, args := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok || len(args) < cmd.args {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.DateTime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	env := &cliEnv{dir: *dir, log: log}
	if cmd.files != nil {
		err = cmd.files(env, args)
	} else {
		err = runSchemaCommand(env, cmd, args)
	}
	if errors.Is(err, errUsage) {
		log.Error("Bad arguments", zap.String("command", name), zap.Error(err))
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func runSchemaCommand(env *cliEnv, cmd command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var m *migration.Migrator
	if env.dir == "" {
		env.log.Debug("Using embedded migrations")
		m, err = migration.NewFromFS(db, migrations.FS, env.log)
	} else {
		abs, absErr := filepath.Abs(env.dir)
		if absErr != nil {
			return absErr
		}
		env.log.Debug("Using migrations directory", zap.String("path", abs))
		m, err = migration.NewFromPath(db, abs, env.log)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			env.log.Warn("Closing migrator", zap.Error(err))
		}
	}()

	return cmd.schema(m, env.log, args)
}

func createMigration(env *cliEnv, args []string) error {
	dir := env.dir
	if dir == "" {
		dir = defaultMigrationsPath
	}
	var description string
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	env.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func listMigrations(env *cliEnv, _ []string) error {
	var fsys fs.FS = migrations.FS
	if env.dir != "" {
		fsys = os.DirFS(env.dir)
	}
	names, err := migration.ListMigrations(fsys)
	if err != nil {
		return err
	}
	env.log.Info("Available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, "Inventory sync database migrations\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:\n")
	for _, name := range []string{"up", "down", "step", "goto", "version", "force", "create", "list"} {
		fmt.Fprintln(os.Stderr, "  "+commands[name].usage)
	}
	fmt.Fprint(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
	fmt.Fprint(os.Stderr, "\nThe database is configured through INVSYNC_DATABASE_* environment variables.\n")
}
