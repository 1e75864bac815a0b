package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/stocker/backend/internal/infrastructure/config"
	"github.com/stocker/backend/internal/infrastructure/dbschema"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

func main() {
	var (
		migrationsDir string
		logLevel      string
	)
	flag.StringVar(&migrationsDir, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// create and list work on files only
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		dir := migrationsDir
		if dir == "" {
			dir = defaultMigrationsDir
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := dbschema.CreateMigration(dir, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.Uint("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		var src fs.FS = migrations.FS
		if migrationsDir != "" {
			src = os.DirFS(migrationsDir)
		}
		list, err := dbschema.ListMigrations(src)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		for _, mf := range list {
			fmt.Printf("  %06d  %s\n", mf.Version, mf.Name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	var m *dbschema.Migrator
	if migrationsDir != "" {
		m, err = dbschema.NewFromDir(db, migrationsDir, log)
	} else {
		m, err = dbschema.New(db, migrations.FS, log)
	}
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "step":
		n, perr := intArg(args, "step count")
		if perr != nil {
			log.Fatal(perr.Error())
		}
		err = m.Steps(n)
	case "goto":
		n, perr := intArg(args, "version")
		if perr != nil || n < 0 {
			log.Fatal("Invalid version. Usage: migrate goto <version>")
		}
		err = m.GoTo(uint(n))
	case "version":
		st, serr := m.Status()
		if serr != nil {
			log.Fatal("Failed to get version", zap.Error(serr))
		}
		if !st.Applied {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version", zap.Uint("version", st.Version), zap.Bool("dirty", st.Dirty))
		}
	case "force":
		n, perr := intArg(args, "version")
		if perr != nil {
			log.Fatal(perr.Error())
		}
		err = m.Force(n)
	case "drop":
		if !slices.Contains(args[1:], "-confirm") && !slices.Contains(args[1:], "--confirm") {
			log.Fatal("Drop cancelled. Use 'migrate drop -confirm' to confirm.")
		}
		err = m.Drop()
	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func intArg(args []string, what string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[1])
	}
	return n, nil
}

func printUsage() {
	fmt.Println(`Stocker schema migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Mark a version applied and clear the dirty flag
  drop -confirm         Drop all database objects
  create <name> [desc]  Create the next numbered migration pair
  list                  List migrations

Flags:
  -path string          Migrations directory (default: the embedded set; ./migrations for create)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  STOCKER_DATABASE_HOST, STOCKER_DATABASE_PORT, STOCKER_DATABASE_USER,
  STOCKER_DATABASE_PASSWORD, STOCKER_DATABASE_DBNAME, STOCKER_DATABASE_SSLMODE`)
}
