// Command meetingctl runs the scheduling analytics against a SQLite calendar
// from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

const version = "v0.1.0"

type CLI struct {
	Version  kong.VersionFlag `help:"Print the version and exit."`
	DB       string           `help:"SQLite database file." default:"meetings.db" env:"SCHEDULER_DATABASE_PATH" type:"path"`
	LogLevel string           `help:"Minimum log level on stderr." default:"warn" enum:"debug,info,warn,error"`
	Timezone string           `help:"Zone used when a command names none." default:"UTC" env:"SCHEDULER_DEFAULT_TIMEZONE"`

	Migrate       MigrateCmd       `cmd:"" help:"Apply pending schema migrations and report the schema version."`
	Slots         SlotsCmd         `cmd:"" help:"Rank meeting slots for a set of participants."`
	Conflicts     ConflictsCmd     `cmd:"" help:"List why a user cannot attend an interval."`
	Patterns      PatternsCmd      `cmd:"" help:"Summarize a user's recent meetings."`
	Workload      WorkloadCmd      `cmd:"" help:"Compare the meeting load of a team."`
	Effectiveness EffectivenessCmd `cmd:"" help:"Score a meeting and store the score."`
	Optimize      OptimizeCmd      `cmd:"" help:"Review a user's upcoming week."`
	Agenda        AgendaCmd        `cmd:"" help:"Build an agenda skeleton for a topic."`
}

// Env is handed to every command's Run method.
type Env struct {
	Ctx       context.Context
	Store     *sqlite.Store
	Analytics *application.AnalyticsService
	Timezone  string
	Out       io.Writer
	Logger    *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("meetingctl"),
		kong.Description("Meeting scheduling analytics over a SQLite calendar."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cli.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cli.LogLevel, err)
	}
	logger := logging.NewConsoleLogger(stderr, level, "meetingctl")

	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cli.DB), logger)
	if err != nil {
		return fmt.Errorf("open %s: %w", cli.DB, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	engine := scheduler.New(store, scheduler.WithLogger(logger))
	env := &Env{
		Ctx:       logging.ContextWithLogger(ctx, logger),
		Store:     store,
		Analytics: application.NewAnalyticsServiceWithLogger(engine, cli.Timezone, 0, logger),
		Timezone:  cli.Timezone,
		Out:       stdout,
		Logger:    logger,
	}
	return kctx.Run(env)
}
