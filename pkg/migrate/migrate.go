package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Command names one action of the migrate binary.
type Command string

const (
	CommandUp       Command = "up"
	CommandDown     Command = "down"
	CommandStatus   Command = "status"
	CommandVersion  Command = "version"
	CommandCreate   Command = "create"
	CommandValidate Command = "validate"
)

var validCommands = []Command{
	CommandUp,
	CommandDown,
	CommandStatus,
	CommandVersion,
	CommandCreate,
	CommandValidate,
}

// ParseCommand converts a -cmd flag value into a Command.
func ParseCommand(value string) (Command, error) {
	normalized := Command(strings.ToLower(strings.TrimSpace(value)))
	for _, candidate := range validCommands {
		if candidate == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown migrate command %q", value)
}

// NeedsDB reports whether the command talks to the database.
func (c Command) NeedsDB() bool {
	return c != CommandCreate && c != CommandValidate
}

// Runner applies the goose migrations in dir against a Postgres connection.
// SQLite dev databases are shaped with AutoMigrate instead.
type Runner struct {
	db  *sql.DB
	dir string
}

func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return &Runner{db: db, dir: dir}, nil
}

// Exec runs a database command. target is only read by CommandVersion.
func (r *Runner) Exec(ctx context.Context, cmd Command, target string) error {
	switch cmd {
	case CommandUp, CommandDown, CommandStatus:
		if err := goose.RunContext(ctx, string(cmd), r.db, r.dir); err != nil {
			return fmt.Errorf("goose %s: %w", cmd, err)
		}
		return nil
	case CommandVersion:
		return r.migrateTo(ctx, target)
	default:
		return fmt.Errorf("command %q does not use the database", cmd)
	}
}

// migrateTo moves the schema up or down until it sits at targetVersion.
func (r *Runner) migrateTo(ctx context.Context, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("target version is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	current, err := goose.GetDBVersion(r.db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, r.db, r.dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, r.db, r.dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
