// Package migrations embeds the SQL schema shared by the migrator, the
// ingester and repository tests. The statements run unchanged on
// PostgreSQL and SQLite.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Direction selects which half of each migration runs
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection validates a direction name
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("invalid migration direction %q, expected up or down", s)
}

// Execer is satisfied by *sql.DB, *sql.Tx and their sqlx wrappers.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Migration is one embedded SQL file
type Migration struct {
	Name string
	SQL  string
}

// List returns the migrations for dir in the order they must run:
// ascending for up, descending for down.
func List(dir Direction) ([]Migration, error) {
	names, err := fs.Glob(files, "*."+string(dir)+".sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	if dir == Down {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		content, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		out = append(out, Migration{Name: name, SQL: string(content)})
	}
	return out, nil
}

// Apply runs every migration for dir against db and returns the names applied.
func Apply(ctx context.Context, db Execer, dir Direction) ([]string, error) {
	migrations, err := List(dir)
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(migrations))
	for _, m := range migrations {
		for _, stmt := range statements(m.SQL) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return applied, fmt.Errorf("migration %s: %w", m.Name, err)
			}
		}
		applied = append(applied, m.Name)
	}
	return applied, nil
}

// statements splits a migration file on semicolons. The schema files hold
// no procedural bodies, so a plain split is enough.
func statements(content string) []string {
	var out []string
	for _, s := range strings.Split(content, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
