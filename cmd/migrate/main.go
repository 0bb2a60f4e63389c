package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"solace-api/internal/shared"

	_ "github.com/go-sql-driver/mysql"
)

// Applies every .sql file under the migrations directory, in name order,
// against the DSN from the environment. Files are plain DDL split on
// semicolons; all statements are idempotent (CREATE TABLE IF NOT EXISTS), so
// rerunning is safe.
func main() {
	dsn, err := shared.SafeEnv("DSN")
	if err != nil {
		fatalf("DSN environment variable is required: %v", err)
	}

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := migrationFiles(dir)
	if err != nil {
		fatalf("reading migrations dir %s: %v", dir, err)
	}
	if len(files) == 0 {
		fatalf("no .sql files found in %s", dir)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		fatalf("connecting to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		fatalf("pinging database: %v", err)
	}

	for _, file := range files {
		if err := applyFile(db, file); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("applied %s\n", file)
	}
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func applyFile(db *sql.DB, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = stripComments(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing statement from %s: %w\n%s", path, err, stmt)
		}
	}
	return nil
}

func stripComments(stmt string) string {
	var kept []string
	for _, line := range strings.Split(stmt, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
