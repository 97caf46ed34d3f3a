// Command mapper is a thin demonstration harness for the GraphQL-to-SQL
// pipeline (spec §1 explicitly places a CLI out of scope; this stays a
// single flag-based subcommand rather than growing a command tree).
// Grounded on the teacher's thin compiler-frontend binaries: load
// declarative input, run the pipeline, print the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/chlorophyll/mapper/dialect"
	"github.com/chlorophyll/mapper/mapping"
	"github.com/chlorophyll/mapper/planner"
	sqlpkg "github.com/chlorophyll/mapper/sql"
	"github.com/chlorophyll/mapper/stage"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	mappingPath := flag.String("mapping", "", "path to a YAML mapping definition")
	queryPath := flag.String("query", "", "path to a JSON query-algebra fixture")
	typeName := flag.String("type", "", "root GraphQL type name")
	dialectName := flag.String("dialect", sqlpkg.DialectSQLite, "postgres|mysql|sqlite")
	dsn := flag.String("dsn", "", "database/sql data source name; when empty, only the compiled SQL is printed")
	flag.Parse()

	if *mappingPath == "" || *queryPath == "" || *typeName == "" {
		fmt.Fprintln(os.Stderr, "usage: mapper -mapping FILE -query FILE -type TYPE [-dialect NAME -dsn DSN]")
		os.Exit(2)
	}

	if err := run(*mappingPath, *queryPath, *typeName, *dialectName, *dsn); err != nil {
		slog.Error("mapper: failed", "err", err)
		os.Exit(1)
	}
}

func run(mappingPath, queryPath, typeName, dialectName, dsn string) error {
	cat, err := mapping.LoadFile(mappingPath)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(queryPath)
	if err != nil {
		return fmt.Errorf("read query fixture: %w", err)
	}
	var doc jsonQuery
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse query fixture: %w", err)
	}
	q, err := doc.build()
	if err != nil {
		return fmt.Errorf("decode query: %w", err)
	}

	elaborated, err := stage.Elaborate(cat, q, nil, typeName)
	if err != nil {
		return fmt.Errorf("elaborate: %w", err)
	}

	mq, err := planner.Build(cat, elaborated, nil, typeName, planner.Options{Dialect: dialectName})
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	frag, err := mq.Fragment(nil)
	if err != nil {
		return fmt.Errorf("render fragment: %w", err)
	}

	fmt.Println(frag.Text)
	for i, b := range frag.Binds {
		fmt.Printf("  $%d = %v\n", i+1, b.Value)
	}

	if dsn == "" {
		return nil
	}

	drv, err := dialect.Open(dialectName, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", dialectName, err)
	}
	defer drv.Close()

	rows, err := dialect.Fetch(context.Background(), drv, mq, frag)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	fmt.Printf("%d row(s)\n", len(rows))
	return nil
}
