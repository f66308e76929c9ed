package tools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/plugkit/plugkit/llm"
)

// SQLiteQueryInput defines the input for the sqlite_query tool.
type SQLiteQueryInput struct {
	Path  string `json:"path" jsonschema:"required,description=Path to the SQLite database file"`
	Query string `json:"query" jsonschema:"required,description=SELECT statement to run"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum rows to return (default: 100)"`
}

// SQLiteQueryOutput defines the output of the sqlite_query tool.
type SQLiteQueryOutput struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
}

// SQLiteQueryTool returns the sqlite_query tool. Only read statements are
// accepted; anything that is not a SELECT or WITH query is rejected before
// touching the database.
func SQLiteQueryTool() (llm.Tool, error) {
	return llm.NewTool(
		"sqlite_query",
		"Run a read-only SQL query against a local SQLite database and return the rows.",
		querySQLite,
	)
}

// MustSQLiteQuery returns the sqlite_query tool, panicking on error.
func MustSQLiteQuery() llm.Tool {
	tool, err := SQLiteQueryTool()
	if err != nil {
		panic(err)
	}
	return tool
}

func querySQLite(ctx context.Context, input SQLiteQueryInput) (SQLiteQueryOutput, error) {
	query := strings.TrimSpace(input.Query)
	lowered := strings.ToLower(query)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return SQLiteQueryOutput{}, fmt.Errorf("only SELECT queries are allowed")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 100
	}

	db, err := sql.Open("sqlite", "file:"+input.Path+"?mode=ro")
	if err != nil {
		return SQLiteQueryOutput{}, fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return SQLiteQueryOutput{}, fmt.Errorf("running query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return SQLiteQueryOutput{}, fmt.Errorf("reading columns: %w", err)
	}

	out := SQLiteQueryOutput{Columns: columns}
	for rows.Next() && out.Count < limit {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return SQLiteQueryOutput{}, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out.Rows = append(out.Rows, row)
		out.Count++
	}
	if err := rows.Err(); err != nil {
		return SQLiteQueryOutput{}, fmt.Errorf("iterating rows: %w", err)
	}

	return out, nil
}
