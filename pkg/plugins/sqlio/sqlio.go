// Package sqlio loads tables from SQL databases through sqlx. The MySQL and
// SQLite drivers are linked in.
package sqlio

import (
	"context"
	"fmt"
	"strconv"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// Option keys of the SQL reader.
const (
	// OptDriver is one of Drivers.
	OptDriver = "driver"
	// OptDSN is the driver specific data source name.
	OptDSN = "dsn"
	// OptQuery is the statement whose result set is read.
	OptQuery = "query"
	// OptName names the produced table.
	OptName = "name"
)

// Drivers lists the accepted driver names.
var Drivers = []string{"mysql", "sqlite"}

// OpenFunc opens a database handle.
type OpenFunc func(driver, dsn string) (*sqlx.DB, error)

// Reader runs a query and returns its result set as a table.
type Reader struct {
	opts *plugin.Options
	open OpenFunc
}

// NewReader creates a SQL reader using sqlx.Open.
func NewReader() *Reader {
	return NewReaderWithOpener(sqlx.Open)
}

// NewReaderWithOpener creates a SQL reader with a custom opener.
func NewReaderWithOpener(open OpenFunc) *Reader {
	return &Reader{
		opts: plugin.NewOptions().
			Default(OptDriver, "sqlite").
			Default(OptDSN, "").
			Default(OptQuery, "").
			Default(OptName, "query"),
		open: open,
	}
}

// Describe returns the catalogue entry of Reader.
func (r *Reader) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "SQL Reader",
		Synopsis:    "Loads the result of a SQL query",
		Description: "Supported drivers: mysql, sqlite.",
		Version:     "1.0",
		MaxInputs:   0,
		MaxOutputs:  plugin.Unlimited,
	}
}

// Options returns the options of Reader.
func (r *Reader) Options() *plugin.Options { return r.opts }

// Read opens the database, runs the query and converts every cell to
// text. NULL becomes the empty string.
func (r *Reader) Read(ctx context.Context) (*domain.Table, error) {
	driver, err := r.opts.String(OptDriver)
	if err != nil {
		return nil, err
	}
	if !supported(driver) {
		return nil, &plugin.InvalidOptionError{Key: OptDriver, Reason: fmt.Sprintf("unsupported driver %q", driver)}
	}
	dsn, err := r.opts.String(OptDSN)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, &plugin.InvalidOptionError{Key: OptDSN, Reason: "is empty"}
	}
	query, err := r.opts.String(OptQuery)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return nil, &plugin.InvalidOptionError{Key: OptQuery, Reason: "is empty"}
	}
	name, _ := r.opts.String(OptName)

	db, err := r.open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	defer db.Close()

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	t := domain.NewTable(name, columns...)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = cell(v)
		}
		t.AppendRow(cells...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return t, nil
}

func supported(driver string) bool {
	for _, d := range Drivers {
		if d == driver {
			return true
		}
	}
	return false
}

func cell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
