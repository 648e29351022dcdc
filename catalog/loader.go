package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avast/retry-go"
)

// Loader reads table, column, and constraint metadata from a live database
// and builds a raw Catalog (before metadata directives and join inference
// are applied — see ApplyDirectives and InferJoins). Implementations are
// the only part of this package that touches a *sql.DB (spec.md §4.2).
type Loader interface {
	Load(ctx context.Context, db *sql.DB) (*Catalog, error)
}

// NewLoader returns the Loader for a configured dialect name.
func NewLoader(dialect string, schemas []string) (Loader, error) {
	switch dialect {
	case "postgres":
		return &postgresLoader{schemas: defaultSchemas(schemas, "public")}, nil
	case "mysql":
		return &mysqlLoader{schemas: schemas}, nil
	case "sql-server":
		return &sqlServerLoader{schemas: defaultSchemas(schemas, "dbo")}, nil
	case "sqlite":
		return &sqliteLoader{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}
}

func defaultSchemas(schemas []string, fallback string) []string {
	if len(schemas) == 0 {
		return []string{fallback}
	}
	return schemas
}

// Reload runs a Loader against db, retrying any Load error up to three
// attempts in all with backoff, on every call (startup and later reloads
// alike); once a Catalog has loaded successfully once, a later reload
// failure simply keeps the previous snapshot in place (see
// core.Engine.Reload).
func Reload(ctx context.Context, db *sql.DB, loader Loader) (*Catalog, error) {
	var cat *Catalog
	err := retry.Do(
		func() error {
			c, err := loader.Load(ctx, db)
			if err != nil {
				return err
			}
			cat = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
	)
	return cat, err
}

type columnRow struct {
	schema, table, name, dbType         string
	nullable, isPK, isIdentity, isReadOnly bool
	ordinal                              int
	kind                                 Kind
}

// buildFromRows groups a flat stream of column rows (as every dialect's
// information_schema-equivalent query returns them, ordered by table then
// ordinal) into Table/Column structures.
func buildFromRows(dialect string, rows []columnRow) *Catalog {
	cat := New(dialect)
	var cur *Table
	for _, r := range rows {
		ref := TableRef{Schema: r.schema, Name: r.table}
		if cur == nil || cur.Ref != ref {
			cur = &Table{Ref: ref, Kind: r.kind}
			cat.Put(cur)
		}
		cur.AddColumn(&Column{
			Name:         r.name,
			DBType:       r.dbType,
			Nullable:     r.nullable,
			Ordinal:      r.ordinal,
			IsPrimaryKey: r.isPK,
			IsIdentity:   r.isIdentity,
			IsReadOnly:   r.isReadOnly,
		})
	}
	return cat
}

// --- Postgres -----------------------------------------------------------

type postgresLoader struct{ schemas []string }

const postgresColumnsQuery = `
SELECT c.table_schema, c.table_name, c.column_name, c.data_type, c.ordinal_position,
       (c.is_nullable = 'YES') AS nullable,
       COALESCE(c.column_default LIKE 'nextval%', false) AS is_identity,
       (t.table_type = 'VIEW') AS is_view,
       EXISTS (
         SELECT 1 FROM information_schema.key_column_usage kcu
         JOIN information_schema.table_constraints tc
           ON tc.constraint_name = kcu.constraint_name AND tc.constraint_type = 'PRIMARY KEY'
         WHERE kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name
           AND kcu.column_name = c.column_name
       ) AS is_pk
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = ANY($1)
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

func (l *postgresLoader) Load(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx, postgresColumnsQuery, l.schemas)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog load: %w", err)
	}
	defer rows.Close()

	var out []columnRow
	for rows.Next() {
		var r columnRow
		var isView bool
		if err := rows.Scan(&r.schema, &r.table, &r.name, &r.dbType, &r.ordinal,
			&r.nullable, &r.isIdentity, &isView, &r.isPK); err != nil {
			return nil, err
		}
		if isView {
			r.kind = View
			r.isReadOnly = true
		}
		out = append(out, r)
	}
	return buildFromRows("postgres", out), rows.Err()
}

// --- MySQL ----------------------------------------------------------------

type mysqlLoader struct{ schemas []string }

const mysqlColumnsQuery = `
SELECT c.table_schema, c.table_name, c.column_name, c.data_type, c.ordinal_position,
       (c.is_nullable = 'YES') AS nullable,
       (c.extra LIKE '%auto_increment%') AS is_identity,
       (t.table_type = 'VIEW') AS is_view,
       (c.column_key = 'PRI') AS is_pk
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = DATABASE()
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

func (l *mysqlLoader) Load(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx, mysqlColumnsQuery)
	if err != nil {
		return nil, fmt.Errorf("mysql catalog load: %w", err)
	}
	defer rows.Close()

	var out []columnRow
	for rows.Next() {
		var r columnRow
		var isView bool
		if err := rows.Scan(&r.schema, &r.table, &r.name, &r.dbType, &r.ordinal,
			&r.nullable, &r.isIdentity, &isView, &r.isPK); err != nil {
			return nil, err
		}
		if isView {
			r.kind = View
			r.isReadOnly = true
		}
		out = append(out, r)
	}
	return buildFromRows("mysql", out), rows.Err()
}

// --- SQL Server -------------------------------------------------------------

type sqlServerLoader struct{ schemas []string }

const sqlServerColumnsQuery = `
SELECT s.name, t.name, c.name, ty.name, c.column_id,
       c.is_nullable,
       c.is_identity,
       (t.type = 'V') AS is_view,
       (CASE WHEN ic.column_id IS NOT NULL THEN 1 ELSE 0 END) AS is_pk
FROM sys.columns c
JOIN sys.tables t ON t.object_id = c.object_id AND t.type IN ('U')
  OR (t.object_id = c.object_id)
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.types ty ON ty.user_type_id = c.user_type_id
LEFT JOIN sys.index_columns ic
  ON ic.object_id = c.object_id AND ic.column_id = c.column_id AND ic.is_included_column = 0
WHERE s.name IN (?)
ORDER BY s.name, t.name, c.column_id`

func (l *sqlServerLoader) Load(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx, sqlServerColumnsQuery, l.schemas)
	if err != nil {
		return nil, fmt.Errorf("sql server catalog load: %w", err)
	}
	defer rows.Close()

	var out []columnRow
	for rows.Next() {
		var r columnRow
		var isView bool
		if err := rows.Scan(&r.schema, &r.table, &r.name, &r.dbType, &r.ordinal,
			&r.nullable, &r.isIdentity, &isView, &r.isPK); err != nil {
			return nil, err
		}
		if isView {
			r.kind = View
			r.isReadOnly = true
		}
		out = append(out, r)
	}
	return buildFromRows("sql-server", out), rows.Err()
}

// --- SQLite -----------------------------------------------------------------

// sqliteLoader uses sqlite_master plus PRAGMA table_info per table, since
// SQLite has no information_schema.
type sqliteLoader struct{}

func (l *sqliteLoader) Load(ctx context.Context, db *sql.DB) (*Catalog, error) {
	tableRows, err := db.QueryContext(ctx,
		`SELECT name, type FROM sqlite_master WHERE type IN ('table','view') AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("sqlite catalog load: %w", err)
	}
	type tinfo struct{ name, typ string }
	var tables []tinfo
	for tableRows.Next() {
		var t tinfo
		if err := tableRows.Scan(&t.name, &t.typ); err != nil {
			tableRows.Close()
			return nil, err
		}
		tables = append(tables, t)
	}
	tableRows.Close()
	if err := tableRows.Err(); err != nil {
		return nil, err
	}

	cat := New("sqlite")
	for _, t := range tables {
		kind := BaseTable
		if t.typ == "view" {
			kind = View
		}
		tbl := &Table{Ref: TableRef{Name: t.name}, Kind: kind}

		colRows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, t.name))
		if err != nil {
			return nil, fmt.Errorf("sqlite table_info(%s): %w", t.name, err)
		}
		for colRows.Next() {
			var cid int
			var name, ctype string
			var notNull, pk int
			var dflt sql.NullString
			if err := colRows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
				colRows.Close()
				return nil, err
			}
			tbl.AddColumn(&Column{
				Name:         name,
				DBType:       ctype,
				Nullable:     notNull == 0,
				Ordinal:      cid,
				IsPrimaryKey: pk > 0,
				IsIdentity:   pk > 0 && (ctype == "" || normalize(ctype) == "integer"),
				IsReadOnly:   kind == View,
			})
		}
		colRows.Close()
		if err := colRows.Err(); err != nil {
			return nil, err
		}
		cat.Put(tbl)
	}
	return cat, nil
}
