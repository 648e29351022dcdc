// Package catalog holds the read-only, process-wide snapshot of database
// structure — tables, columns, and the joins between them — that the rest of
// BifrostQL plans and compiles queries against.
package catalog

import "fmt"

// Kind distinguishes base tables from views. Views are always read-only.
type Kind int

const (
	BaseTable Kind = iota
	View
)

// JoinKind controls the cardinality and response shape of a relationship.
type JoinKind int

const (
	Single JoinKind = iota
	Many
	ManyToMany
)

func (k JoinKind) String() string {
	switch k {
	case Single:
		return "single"
	case Many:
		return "many"
	case ManyToMany:
		return "many-to-many"
	default:
		return "unknown"
	}
}

// Visibility controls whether a table is exposed in the synthesized schema.
type Visibility int

const (
	Visible Visibility = iota
	Hidden
)

// Populate describes an audit column's fill-on-write rule.
type Populate int

const (
	PopulateNone Populate = iota
	PopulateCreatedOn
	PopulateCreatedBy
	PopulateUpdatedOn
	PopulateUpdatedBy
	PopulateDeletedOn
	PopulateDeletedBy
)

// TableRef is a stable, ownership-free handle to a table: a (schema, name)
// pair used as a lookup key so joins never hold owning pointers into a
// catalog that may be swapped out from under them mid-request (see
// DESIGN.md "Cyclic catalog references").
type TableRef struct {
	Schema string
	Name   string
}

func (r TableRef) String() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// Column is one column of a Table.
type Column struct {
	Name         string
	DBType       string // dialect-native type string, e.g. "varchar", "int4"
	Nullable     bool
	Ordinal      int
	IsPrimaryKey bool
	IsIdentity   bool
	IsReadOnly   bool
	Populate     Populate
}

// SoftDelete names the columns a soft-delete table rewrites a `delete`
// mutation into an UPDATE against.
type SoftDelete struct {
	DeletedOnColumn string
	DeletedByColumn string
}

// Join is a named relationship from a Table to another Table, either
// inferred from column-naming heuristics (infer.go) or declared via a
// metadata directive (directive.go).
type Join struct {
	Name string
	Kind JoinKind

	Source TableRef
	Dest   TableRef

	// SourceColumns and DestColumns are paired positionally; len must match.
	SourceColumns []string
	DestColumns   []string

	// Intermediate is set only for ManyToMany joins.
	Intermediate     TableRef
	IntermediateSrc  []string // columns on Intermediate paired with SourceColumns
	IntermediateDest []string // columns on Intermediate paired with DestColumns

	// FKName anchors the join to a named foreign key constraint, when one
	// produced it; empty for purely heuristic joins.
	FKName string
}

func (j Join) validate() error {
	if len(j.SourceColumns) == 0 || len(j.SourceColumns) != len(j.DestColumns) {
		return fmt.Errorf("join %q: source/dest column count mismatch", j.Name)
	}
	if j.Kind == ManyToMany {
		if j.Intermediate.Name == "" {
			return fmt.Errorf("join %q: many-to-many join missing intermediate table", j.Name)
		}
		if len(j.IntermediateSrc) != len(j.SourceColumns) || len(j.IntermediateDest) != len(j.DestColumns) {
			return fmt.Errorf("join %q: intermediate column count mismatch", j.Name)
		}
	}
	return nil
}

// Table is one table or view in the catalog, with its columns ordered by
// ordinal position and its joins keyed by logical (alias-able) name.
type Table struct {
	Ref  TableRef
	Kind Kind

	Columns     []*Column
	colByName   map[string]*Column
	PrimaryKeys []*Column

	IdentityColumn *Column
	LabelColumn    *Column

	Joins     []*Join
	joinByName map[string]*Join

	Visibility   Visibility
	DefaultLimit int // 0 means "use catalog-wide default"
	SoftDelete   *SoftDelete

	// UpdateDisabled, set by the `update: false` metadata attribute,
	// removes update/upsert from an otherwise-editable table while still
	// allowing insert/delete (spec.md §6's `update` directive key).
	UpdateDisabled bool

	// AutoJoinDisabled, set by the `auto-join: false` metadata attribute,
	// excludes this table from InferJoins' naming-convention heuristic in
	// both directions (spec.md §6's `auto-join` directive key) — declared
	// joins from `join` directives are unaffected.
	AutoJoinDisabled bool
}

// Editable reports whether the table accepts insert/update/upsert/delete
// mutations: it must be a base table with at least one primary key, and not
// hidden (spec.md §4.4, §4.8).
func (t *Table) Editable() bool {
	return t.Kind == BaseTable && len(t.PrimaryKeys) > 0 && t.Visibility != Hidden
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.colByName[name]
	return c, ok
}

// JoinByName looks up a join by its logical (or aliased) name.
func (t *Table) JoinByName(name string) (*Join, bool) {
	j, ok := t.joinByName[name]
	return j, ok
}

// AddColumn appends a column, keeping the name index and primary-key /
// identity shortcuts in sync. Columns must be added in ordinal order.
func (t *Table) AddColumn(c *Column) {
	if t.colByName == nil {
		t.colByName = make(map[string]*Column)
	}
	t.Columns = append(t.Columns, c)
	t.colByName[c.Name] = c
	if c.IsPrimaryKey {
		t.PrimaryKeys = append(t.PrimaryKeys, c)
	}
	if c.IsIdentity {
		t.IdentityColumn = c
	}
}

// AddJoin registers a join under its logical name. Re-adding the same name
// overwrites the previous definition, matching the metadata directive
// "later directives override earlier" rule (spec.md §4.2/§6).
func (t *Table) AddJoin(j *Join) error {
	if err := j.validate(); err != nil {
		return err
	}
	if t.joinByName == nil {
		t.joinByName = make(map[string]*Join)
	}
	if _, exists := t.joinByName[j.Name]; !exists {
		t.Joins = append(t.Joins, j)
	} else {
		for i, existing := range t.Joins {
			if existing.Name == j.Name {
				t.Joins[i] = j
				break
			}
		}
	}
	t.joinByName[j.Name] = j
	return nil
}

// Catalog is the immutable, process-wide snapshot of database structure.
// A Catalog is built once by a Loader and never mutated afterward; reload
// replaces the pointer held by core.Engine (see core/engine.go), it never
// edits a live Catalog in place (spec.md §5 "Shared state").
type Catalog struct {
	Dialect string
	tables  map[TableRef]*Table
	order   []TableRef
}

// New creates an empty catalog for the given dialect name.
func New(dialect string) *Catalog {
	return &Catalog{Dialect: dialect, tables: make(map[TableRef]*Table)}
}

// Put inserts or replaces a table. Call order determines iteration order
// from Tables(), matching the order the loader read tables in.
func (c *Catalog) Put(t *Table) {
	if _, exists := c.tables[t.Ref]; !exists {
		c.order = append(c.order, t.Ref)
	}
	c.tables[t.Ref] = t
}

// Table looks up a table by reference.
func (c *Catalog) Table(ref TableRef) (*Table, bool) {
	t, ok := c.tables[ref]
	return t, ok
}

// TableByName looks up a table by unqualified name, returning an error if
// the name is ambiguous across schemas or missing entirely.
func (c *Catalog) TableByName(name string) (*Table, error) {
	var found *Table
	for _, ref := range c.order {
		if ref.Name == name {
			if found != nil {
				return nil, fmt.Errorf("table name %q is ambiguous across schemas", name)
			}
			found = c.tables[ref]
		}
	}
	if found == nil {
		return nil, fmt.Errorf("unknown table %q", name)
	}
	return found, nil
}

// Tables returns every table in load order.
func (c *Catalog) Tables() []*Table {
	out := make([]*Table, 0, len(c.order))
	for _, ref := range c.order {
		out = append(out, c.tables[ref])
	}
	return out
}

// VisibleTables returns every non-hidden table, in load order.
func (c *Catalog) VisibleTables() []*Table {
	var out []*Table
	for _, ref := range c.order {
		if t := c.tables[ref]; t.Visibility != Hidden {
			out = append(out, t)
		}
	}
	return out
}
