package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ryanuber/go-glob"
)

// Directive is one parsed line from the `metadata` configuration list
// (spec.md §6): `<schemaPat>.<tablePat>[.<colPat>][|predicate] { key: value; ... }`.
// Patterns use shell-style globs ('*'); later directives in the configured
// order override earlier ones when they target the same entity and key.
type Directive struct {
	SchemaPat string
	TablePat  string
	ColPat    string // empty when the directive targets a table, not a column
	Predicate string // e.g. "has(deletedOn)"; empty when unconditional
	Attrs     map[string]string
}

// ParseDirective parses one `selector { key: value; ... }` line.
func ParseDirective(line string) (Directive, error) {
	line = strings.TrimSpace(line)
	open := strings.IndexByte(line, '{')
	close := strings.LastIndexByte(line, '}')
	if open < 0 || close < 0 || close < open {
		return Directive{}, fmt.Errorf("malformed metadata directive (missing braces): %q", line)
	}
	selector := strings.TrimSpace(line[:open])
	body := strings.TrimSpace(line[open+1 : close])

	d := Directive{Attrs: map[string]string{}}

	if bar := strings.IndexByte(selector, '|'); bar >= 0 {
		d.Predicate = strings.TrimSpace(selector[bar+1:])
		selector = strings.TrimSpace(selector[:bar])
	}

	parts := strings.Split(selector, ".")
	switch len(parts) {
	case 2:
		d.SchemaPat, d.TablePat = parts[0], parts[1]
	case 3:
		d.SchemaPat, d.TablePat, d.ColPat = parts[0], parts[1], parts[2]
	default:
		return Directive{}, fmt.Errorf("malformed metadata selector %q: want schemaPat.tablePat[.colPat]", selector)
	}

	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		kv := strings.SplitN(stmt, ":", 2)
		if len(kv) != 2 {
			return Directive{}, fmt.Errorf("malformed metadata attribute %q", stmt)
		}
		d.Attrs[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return d, nil
}

// ParseDirectives parses a full `metadata` configuration list in order.
func ParseDirectives(lines []string) ([]Directive, error) {
	out := make([]Directive, 0, len(lines))
	for _, l := range lines {
		d, err := ParseDirective(l)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// matchesTable reports whether d's schema/table glob selects t.
func (d Directive) matchesTable(t *Table) bool {
	return glob.Glob(d.SchemaPat, t.Ref.Schema) && glob.Glob(d.TablePat, t.Ref.Name)
}

// matchesPredicate evaluates the optional `|predicate` guard. The only
// recognized predicate today is `has(<col>)`, per spec.md §6.
func (d Directive) matchesPredicate(t *Table) bool {
	if d.Predicate == "" {
		return true
	}
	if strings.HasPrefix(d.Predicate, "has(") && strings.HasSuffix(d.Predicate, ")") {
		col := d.Predicate[len("has(") : len(d.Predicate)-1]
		_, ok := t.Column(col)
		return ok
	}
	return false
}

// ApplyDirectives walks every table in the catalog and merges in the
// attributes of every directive whose selector matches, in configured
// order, so later directives win ties (spec.md §4.2).
func ApplyDirectives(cat *Catalog, directives []Directive) error {
	for _, t := range cat.Tables() {
		for _, d := range directives {
			if !d.matchesTable(t) || !d.matchesPredicate(t) {
				continue
			}
			if d.ColPat == "" {
				if err := applyTableAttrs(cat, t, d.Attrs); err != nil {
					return fmt.Errorf("directive %s.%s: %w", d.SchemaPat, d.TablePat, err)
				}
				continue
			}
			for _, c := range t.Columns {
				if glob.Glob(d.ColPat, c.Name) {
					applyColumnAttrs(c, d.Attrs)
				}
			}
		}
	}
	resolveSoftDeleteColumns(cat)
	return nil
}

func applyTableAttrs(cat *Catalog, t *Table, attrs map[string]string) error {
	if v, ok := attrs["visibility"]; ok {
		if strings.EqualFold(v, "hidden") {
			t.Visibility = Hidden
		} else {
			t.Visibility = Visible
		}
	}
	if v, ok := attrs["label"]; ok {
		if c, ok := t.Column(v); ok {
			t.LabelColumn = c
		}
	}
	if v, ok := attrs["default-limit"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("default-limit: %w", err)
		}
		t.DefaultLimit = n
	}
	if v, ok := attrs["delete-type"]; ok && strings.EqualFold(v, "soft") {
		if t.SoftDelete == nil {
			t.SoftDelete = &SoftDelete{}
		}
	}
	if v, ok := attrs["update"]; ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("update: %w", err)
		}
		t.UpdateDisabled = !enabled
	}
	if v, ok := attrs["auto-join"]; ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("auto-join: %w", err)
		}
		t.AutoJoinDisabled = !enabled
	}
	if v, ok := attrs["join"]; ok {
		j, err := parseJoinAttr(t.Ref, v)
		if err != nil {
			return fmt.Errorf("join: %w", err)
		}
		if err := t.AddJoin(j); err != nil {
			return err
		}
	}
	_ = cat
	return nil
}

func applyColumnAttrs(c *Column, attrs map[string]string) {
	if v, ok := attrs["populate"]; ok {
		switch v {
		case "created-on":
			c.Populate = PopulateCreatedOn
		case "created-by":
			c.Populate = PopulateCreatedBy
		case "updated-on":
			c.Populate = PopulateUpdatedOn
		case "updated-by":
			c.Populate = PopulateUpdatedBy
		case "deleted-on":
			c.Populate = PopulateDeletedOn
		case "deleted-by":
			c.Populate = PopulateDeletedBy
		}
	}
}

// deletedOnNames/deletedByNames are the naming-convention fallback
// resolveSoftDeleteColumns uses when a soft-delete table has no column
// explicitly marked `populate: deleted-on`/`deleted-by` (spec.md line 32's
// "deleted-on marker" doesn't require the populate key, just that the
// column be identifiable — `has(deletedOn)` in a directive predicate is
// exactly this convention already in use to guard `delete-type: soft`).
var (
	deletedOnNames = []string{"deletedOn", "deleted_on", "deleted_at", "deletedAt"}
	deletedByNames = []string{"deletedBy", "deleted_by"}
)

// resolveSoftDeleteColumns fills in DeletedOnColumn/DeletedByColumn for
// every table whose metadata set `delete-type: soft`, preferring an
// explicit `populate: deleted-on`/`deleted-by` column marker and falling
// back to the naming convention. Runs after every directive has been
// applied so it never depends on whether the `delete-type: soft` directive
// or a column-level populate directive was written first.
func resolveSoftDeleteColumns(cat *Catalog) {
	for _, t := range cat.Tables() {
		if t.SoftDelete == nil {
			continue
		}
		if t.SoftDelete.DeletedOnColumn == "" {
			if c := findSoftDeleteColumn(t, PopulateDeletedOn, deletedOnNames); c != nil {
				t.SoftDelete.DeletedOnColumn = c.Name
			}
		}
		if t.SoftDelete.DeletedByColumn == "" {
			if c := findSoftDeleteColumn(t, PopulateDeletedBy, deletedByNames); c != nil {
				t.SoftDelete.DeletedByColumn = c.Name
			}
		}
	}
}

func findSoftDeleteColumn(t *Table, marker Populate, fallbackNames []string) *Column {
	for _, c := range t.Columns {
		if c.Populate == marker {
			return c
		}
	}
	for _, name := range fallbackNames {
		if c, ok := t.Column(name); ok {
			return c
		}
	}
	return nil
}

// parseJoinAttr parses a declared join of the form:
//
//	name=department;kind=single;dest=departments;src_cols=deptId;dest_cols=id
//
// into a Join anchored at src (the table the directive was written on).
func parseJoinAttr(src TableRef, spec string) (*Join, error) {
	j := &Join{Source: src}
	for _, part := range strings.Split(spec, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch key {
		case "name":
			j.Name = val
		case "kind":
			switch val {
			case "single":
				j.Kind = Single
			case "many":
				j.Kind = Many
			case "many-to-many":
				j.Kind = ManyToMany
			default:
				return nil, fmt.Errorf("unknown join kind %q", val)
			}
		case "dest":
			j.Dest = TableRef{Schema: src.Schema, Name: val}
		case "dest_schema":
			j.Dest.Schema = val
		case "src_cols":
			j.SourceColumns = strings.Split(val, ",")
		case "dest_cols":
			j.DestColumns = strings.Split(val, ",")
		case "via":
			j.Intermediate = TableRef{Schema: src.Schema, Name: val}
		case "via_src_cols":
			j.IntermediateSrc = strings.Split(val, ",")
		case "via_dest_cols":
			j.IntermediateDest = strings.Split(val, ",")
		case "fk":
			j.FKName = val
		}
	}
	if j.Name == "" {
		return nil, fmt.Errorf("join directive missing name= on %s", src)
	}
	return j, nil
}
