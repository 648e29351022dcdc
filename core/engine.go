package core

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/dialect"
	"github.com/standardbeagle/BifrostQL-sub008/mutate"
	"github.com/standardbeagle/BifrostQL-sub008/qplan"
	"github.com/standardbeagle/BifrostQL-sub008/schema"
	"github.com/standardbeagle/BifrostQL-sub008/sqlgen"
)

// snapshot is the complete, consistent set of per-catalog-generation state:
// the catalog itself plus everything schema.Build derived from it. Reload
// produces a new snapshot and publishes it atomically — readers mid-request
// keep whichever snapshot they captured at plan start (spec.md §5 "Shared
// state").
type snapshot struct {
	catalog *catalog.Catalog
	schema  *graphql.Schema
}

// Engine owns one live database connection pool, the current catalog
// snapshot, and the compiler-stage singletons every request plans and
// compiles against. Exactly one Engine exists per running process; nothing
// else in this repo holds process-wide mutable state (spec.md §9 "Global
// mutable state").
type Engine struct {
	cfg    Config
	db     *sql.DB
	dial   dialect.Dialect
	mapper catalog.ScalarMapper
	loader catalog.Loader

	planner *qplan.Planner
	emitter *sqlgen.Emitter
	mutator *mutate.Compiler

	snap atomic.Pointer[snapshot]

	observer Observer
	log      *zap.Logger
}

// New constructs an Engine bound to db, validates and normalizes cfg, and
// performs the first catalog load — a fatal failure here is the only
// documented non-zero-exit-code condition (spec.md §6 "Exit codes").
func New(cfg Config, db *sql.DB, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dial, err := dialect.New(cfg.Dialect)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	loader, err := catalog.NewLoader(cfg.Dialect, cfg.Schemas)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		db:       db,
		dial:     dial,
		mapper:   catalog.NewScalarMapper(cfg.Dialect),
		loader:   loader,
		planner:  qplan.NewPlanner(cfg.DefaultLimit),
		emitter:  sqlgen.NewEmitter(dial),
		mutator:  mutate.NewCompiler(dial),
		observer: NopObserver{},
		log:      log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Reload(ctx); err != nil {
		return nil, fmt.Errorf("core: initial catalog load: %w", err)
	}
	return e, nil
}

// SetObserver installs the Observer whose Parsed/Transformed/BeforeExecute/
// AfterExecute callbacks fire around every subsequent request.
func (e *Engine) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	e.observer = o
}

// Catalog returns the snapshot's catalog. Safe for concurrent use; a
// concurrent Reload never mutates the returned value.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.snap.Load().catalog
}

// Schema returns the graphql-go Schema synthesized from the current
// snapshot.
func (e *Engine) Schema() *graphql.Schema {
	return e.snap.Load().schema
}

// Reload re-reads catalog structure from the database, re-applies metadata
// directives and join inference, rebuilds the synthesized schema, and
// atomically swaps the published snapshot — never mutating the previous one
// in place (spec.md §9 "Global mutable state"; §5 "Shared state"). A
// reload failure leaves the previously published snapshot untouched.
func (e *Engine) Reload(ctx context.Context) error {
	cat, err := catalog.Reload(ctx, e.db, e.loader)
	if err != nil {
		return fmt.Errorf("catalog load: %w", err)
	}

	directives, err := catalog.ParseDirectives(e.cfg.Metadata)
	if err != nil {
		return fmt.Errorf("metadata directives: %w", err)
	}
	if err := catalog.ApplyDirectives(cat, directives); err != nil {
		return fmt.Errorf("metadata directives: %w", err)
	}
	catalog.InferJoins(cat)

	sch, err := schema.Build(schema.Deps{
		Catalog:     cat,
		Mapper:      e.mapper,
		Dialect:     e.dial,
		Planner:     e.planner,
		Emitter:     e.emitter,
		Mutator:     e.mutator,
		Exec:        &dbExecutor{db: e.db},
		UserContext: e.userContextFrom,
		Hooks:       e.schemaHooks(),
	})
	if err != nil {
		return fmt.Errorf("schema build: %w", err)
	}

	e.snap.Store(&snapshot{catalog: cat, schema: sch})
	e.log.Info("catalog reloaded",
		zap.String("dialect", e.cfg.Dialect),
		zap.Int("table-count", len(cat.Tables())))
	return nil
}

// userContextFrom extracts the mutation-audit user context installed onto
// ctx by the host (schema.UserContextFunc; spec.md §4.8, §6 "User
// context"), keyed by the configured audit-user-key.
func (e *Engine) userContextFrom(ctx context.Context) mutate.UserContext {
	v := ctx.Value(userContextKey{})
	m, ok := v.(map[string]interface{})
	if !ok {
		return mutate.UserContext{}
	}
	return mutate.UserContext{UserID: m[e.cfg.AuditUserKey]}
}

// userContextKey is the context.Context key WithUserContext stores the
// host-supplied {string -> value} mapping under.
type userContextKey struct{}

// WithUserContext attaches the host's user-context mapping (spec.md §6
// "User context") to ctx, ready for a request's mutation fields to read
// audit values from via userContextFrom.
func WithUserContext(ctx context.Context, userContext map[string]interface{}) context.Context {
	return context.WithValue(ctx, userContextKey{}, userContext)
}
