package core

import "context"

// Observer receives the four request-lifecycle phase callbacks spec.md §5
// promises external observers, always in this order per request: Parsed
// (the GraphQL document parsed, before planning), Transformed (the SQL
// text and params compiled from the plan), BeforeExecute (compiled SQL about to run), AfterExecute
// (results materialized, or the request failed). Every method is optional
// — NopObserver implements all four as no-ops for callers that don't need
// them.
type Observer interface {
	Parsed(ctx context.Context, requestID string, query string)
	Transformed(ctx context.Context, requestID string, sql string, params []interface{})
	BeforeExecute(ctx context.Context, requestID string)
	AfterExecute(ctx context.Context, requestID string, err error)
}

// NopObserver is the zero-cost default when a caller configures no
// Observer.
type NopObserver struct{}

func (NopObserver) Parsed(context.Context, string, string)                     {}
func (NopObserver) Transformed(context.Context, string, string, []interface{}) {}
func (NopObserver) BeforeExecute(context.Context, string)                      {}
func (NopObserver) AfterExecute(context.Context, string, error)                {}
