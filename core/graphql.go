package core

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/standardbeagle/BifrostQL-sub008/errs"
	"github.com/standardbeagle/BifrostQL-sub008/schema"
)

// Request is one inbound GraphQL-over-HTTP request body (spec.md §6
// "Ingress": `{query, variables, operationName}`).
type Request struct {
	Query         string
	Variables     map[string]interface{}
	OperationName string

	// UserContext is the host-supplied `{string -> value}` mapping carrying
	// at minimum the authenticated subject under the configured
	// audit-user-key (spec.md §6 "User context").
	UserContext map[string]interface{}
}

// ResponseError is one entry of Response.Errors — the GraphQL-standard
// shape plus the taxonomy code every failure carries under
// extensions.code (spec.md §7).
type ResponseError struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// Response is BifrostQL's GraphQL-over-HTTP response body (spec.md §6:
// `{data, errors}`).
type Response struct {
	Data   interface{}     `json:"data,omitempty"`
	Errors []ResponseError `json:"errors,omitempty"`
}

// Execute runs one GraphQL request against the engine's current schema
// snapshot, covering it with a single deadline for plan + execute +
// assemble (spec.md §5 "Timeouts") and firing the configured Observer's
// phase callbacks through schema.Hooks. It never panics on malformed
// input — graphql-go's own executor turns a resolver's returned error into
// a GraphQL error entry, which Execute then maps to a taxonomy code
// (spec.md §7 "The core never panics on malformed input").
func (e *Engine) Execute(ctx context.Context, req Request) Response {
	requestID := xid.New().String()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	ctx = WithUserContext(ctx, req.UserContext)
	ctx = schema.WithRequestID(ctx, requestID)

	result := graphql.Do(graphql.Params{
		Schema:         *e.Schema(),
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	return Response{
		Data:   result.Data,
		Errors: e.convertErrors(ctx, result.Errors),
	}
}

// schemaHooks builds the schema.Hooks that forward into e.observer, reading
// the deadline's own cancellation to choose between TIMEOUT and CANCELLED
// when AfterExecute sees a context error (spec.md §5 "Cancellation").
func (e *Engine) schemaHooks() schema.Hooks {
	return schema.Hooks{
		Parsed:        func(ctx context.Context, id, q string) { e.observer.Parsed(ctx, id, q) },
		Transformed:   func(ctx context.Context, id, sql string, params []interface{}) { e.observer.Transformed(ctx, id, sql, params) },
		BeforeExecute: func(ctx context.Context, id string) { e.observer.BeforeExecute(ctx, id) },
		AfterExecute:  func(ctx context.Context, id string, err error) { e.observer.AfterExecute(ctx, id, err) },
	}
}

// convertErrors maps graphql-go's FormattedError list to ResponseErrors.
// graphql-go's default FormatError keeps nothing of a resolver's original
// error but its Error() text, so extensions.code is recovered by parsing
// the "CODE: message" prefix every *errs.Error renders (errs.CodeFromMessage)
// rather than by trying to unwrap fe back to the original error — graphql-go
// v0.8.1's gqlerrors.FormattedError carries no such accessor.
func (e *Engine) convertErrors(ctx context.Context, formatted []gqlerrors.FormattedError) []ResponseError {
	if len(formatted) == 0 {
		return nil
	}
	out := make([]ResponseError, len(formatted))
	for i, fe := range formatted {
		code := codeFor(ctx, fe.Message)
		out[i] = ResponseError{
			Message:    fe.Message,
			Path:       fe.Path,
			Extensions: map[string]interface{}{"code": string(code)},
		}
		e.logRequestOutcome(code, fe.Message)
	}
	return out
}

// codeFor recovers a taxonomy code from a formatted error message, falling
// back to the request's own deadline/cancellation state (parse/validation
// errors graphql-go raises itself never carry a "CODE: " prefix at all).
func codeFor(ctx context.Context, message string) errs.Code {
	if code, ok := errs.CodeFromMessage(message); ok {
		return code
	}
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return errs.Timeout
	case context.Canceled:
		return errs.Cancelled
	default:
		return errs.InvalidQuery
	}
}

// logRequestOutcome is a small helper emitting the one structured log line
// per failed request spec.md §7 implies (DB errors at Error, everything
// client-caused at Warn).
func (e *Engine) logRequestOutcome(code errs.Code, message string) {
	if code == errs.DBError || code == errs.Internal {
		e.log.Error("request failed", zap.String("code", string(code)), zap.String("error", message))
		return
	}
	e.log.Warn("request failed", zap.String("code", string(code)), zap.String("error", message))
}
