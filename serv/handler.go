package serv

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"

	"github.com/standardbeagle/BifrostQL-sub008/core"
)

// graphQLRequest is the wire shape of a POST body to cfg.Path (spec.md §6
// "Ingress"), decoded straight into a core.Request.
type graphQLRequest struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// graphQLHandler decodes one request body, runs it through engine.Execute
// with the user context decoded from the request's bearer token
// (userContextFrom), and writes back the GraphQL-over-HTTP response body.
func graphQLHandler(engine *core.Engine, cfg core.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, core.Response{
				Errors: []core.ResponseError{{
					Message:    "invalid JSON request body",
					Extensions: map[string]interface{}{"code": "INVALID_QUERY"},
				}},
			})
			return
		}

		resp := engine.Execute(r.Context(), core.Request{
			Query:         req.Query,
			Variables:     req.Variables,
			OperationName: req.OperationName,
			UserContext:   userContextFrom(r, cfg),
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// userContextFrom builds the host's {string -> value} user context mapping
// (spec.md §6 "User context") from the request's bearer token. Signature
// *verification* is assumed to already have happened upstream of this
// handler (a reverse proxy or middleware ahead of BifrostQL), so a plain
// jwt.Parser.ParseUnverified is correct here, not a signature-checking
// Parse call — this only decodes the already-trusted claims to pull out
// the audit-user-key entry core needs for mutation audit columns.
// requireAuth (server.go) is the part of cfg.Auth.EnableAuth that rejects a
// request with no parseable token at all; this function is also reused
// there as the presence check.
func userContextFrom(r *http.Request, cfg core.Config) map[string]interface{} {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil
	}
	token := strings.TrimPrefix(auth, "Bearer ")

	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil
	}
	v, ok := claims[cfg.AuditUserKey]
	if !ok {
		return nil
	}
	return map[string]interface{}{cfg.AuditUserKey: v}
}
