package serv

import "net/http"

// playgroundHandler serves a static GraphiQL page pointed at queryPath,
// the same CDN-script approach the pack's other graphql-go hosts use
// (abiolaogu-LumaDB/go-cluster/pkg/platform/server.go's graphiqlHTML) rather
// than pulling in a dedicated playground library this stack has no other
// use for.
func playgroundHandler(queryPath string) http.HandlerFunc {
	page := []byte(`<!DOCTYPE html>
<html>
  <head>
    <title>BifrostQL Playground</title>
    <link href="https://unpkg.com/graphiql/graphiql.min.css" rel="stylesheet" />
  </head>
  <body style="margin: 0;">
    <div id="graphiql" style="height: 100vh;"></div>
    <script crossorigin src="https://unpkg.com/react/umd/react.production.min.js"></script>
    <script crossorigin src="https://unpkg.com/react-dom/umd/react-dom.production.min.js"></script>
    <script crossorigin src="https://unpkg.com/graphiql/graphiql.min.js"></script>
    <script>
      const fetcher = GraphiQL.createFetcher({ url: '` + queryPath + `' });
      ReactDOM.render(
        React.createElement(GraphiQL, { fetcher: fetcher }),
        document.getElementById('graphiql'),
      );
    </script>
  </body>
</html>`)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)
	}
}
