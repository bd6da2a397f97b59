package mid

import (
	"context"
	"net/http"
	"strings"

	"github.com/argonprotocol/argon/foundation/web"
)

// preflightMaxAge is how long, in seconds, a browser may cache a preflight.
const preflightMaxAge = "600"

// Cors lets browser wallets and explorers served from another origin call
// the public API of the node. The origins are a comma separated list or *.
// A request from an origin not listed gets no CORS headers, so the browser
// refuses it.
func Cors(origins string) web.Middleware {
	allowed := make(map[string]bool)
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = true
		}
	}

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			origin := r.Header.Get("Origin")

			switch {
			case allowed["*"]:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			default:
				return handler(ctx, w, r)
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding")
			w.Header().Set("Access-Control-Max-Age", preflightMaxAge)

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
