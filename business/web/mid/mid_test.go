package mid_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/argonprotocol/argon/business/web/errs"
	"github.com/argonprotocol/argon/business/web/mid"
	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
	"github.com/argonprotocol/argon/foundation/blockchain/verify"
	"github.com/argonprotocol/argon/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Errors(t *testing.T) {
	type table struct {
		name   string
		err    error
		status int
		kind   string
	}

	tt := []table{
		{name: "rejected", err: fmt.Errorf("change 0: %w", verify.ErrInsufficientBalance), status: http.StatusBadRequest, kind: "insufficient balance"},
		{name: "sequence", err: &audit.SequenceError{Kind: audit.ErrMissingNotebookNumber, NotaryID: 1, NotebookNumber: 4, Expected: 3}, status: http.StatusConflict},
		{name: "locked", err: &audit.LockedError{NotaryID: 1, NotebookNumber: 2, Err: verify.ErrInvalidBalanceChangeRoot}, status: http.StatusUnprocessableEntity, kind: "invalid balance change root"},
		{name: "unknown", err: audit.ErrUnknownNotary, status: http.StatusNotFound},
		{name: "unaudited", err: fmt.Errorf("proof: %w", notary.ErrProofNotAudited), status: http.StatusConflict},
		{name: "internal", err: os.ErrClosed, status: http.StatusInternalServerError},
	}

	t.Log("Given the need to answer domain errors with the right status.")
	{
		for i, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen a handler returns a %s error.", i, tst.name)
				{
					reg := prometheus.NewRegistry()
					metrics := mid.NewMetrics(reg, "public")
					app := web.NewApp(make(chan os.Signal, 1), mid.Errors(zap.NewNop().Sugar()), metrics.Metrics(), mid.Panics(metrics))

					h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
						return errs.FromDomain(tst.err)
					}
					app.Handle(http.MethodGet, "", "/test", h)

					w := httptest.NewRecorder()
					app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

					if w.Code != tst.status {
						t.Fatalf("\t%s\tTest %d:\tShould respond with status %d: %d", failed, i, tst.status, w.Code)
					}
					t.Logf("\t%s\tTest %d:\tShould respond with status %d.", success, i, tst.status)

					var resp errs.Response
					if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to decode the response: %v", failed, i, err)
					}
					if resp.Kind != tst.kind {
						t.Fatalf("\t%s\tTest %d:\tShould name the error kind %q: %q", failed, i, tst.kind, resp.Kind)
					}
					t.Logf("\t%s\tTest %d:\tShould name the error kind.", success, i)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Panics(t *testing.T) {
	t.Log("Given the need to survive a handler that panics.")
	{
		reg := prometheus.NewRegistry()
		metrics := mid.NewMetrics(reg, "private")
		app := web.NewApp(make(chan os.Signal, 1), mid.Errors(zap.NewNop().Sugar()), metrics.Metrics(), mid.Panics(metrics))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			panic("boom")
		}
		app.Handle(http.MethodGet, "", "/panic", h)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("\t%s\tShould respond with a 500: %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould respond with a 500.", success)

		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to gather the metrics: %v", failed, err)
		}

		counts := make(map[string]float64)
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				counts[mf.GetName()] += m.GetCounter().GetValue()
			}
		}

		if counts["argon_http_panics_total"] != 1 || counts["argon_http_errors_total"] != 1 || counts["argon_http_requests_total"] != 1 {
			t.Fatalf("\t%s\tShould count the panic: %v", failed, counts)
		}
		t.Logf("\t%s\tShould count the panic.", success)
	}
}

func Test_Cors(t *testing.T) {
	type table struct {
		name    string
		origins string
		origin  string
		allow   string
	}

	tt := []table{
		{name: "any", origins: "*", origin: "https://wallet.example", allow: "*"},
		{name: "listed", origins: "https://wallet.example, https://explorer.example", origin: "https://explorer.example", allow: "https://explorer.example"},
		{name: "unlisted", origins: "https://wallet.example", origin: "https://other.example"},
	}

	t.Log("Given the need to serve browser clients from other origins.")
	{
		for i, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen a request comes from a %s origin.", i, tst.name)
				{
					app := web.NewApp(make(chan os.Signal, 1), mid.Cors(tst.origins))

					h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
						w.WriteHeader(http.StatusNoContent)
						return nil
					}
					app.Handle(http.MethodGet, "", "/test", h)

					r := httptest.NewRequest(http.MethodGet, "/test", nil)
					r.Header.Set("Origin", tst.origin)
					w := httptest.NewRecorder()
					app.ServeHTTP(w, r)

					if got := w.Header().Get("Access-Control-Allow-Origin"); got != tst.allow {
						t.Fatalf("\t%s\tTest %d:\tShould allow origin %q: %q", failed, i, tst.allow, got)
					}
					t.Logf("\t%s\tTest %d:\tShould allow origin %q.", success, i, tst.allow)

					if w.Code != http.StatusNoContent {
						t.Fatalf("\t%s\tTest %d:\tShould reach the handler: %d", failed, i, w.Code)
					}
					t.Logf("\t%s\tTest %d:\tShould reach the handler.", success, i)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
