// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/argonprotocol/argon/app/services/node/handlers/v1/private"
	"github.com/argonprotocol/argon/app/services/node/handlers/v1/public"
	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/genesis"
	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
	"github.com/argonprotocol/argon/foundation/events"
	"github.com/argonprotocol/argon/foundation/nameservice"
	"github.com/argonprotocol/argon/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers. Notary
// and Worker are nil when the node only audits.
type Config struct {
	Log     *zap.SugaredLogger
	Genesis genesis.Genesis
	Notary  *notary.Notary
	Auditor *audit.Auditor
	History *history.Store
	Worker  private.Closer
	NS      *nameservice.NameService
	Evts    *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:     cfg.Log,
		Gen:     cfg.Genesis,
		Notary:  cfg.Notary,
		Auditor: cfg.Auditor,
		NS:      cfg.NS,
		WS:      websocket.Upgrader{},
		Evts:    cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodPost, version, "/notarize", pbl.Notarize)
	app.Handle(http.MethodGet, version, "/accounts/:account/:type/proof", pbl.BalanceProof)
	app.Handle(http.MethodGet, version, "/notaries", pbl.Notaries)
	app.Handle(http.MethodGet, version, "/notaries/:notary/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/notaries/:notary/notebooks", pbl.Notebooks)
	app.Handle(http.MethodGet, version, "/notaries/:notary/notebooks/:number", pbl.Notebook)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:     cfg.Log,
		Notary:  cfg.Notary,
		Auditor: cfg.Auditor,
		History: cfg.History,
		Worker:  cfg.Worker,
		Evts:    cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodPost, version, "/node/notebooks", prv.SubmitNotebooks)
	app.Handle(http.MethodPost, version, "/node/notebooks/close", prv.CloseNotebook)
	app.Handle(http.MethodPost, version, "/node/notaries/:notary/unlock", prv.Unlock)
	app.Handle(http.MethodPost, version, "/node/transfers", prv.RegisterTransfer)
	app.Handle(http.MethodPost, version, "/node/votes/minimums", prv.SetVoteMinimums)
}
