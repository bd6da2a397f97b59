// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/argonprotocol/argon/business/web/errs"
	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/genesis"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
	"github.com/argonprotocol/argon/foundation/events"
	"github.com/argonprotocol/argon/foundation/nameservice"
	"github.com/argonprotocol/argon/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNoNotary is returned by notary endpoints when the node only audits.
var ErrNoNotary = errors.New("node is not running a notary")

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	Gen     genesis.Genesis
	Notary  *notary.Notary
	Auditor *audit.Auditor
	NS      *nameservice.NameService
	WS      websocket.Upgrader
	Evts    *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer func() {
		if dropped, err := h.Evts.Release(v.TraceID); err == nil && dropped > 0 {
			h.Log.Infow("events", "traceid", v.TraceID, "dropped", dropped)
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Gen, http.StatusOK)
}

// Notarize accepts a notarization from a localchain into the open notebook.
func (h Handlers) Notarize(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	if h.Notary == nil {
		return errs.NewTrusted(ErrNoNotary, http.StatusNotFound)
	}

	var notarization ledger.Notarization
	if err := web.Decode(r, &notarization); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	receipt, err := h.Notary.Notarize(notarization)
	if err != nil {
		return errs.FromDomain(err)
	}

	h.Log.Infow("notarize", "traceid", v.TraceID, "changes", len(notarization.BalanceChanges),
		"votes", len(notarization.BlockVotes), "notebook", receipt.NotebookNumber, "hash", receipt.Hash)

	return web.Respond(ctx, w, receipt, http.StatusOK)
}

// BalanceProof returns the latest committed tip of an account with the
// proof its next balance change must carry.
func (h Handlers) BalanceProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.Notary == nil {
		return errs.NewTrusted(ErrNoNotary, http.StatusNotFound)
	}

	account, err := h.parseAccount(r)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	tip, err := h.Notary.AccountTip(account)
	if err != nil {
		return errs.FromDomain(err)
	}

	proof, err := h.Notary.BalanceProof(account)
	if err != nil {
		return errs.FromDomain(err)
	}

	resp := accountProof{
		Account: account.AccountID.Address(h.Gen.SS58Prefix),
		Name:    h.NS.Lookup(account.AccountID),
		Tip:     tip,
		Proof:   proof,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Notaries returns the audit state of every registered notary.
func (h Handlers) Notaries(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	ids := h.Auditor.Notaries()

	notaries := make([]notaryStatus, 0, len(ids))
	for _, id := range ids {
		status, err := h.status(id)
		if err != nil {
			return err
		}
		notaries = append(notaries, status)
	}

	return web.Respond(ctx, w, notaries, http.StatusOK)
}

// Status returns the audit state of a notary.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	notaryID, err := parseNotaryID(r)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	status, err := h.status(notaryID)
	if err != nil {
		return errs.FromDomain(err)
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Notebooks returns the audit summaries of the notebooks of a notary.
func (h Handlers) Notebooks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	notaryID, err := parseNotaryID(r)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	records, err := h.Auditor.Summaries(notaryID)
	if err != nil {
		return errs.FromDomain(err)
	}

	if len(records) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	summaries := make([]notebookSummary, len(records))
	for i, rec := range records {
		summaries[i] = toSummary(rec)
	}

	return web.Respond(ctx, w, summaries, http.StatusOK)
}

// Notebook returns a signed notebook that passed its audit.
func (h Handlers) Notebook(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	notaryID, err := parseNotaryID(r)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	number, err := strconv.ParseUint(web.Param(r, "number"), 10, 32)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid notebook number: %w", err), http.StatusBadRequest)
	}

	nb, err := h.Auditor.Notebook(notaryID, ledger.NotebookNumber(number))
	if err != nil {
		return errs.FromDomain(err)
	}

	return web.Respond(ctx, w, nb, http.StatusOK)
}

// =============================================================================

func (h Handlers) status(notaryID ledger.NotaryID) (notaryStatus, error) {
	state, err := h.Auditor.Status(notaryID)
	if err != nil {
		return notaryStatus{}, err
	}

	reg, _ := h.Gen.Notary(notaryID)

	return notaryStatus{
		NotaryID: notaryID,
		Operator: h.NS.Lookup(reg.Operator),
		Host:     reg.Host,
		State:    state,
	}, nil
}

func parseNotaryID(r *http.Request) (ledger.NotaryID, error) {
	id, err := strconv.ParseUint(web.Param(r, "notary"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid notary id: %w", err)
	}
	return ledger.NotaryID(id), nil
}

// parseAccount reads the account from the path. The account is a known
// name, an address or a hex account id.
func (h Handlers) parseAccount(r *http.Request) (ledger.LocalchainAccount, error) {
	accountID, err := h.NS.Resolve(web.Param(r, "account"))
	if err != nil {
		return ledger.LocalchainAccount{}, err
	}

	accountType, err := ledger.ParseAccountType(web.Param(r, "type"))
	if err != nil {
		return ledger.LocalchainAccount{}, err
	}

	return ledger.LocalchainAccount{AccountID: accountID, AccountType: accountType}, nil
}
