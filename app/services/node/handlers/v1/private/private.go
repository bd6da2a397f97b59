// Package private maintains the group of handlers for node to node access
// and node operators.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/argonprotocol/argon/business/web/errs"
	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
	"github.com/argonprotocol/argon/foundation/events"
	"github.com/argonprotocol/argon/foundation/validate"
	"github.com/argonprotocol/argon/foundation/web"
	"go.uber.org/zap"
)

// Closer asks the worker to close the open notebook without waiting for the
// next tick, or to submit the notebooks waiting for audit again.
type Closer interface {
	SignalCloseNotebook()
	SignalSubmit()
}

// Handlers manages the set of private endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	Notary  *notary.Notary
	Auditor *audit.Auditor
	History *history.Store
	Worker  Closer
	Evts    *events.Events
}

// SubmitNotebooks audits a signed notebook, preceded by the catch-up
// notebooks the node is missing.
func (h Handlers) SubmitNotebooks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req submitNotebooks
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	hdr := req.Notebook.Header
	h.Log.Infow("submit notebook", "traceid", v.TraceID, "notary", hdr.NotaryID, "notebook", hdr.NotebookNumber,
		"tick", hdr.Tick, "catchup", len(req.Catchup))

	if err := h.Auditor.Submit(req.Notebook, req.Catchup...); err != nil {
		return errs.FromDomain(err)
	}

	state, err := h.Auditor.Status(hdr.NotaryID)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, state, http.StatusOK)
}

// Unlock reactivates a locked notary with a request signed by its operator.
func (h Handlers) Unlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	notaryID, err := strconv.ParseUint(web.Param(r, "notary"), 10, 32)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid notary id: %w", err), http.StatusBadRequest)
	}

	var req audit.UnlockRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if req.NotaryID != ledger.NotaryID(notaryID) {
		return errs.NewTrusted(errors.New("notary id does not match the request"), http.StatusBadRequest)
	}

	if err := h.Auditor.Unlock(req); err != nil {
		return errs.FromDomain(err)
	}

	state, err := h.Auditor.Status(req.NotaryID)
	if err != nil {
		return err
	}

	h.Log.Infow("unlock", "traceid", v.TraceID, "notary", req.NotaryID, "reprocess", state.ReprocessNotebookNumber)

	// The node's own notary resubmits the notebook that locked it.
	if h.Worker != nil && h.Notary != nil && h.Notary.NotaryID() == req.NotaryID {
		h.Worker.SignalSubmit()
	}

	return web.Respond(ctx, w, state, http.StatusOK)
}

// RegisterTransfer records a mainchain transfer a localchain account may
// claim through its notary.
func (h Handlers) RegisterTransfer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req registerTransfer
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	t := history.Transfer{
		TransferID:     req.TransferID,
		AccountID:      req.AccountID,
		Milligons:      req.Milligons,
		ExpirationTick: req.ExpirationTick,
	}

	if err := h.History.RegisterTransfer(req.NotaryID, t); err != nil {
		return errs.NewTrusted(err, http.StatusConflict)
	}

	return web.Respond(ctx, w, t, http.StatusCreated)
}

// SetVoteMinimums replaces the blocks that may be voted on and the minimum
// vote power each requires.
func (h Handlers) SetVoteMinimums(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req voteMinimums
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	h.Auditor.SetVoteMinimums(req.Minimums)
	if h.Notary != nil {
		h.Notary.SetVoteMinimums(req.Minimums)
	}

	return web.Respond(ctx, w, voteMinimums{Minimums: h.Auditor.VoteMinimums()}, http.StatusOK)
}

// CloseNotebook signals the worker to close the open notebook now.
func (h Handlers) CloseNotebook(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.Worker == nil {
		return errs.NewTrusted(errors.New("node is not running a notary"), http.StatusNotFound)
	}

	h.Worker.SignalCloseNotebook()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "close notebook signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// Status returns the state of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := nodeStatus{
		Listeners: h.Evts.Listeners(),
		Notaries:  make(map[ledger.NotaryID]audit.Status),
	}

	if h.Notary != nil {
		status.NotaryID = h.Notary.NotaryID()
		status.NotebookNumber, status.Tick = h.Notary.OpenNotebook()
		status.Pending = h.Notary.Pending()
	}

	for _, id := range h.Auditor.Notaries() {
		state, err := h.Auditor.Status(id)
		if err != nil {
			return err
		}
		status.Notaries[id] = state.Status
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
