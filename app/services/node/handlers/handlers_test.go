package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/argonprotocol/argon/app/services/node/handlers"
	"github.com/argonprotocol/argon/business/web/errs"
	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/genesis"
	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/storage/memory"
	"github.com/argonprotocol/argon/foundation/events"
	"github.com/argonprotocol/argon/foundation/nameservice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const notaryID ledger.NotaryID = 1

type closer struct {
	signals   int
	resubmits int
}

func (c *closer) SignalCloseNotebook() {
	c.signals++
}

func (c *closer) SignalSubmit() {
	c.resubmits++
}

type node struct {
	public  http.Handler
	private http.Handler
	notary  *notary.Notary
	closer  *closer
	alice   signature.KeyPair
}

func newNode(t *testing.T) node {
	t.Helper()

	operator, err := signature.KeyPairFromSeed(signature.Ed25519, bytes.Repeat([]byte{5}, 32))
	require.NoError(t, err)

	alice, err := signature.KeyPairFromSeed(signature.Sr25519, bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)

	gen := genesis.Genesis{
		Date:                       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		SS58Prefix:                 ledger.DefaultSS58Prefix,
		TickDuration:               genesis.Duration{Duration: time.Minute},
		ChannelHoldExpirationTicks: 10,
		Notaries: []genesis.Notary{
			{NotaryID: notaryID, Operator: ledger.AccountID(operator.AccountID())},
		},
	}

	hist, err := history.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	auditor, err := audit.New(audit.Config{Genesis: gen, History: hist, Storage: memory.New()})
	require.NoError(t, err)

	n, err := notary.New(notary.Config{
		NotaryID:  notaryID,
		Operator:  operator,
		Genesis:   gen,
		Transfers: hist,
		Tick:      1,
	})
	require.NoError(t, err)

	ns, err := nameservice.New(t.TempDir(), gen.SS58Prefix)
	require.NoError(t, err)

	c := closer{}
	cfg := handlers.MuxConfig{
		Shutdown:   make(chan os.Signal, 1),
		Log:        zap.NewNop().Sugar(),
		Genesis:    gen,
		Notary:     n,
		Auditor:    auditor,
		History:    hist,
		Worker:     &c,
		NS:         ns,
		Evts:       events.New(),
		CorsOrigin: "*",
		Registerer: prometheus.NewRegistry(),
	}

	return node{
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
		notary:  n,
		closer:  &c,
		alice:   alice,
	}
}

func call(t *testing.T, h http.Handler, method string, path string, body any, resp any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, &buf))

	if resp != nil && w.Body.Len() > 0 {
		require.NoError(t, json.NewDecoder(w.Body).Decode(resp))
	}

	return w.Code
}

func TestNotarizeAndAudit(t *testing.T) {
	nd := newNode(t)
	alice := ledger.AccountID(nd.alice.AccountID())
	address := alice.Address(ledger.DefaultSS58Prefix)

	transfer := map[string]any{
		"notary_id":       notaryID,
		"transfer_id":     7,
		"account_id":      address,
		"milligons":       1_000,
		"expiration_tick": 100,
	}
	require.Equal(t, http.StatusCreated, call(t, nd.private, http.MethodPost, "/v1/node/transfers", transfer, nil))

	change, err := ledger.BalanceChange{
		AccountID:    alice,
		AccountType:  ledger.Deposit,
		ChangeNumber: 1,
		Balance:      1_000,
		Notes:        []ledger.Note{ledger.NewClaimFromMainchain(1_000, 7)},
	}.Sign(nd.alice)
	require.NoError(t, err)
	notarization := ledger.Notarization{BalanceChanges: []ledger.BalanceChange{change}}

	var receipt notary.Receipt
	require.Equal(t, http.StatusOK, call(t, nd.public, http.MethodPost, "/v1/notarize", notarization, &receipt))
	require.Equal(t, ledger.NotebookNumber(1), receipt.NotebookNumber)
	require.Equal(t, notarization.Hash(), receipt.Hash)

	var rejected errs.Response
	require.Equal(t, http.StatusConflict, call(t, nd.public, http.MethodPost, "/v1/notarize", notarization, &rejected))

	nb, err := nd.notary.CloseNotebook(2)
	require.NoError(t, err)

	var state audit.State
	submit := map[string]any{"notebook": nb}
	require.Equal(t, http.StatusOK, call(t, nd.private, http.MethodPost, "/v1/node/notebooks", submit, &state))
	require.Equal(t, ledger.NotebookNumber(1), state.LastNotebookNumber)

	require.Equal(t, http.StatusConflict, call(t, nd.private, http.MethodPost, "/v1/node/notebooks", submit, nil))

	var proof struct {
		Tip   ledger.BalanceTip   `json:"tip"`
		Proof ledger.BalanceProof `json:"proof"`
	}
	require.Equal(t, http.StatusOK, call(t, nd.public, http.MethodGet, "/v1/accounts/"+address+"/deposit/proof", nil, &proof))
	require.Equal(t, uint64(1_000), proof.Proof.Balance)
	require.Equal(t, ledger.NotebookNumber(1), proof.Proof.NotebookNumber)
	require.NotNil(t, proof.Proof.NotebookProof)

	require.Equal(t, http.StatusNotFound, call(t, nd.public, http.MethodGet, "/v1/accounts/"+address+"/tax/proof", nil, nil))
	require.Equal(t, http.StatusBadRequest, call(t, nd.public, http.MethodGet, "/v1/accounts/"+address+"/savings/proof", nil, nil))

	var stored ledger.Notebook
	require.Equal(t, http.StatusOK, call(t, nd.public, http.MethodGet, "/v1/notaries/1/notebooks/1", nil, &stored))
	require.Equal(t, nb.Hash(), stored.Hash())
	require.Equal(t, http.StatusNotFound, call(t, nd.public, http.MethodGet, "/v1/notaries/1/notebooks/9", nil, nil))

	var summaries []map[string]any
	require.Equal(t, http.StatusOK, call(t, nd.public, http.MethodGet, "/v1/notaries/1/notebooks", nil, &summaries))
	require.Len(t, summaries, 1)

	require.Equal(t, http.StatusNotFound, call(t, nd.public, http.MethodGet, "/v1/notaries/9/status", nil, nil))
}

func TestPrivateOperations(t *testing.T) {
	nd := newNode(t)

	require.Equal(t, http.StatusAccepted, call(t, nd.private, http.MethodPost, "/v1/node/notebooks/close", nil, nil))
	require.Equal(t, 1, nd.closer.signals)

	var invalid errs.Response
	transfer := map[string]any{"notary_id": notaryID, "transfer_id": 8}
	require.Equal(t, http.StatusBadRequest, call(t, nd.private, http.MethodPost, "/v1/node/transfers", transfer, &invalid))
	require.Contains(t, invalid.Fields, "milligons")
	require.Contains(t, invalid.Fields, "account_id")

	block := signature.HashBytes([]byte("block"))
	minimums := map[string]any{"minimums": map[string]uint64{block.String(): 0}}

	var set struct {
		Minimums map[signature.Digest]uint64 `json:"minimums"`
	}
	require.Equal(t, http.StatusOK, call(t, nd.private, http.MethodPost, "/v1/node/votes/minimums", minimums, &set))
	require.Contains(t, set.Minimums, block)

	unlock := audit.UnlockRequest{NotaryID: notaryID, NotebookNumber: 1}
	require.Equal(t, http.StatusBadRequest, call(t, nd.private, http.MethodPost, "/v1/node/notaries/2/unlock", unlock, nil))
	require.Equal(t, http.StatusForbidden, call(t, nd.private, http.MethodPost, "/v1/node/notaries/1/unlock", unlock, nil))

	var status map[string]any
	require.Equal(t, http.StatusOK, call(t, nd.private, http.MethodGet, "/v1/node/status", nil, &status))
	require.EqualValues(t, 1, status["notary_id"])
}
