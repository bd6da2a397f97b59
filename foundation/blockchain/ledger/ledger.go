// Package ledger defines the values exchanged between localchains, notaries
// and auditors: accounts, notes, balance changes, balance tips, block votes
// and notebooks. Every value is immutable once signed.
package ledger

// Tick is the chain's unit of time.
type Tick uint64

// NotaryID identifies a registered notary.
type NotaryID uint32

// NotebookNumber is the sequence number of a notebook within one notary.
type NotebookNumber uint32

// Capacity limits for the values a notary accepts.
const (
	MaxBalanceChangesPerNotarization = 25
	MaxBlockVotesPerNotarization     = 1_000
	MaxDomainsPerNotarization        = 100
	MaxNotarizationsPerNotebook      = 10_000
)

// Channel hold and domain settings.
const (
	// ChannelHoldClawbackTicks is the window after a channel hold expires in
	// which only the recipient may claim. Afterwards anyone in the batch may.
	ChannelHoldClawbackTicks Tick = 15

	// MinimumChannelHoldMilligons is the smallest amount a hold may lock.
	MinimumChannelHoldMilligons uint64 = 10

	// DomainLeaseCost is the exact amount a LeaseDomain note must carry.
	DomainLeaseCost uint64 = 1_000
)

// TaxRatio is the divisor applied to claimed deposits to compute the tax
// owed. A claim of 1_000 milligons owes 100.
const TaxRatio uint64 = 10

// TaxOwed returns the tax owed on the claimed amount, rounded up.
func TaxOwed(claimed uint64) uint64 {
	owed := claimed / TaxRatio
	if claimed%TaxRatio != 0 {
		owed++
	}
	return owed
}
