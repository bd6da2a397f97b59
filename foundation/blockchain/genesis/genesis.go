// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
)

// DefaultPath is where services look for the genesis file.
const DefaultPath = "zblock/genesis.json"

// Genesis represents the genesis file.
type Genesis struct {
	Date                       time.Time   `json:"date"`
	ChainID                    uint16      `json:"chain_id"`                      // The chain id represents an unique id for this running instance.
	SS58Prefix                 uint16      `json:"ss58_prefix"`                   // Address prefix used when displaying accounts.
	TickDuration               Duration    `json:"tick_duration"`                 // Wall clock length of one tick.
	ChannelHoldExpirationTicks ledger.Tick `json:"channel_hold_expiration_ticks"` // Ticks until a channel hold may be claimed.
	DefaultVoteMinimum         uint64      `json:"default_vote_minimum"`          // Vote power required when a block has no minimum set.
	Notaries                   []Notary    `json:"notaries"`
}

// Notary is a notary registered at genesis.
type Notary struct {
	NotaryID ledger.NotaryID  `json:"notary_id"`
	Operator ledger.AccountID `json:"operator"` // Account that signs notebooks and unlock requests.
	Host     string           `json:"host"`
}

// Duration is a time.Duration that reads and writes as a string like "2s".
type Duration struct {
	time.Duration
}

// MarshalJSON implements the json.Marshaler interface.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	d.Duration = dur
	return nil
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	genesis.applyDefaults()

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the settings are usable.
func (g Genesis) Validate() error {
	if g.TickDuration.Duration <= 0 {
		return errors.New("tick duration must be positive")
	}

	seen := make(map[ledger.NotaryID]bool)
	for _, n := range g.Notaries {
		if seen[n.NotaryID] {
			return fmt.Errorf("notary %d registered twice", n.NotaryID)
		}
		if n.Operator.IsZero() {
			return fmt.Errorf("notary %d has no operator", n.NotaryID)
		}
		seen[n.NotaryID] = true
	}

	return nil
}

// Notary returns the registration for the notary id.
func (g Genesis) Notary(id ledger.NotaryID) (Notary, bool) {
	for _, n := range g.Notaries {
		if n.NotaryID == id {
			return n, true
		}
	}
	return Notary{}, false
}

// TickAt returns the tick the time falls in. Times before the genesis date
// are in tick 0.
func (g Genesis) TickAt(t time.Time) ledger.Tick {
	if !t.After(g.Date) {
		return 0
	}
	return ledger.Tick(t.Sub(g.Date) / g.TickDuration.Duration)
}

// TickStart returns the time the tick begins.
func (g Genesis) TickStart(tick ledger.Tick) time.Time {
	return g.Date.Add(time.Duration(tick) * g.TickDuration.Duration)
}

func (g *Genesis) applyDefaults() {
	if g.SS58Prefix == 0 {
		g.SS58Prefix = ledger.DefaultSS58Prefix
	}
	if g.TickDuration.Duration == 0 {
		g.TickDuration.Duration = time.Minute
	}
	if g.ChannelHoldExpirationTicks == 0 {
		g.ChannelHoldExpirationTicks = 60
	}
}
