// Package region manages simulation regions: each region owns one quantum
// computer, its noise channels and its terminal pool.
package region

import (
	"sync"
	"time"

	"github.com/aristath/substrate/internal/modules/terminal"
	"github.com/aristath/substrate/internal/quantum"
)

// Region is one isolated simulation instance. All access to the contained
// engine state must happen while holding the mutex; the engine types
// themselves are not concurrency safe.
type Region struct {
	sync.Mutex

	ID        string
	Name      string
	CreatedAt time.Time

	Computer  *quantum.Computer
	Channels  *quantum.ChannelSet
	Terminals *terminal.Pool
}

// Info is the lock-free summary served over the API.
type Info struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	Registers  int       `json:"registers"`
	Components int       `json:"components"`
	Terminals  int       `json:"terminals"`
	Paused     bool      `json:"paused"`
	Elapsed    float64   `json:"elapsed"`
}

// LedgerEntry is one persisted harvest row.
type LedgerEntry struct {
	ID          int64        `json:"id"`
	RegionID    string       `json:"region_id"`
	TerminalID  int          `json:"terminal_id"`
	Register    int          `json:"register"`
	Label       quantum.Pair `json:"label"`
	Outcome     string       `json:"outcome"`
	Probability float64      `json:"probability"`
	Purity      float64      `json:"purity"`
	Value       int          `json:"value"`
	HarvestedAt time.Time    `json:"harvested_at"`
}
