package terminal

import (
	"fmt"

	"github.com/aristath/substrate/internal/quantum"
)

// State is the lifecycle phase of a terminal.
type State string

const (
	// StateUnbound means the terminal holds no register claim.
	StateUnbound State = "unbound"
	// StateBound means the terminal has claimed a register via Explore.
	StateBound State = "bound"
	// StateMeasured means the bound register has been collapsed and the
	// outcome recorded, awaiting Pop.
	StateMeasured State = "measured"
)

// Lifecycle failures. All wrap quantum.ErrInvalidState so callers can match
// the coarse taxonomy or the specific condition.
var (
	ErrNoTerminalsAvailable = fmt.Errorf("no unbound terminals available: %w", quantum.ErrInvalidState)
	ErrNoRegistersAvailable = fmt.Errorf("no unclaimed registers available: %w", quantum.ErrInvalidState)
	ErrTerminalNotBound     = fmt.Errorf("terminal is not bound: %w", quantum.ErrInvalidState)
	ErrTerminalNotMeasured  = fmt.Errorf("terminal is not measured: %w", quantum.ErrInvalidState)
)

// Terminal is one binding handle. The pool has fixed cardinality; terminals
// are created once at pool initialization and only ever transition state.
type Terminal struct {
	ID          int          `json:"id"`
	State       State        `json:"state"`
	Register    int          `json:"register"` // -1 while unbound
	Label       quantum.Pair `json:"label,omitempty"`
	Outcome     string       `json:"outcome,omitempty"`
	Probability float64      `json:"probability,omitempty"`
	Purity      float64      `json:"purity,omitempty"`
}

// HarvestResult is the yield of popping one measured terminal.
type HarvestResult struct {
	TerminalID  int          `json:"terminal_id"`
	Register    int          `json:"register"`
	Label       quantum.Pair `json:"label"`
	Outcome     string       `json:"outcome"`
	Probability float64      `json:"probability"`
	Purity      float64      `json:"purity"`
	Value       int          `json:"value"`
}

// Recorder persists harvest results. The region module supplies a
// sqlite-backed implementation; a nil recorder disables persistence.
type Recorder interface {
	Record(regionID string, result HarvestResult) error
}
