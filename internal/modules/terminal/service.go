package terminal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/aristath/substrate/internal/events"
	"github.com/aristath/substrate/internal/quantum"
)

// explorationFloor keeps fully drained registers reachable during Explore so
// a region never deadlocks on a pool of ground-state qubits.
const explorationFloor = 0.05

// Pool manages the fixed set of terminals for one region. It is not safe for
// concurrent use; the owning region serializes access.
type Pool struct {
	regionID  string
	computer  *quantum.Computer
	terminals []*Terminal
	claimed   map[int]int // register index -> terminal ID
	recorder  Recorder
	events    *events.Manager
	rng       *rand.Rand
	log       zerolog.Logger
}

// NewPool creates a pool of capacity unbound terminals attached to one
// computer. recorder may be nil to disable harvest persistence.
func NewPool(regionID string, capacity int, computer *quantum.Computer, recorder Recorder, eventManager *events.Manager, rng *rand.Rand, log zerolog.Logger) *Pool {
	terminals := make([]*Terminal, capacity)
	for i := range terminals {
		terminals[i] = &Terminal{ID: i, State: StateUnbound, Register: -1}
	}
	return &Pool{
		regionID:  regionID,
		computer:  computer,
		terminals: terminals,
		claimed:   make(map[int]int),
		recorder:  recorder,
		events:    eventManager,
		rng:       rng,
		log:       log.With().Str("service", "terminal").Str("region", regionID).Logger(),
	}
}

// Terminals returns a snapshot of every terminal in ID order.
func (p *Pool) Terminals() []Terminal {
	out := make([]Terminal, len(p.terminals))
	for i, t := range p.terminals {
		out[i] = *t
	}
	return out
}

// Get returns a copy of one terminal.
func (p *Pool) Get(id int) (Terminal, error) {
	t, err := p.terminal(id)
	if err != nil {
		return Terminal{}, err
	}
	return *t, nil
}

func (p *Pool) terminal(id int) (*Terminal, error) {
	if id < 0 || id >= len(p.terminals) {
		return nil, fmt.Errorf("terminal %d: %w", id, quantum.ErrNotFound)
	}
	return p.terminals[id], nil
}

// Explore binds the lowest-ID unbound terminal to an unclaimed register,
// sampled with probability proportional to the register's excited population
// plus a small floor. Fails closed before any state changes.
func (p *Pool) Explore() (Terminal, error) {
	var free *Terminal
	for _, t := range p.terminals {
		if t.State == StateUnbound {
			free = t
			break
		}
	}
	if free == nil {
		return Terminal{}, ErrNoTerminalsAvailable
	}

	labels := p.computer.Registers()
	candidates := make([]int, 0, len(labels))
	weights := make([]float64, 0, len(labels))
	total := 0.0
	for reg := range labels {
		if _, taken := p.claimed[reg]; taken {
			continue
		}
		_, p1, err := p.computer.Probability(reg)
		if err != nil {
			return Terminal{}, err
		}
		candidates = append(candidates, reg)
		weights = append(weights, p1+explorationFloor)
		total += p1 + explorationFloor
	}
	if len(candidates) == 0 {
		return Terminal{}, ErrNoRegistersAvailable
	}

	pick := candidates[len(candidates)-1]
	roll := p.rng.Float64() * total
	for i, reg := range candidates {
		roll -= weights[i]
		if roll < 0 {
			pick = reg
			break
		}
	}

	label, err := p.computer.LabelFor(pick)
	if err != nil {
		return Terminal{}, err
	}

	free.State = StateBound
	free.Register = pick
	free.Label = label
	p.claimed[pick] = free.ID

	p.log.Debug().Int("terminal", free.ID).Int("register", pick).Str("label", label.Key()).Msg("terminal bound")
	p.emit(events.TerminalBound, map[string]interface{}{
		"terminal": free.ID,
		"register": pick,
		"label":    label.Key(),
	})
	return *free, nil
}

// Measure collapses the bound register and records the outcome together with
// the pre-collapse probability and purity on the terminal.
func (p *Pool) Measure(id int) (Terminal, error) {
	t, err := p.terminal(id)
	if err != nil {
		return Terminal{}, err
	}
	if t.State != StateBound {
		return Terminal{}, fmt.Errorf("terminal %d in state %s: %w", id, t.State, ErrTerminalNotBound)
	}

	purity, err := p.computer.Purity(t.Register)
	if err != nil {
		return Terminal{}, err
	}
	outcome, err := p.computer.MeasureAxis(t.Register)
	if err != nil {
		return Terminal{}, err
	}

	t.State = StateMeasured
	t.Outcome = outcome.Label
	t.Probability = outcome.Probability
	t.Purity = purity

	p.log.Debug().Int("terminal", t.ID).Int("register", t.Register).
		Str("outcome", outcome.Label).Float64("probability", outcome.Probability).Msg("terminal measured")
	p.emit(events.TerminalMeasured, map[string]interface{}{
		"terminal":    t.ID,
		"register":    t.Register,
		"outcome":     outcome.Label,
		"probability": outcome.Probability,
	})
	return *t, nil
}

// Pop converts a measured terminal into a harvest result, releases the
// register claim and returns the terminal to the unbound state.
func (p *Pool) Pop(id int) (HarvestResult, error) {
	t, err := p.terminal(id)
	if err != nil {
		return HarvestResult{}, err
	}
	if t.State != StateMeasured {
		return HarvestResult{}, fmt.Errorf("terminal %d in state %s: %w", id, t.State, ErrTerminalNotMeasured)
	}

	result := HarvestResult{
		TerminalID:  t.ID,
		Register:    t.Register,
		Label:       t.Label,
		Outcome:     t.Outcome,
		Probability: t.Probability,
		Purity:      t.Purity,
		Value:       harvestValue(t),
	}

	delete(p.claimed, t.Register)
	t.State = StateUnbound
	t.Register = -1
	t.Label = quantum.Pair{}
	t.Outcome = ""
	t.Probability = 0
	t.Purity = 0

	if p.recorder != nil {
		if err := p.recorder.Record(p.regionID, result); err != nil {
			p.log.Error().Err(err).Int("terminal", result.TerminalID).Msg("failed to persist harvest")
		}
	}

	p.log.Info().Int("terminal", result.TerminalID).Int("value", result.Value).
		Str("outcome", result.Outcome).Msg("terminal popped")
	p.emit(events.TerminalPopped, map[string]interface{}{
		"terminal": result.TerminalID,
		"outcome":  result.Outcome,
		"value":    result.Value,
	})
	return result, nil
}

// HarvestGlobal measures every bound terminal and pops every measured one.
// Per-terminal failures are logged and skipped so one bad terminal cannot
// block the sweep.
func (p *Pool) HarvestGlobal() (int, []HarvestResult) {
	results := make([]HarvestResult, 0, len(p.terminals))
	total := 0
	for _, t := range p.terminals {
		if t.State == StateBound {
			if _, err := p.Measure(t.ID); err != nil {
				p.log.Error().Err(err).Int("terminal", t.ID).Msg("harvest measure failed")
				continue
			}
		}
		if t.State != StateMeasured {
			continue
		}
		result, err := p.Pop(t.ID)
		if err != nil {
			p.log.Error().Err(err).Int("terminal", t.ID).Msg("harvest pop failed")
			continue
		}
		results = append(results, result)
		total += result.Value
	}
	p.emit(events.HarvestCompleted, map[string]interface{}{
		"terminals": len(results),
		"total":     total,
	})
	return total, results
}

// harvestValue prices one measured terminal by outcome surprisal: an outcome
// that had probability p yields 1 + round(9*(1-p)), doubled when the excited
// label was observed.
func harvestValue(t *Terminal) int {
	value := 1 + int(math.Round(9*(1-t.Probability)))
	if t.Outcome == t.Label.Excited {
		value *= 2
	}
	return value
}

func (p *Pool) emit(eventType events.EventType, data map[string]interface{}) {
	if p.events == nil {
		return
	}
	p.events.Emit(eventType, "terminal", p.regionID, data)
}
