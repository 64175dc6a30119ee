// Package quantum implements the per-region density-matrix simulator: a
// register map, a partition of registers into entanglement components, gate
// application, Born-rule measurement collapse and open-system Lindblad
// evolution. The engine never materializes the joint state of unentangled
// registers; each component carries only its own 2^k matrix.
package quantum

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/substrate/internal/quantum/gate"
	"github.com/aristath/substrate/pkg/cmatrix"
)

// Outcome is the result of one projective measurement.
type Outcome struct {
	Register    int     `json:"register"`
	Label       string  `json:"label"`
	Bit         int     `json:"bit"`
	Probability float64 `json:"probability"`
}

// ComponentInfo is a read-only summary of one entanglement component.
type ComponentInfo struct {
	ID      int     `json:"id"`
	Members []int   `json:"members"`
	Purity  float64 `json:"purity"`
}

// DriftReport describes one component whose matrix violated an invariant
// beyond tolerance before being repaired.
type DriftReport struct {
	ComponentID   int     `json:"component_id"`
	HermitianDev  float64 `json:"hermitian_dev"`
	TraceDev      float64 `json:"trace_dev"`
	MinEigenvalue float64 `json:"min_eigenvalue"`
}

// Computer owns the register partition of one region and applies every state
// mutation. It is not safe for concurrent use; the owning region serializes
// access.
type Computer struct {
	registers  *RegisterMap
	components map[int]*Component
	byRegister map[int]int // register index -> component ID
	nextID     int
	gates      *gate.Library
	rng        *rand.Rand
	tol        float64
	log        zerolog.Logger
}

// NewComputer creates an empty computer. The caller supplies the random
// source so gameplay and tests control determinism.
func NewComputer(rng *rand.Rand, tol float64, log zerolog.Logger) *Computer {
	return &Computer{
		registers:  NewRegisterMap(),
		components: make(map[int]*Component),
		byRegister: make(map[int]int),
		gates:      gate.NewLibrary(),
		rng:        rng,
		tol:        tol,
		log:        log.With().Str("service", "quantum").Logger(),
	}
}

// Gates exposes the shared gate library.
func (c *Computer) Gates() *gate.Library {
	return c.gates
}

// Register returns the register index for a label, creating the register in
// its own singleton |0⟩⟨0| component on first registration. Idempotent.
func (c *Computer) Register(label Pair) (int, bool) {
	idx, created := c.registers.Register(label)
	if created {
		comp := newSingleton(c.nextID, idx)
		c.components[comp.ID] = comp
		c.byRegister[idx] = comp.ID
		c.nextID++
		c.log.Debug().Int("register", idx).Str("label", label.Key()).Msg("register created")
	}
	return idx, created
}

// Lookup resolves a label to its register index.
func (c *Computer) Lookup(label Pair) (int, error) {
	return c.registers.Lookup(label)
}

// LabelFor resolves a register index to its label.
func (c *Computer) LabelFor(register int) (Pair, error) {
	return c.registers.LabelFor(register)
}

// Registers returns every registered label in index order.
func (c *Computer) Registers() []Pair {
	return c.registers.Labels()
}

// componentOf resolves the component owning a register.
func (c *Computer) componentOf(register int) (*Component, error) {
	id, ok := c.byRegister[register]
	if !ok {
		return nil, fmt.Errorf("register %d: %w", register, ErrNotFound)
	}
	return c.components[id], nil
}

// Components returns a summary of the current partition.
func (c *Computer) Components() []ComponentInfo {
	out := make([]ComponentInfo, 0, len(c.components))
	for _, comp := range c.components {
		members := make([]int, len(comp.Members))
		copy(members, comp.Members)
		out = append(out, ComponentInfo{ID: comp.ID, Members: members, Purity: comp.purity()})
	}
	return out
}

// ComponentMembers returns the member registers of the component owning the
// given register, in tensor order.
func (c *Computer) ComponentMembers(register int) ([]int, error) {
	comp, err := c.componentOf(register)
	if err != nil {
		return nil, err
	}
	members := make([]int, len(comp.Members))
	copy(members, comp.Members)
	return members, nil
}

// ApplyGate1Q conjugates the register's component by the given 2×2 unitary.
func (c *Computer) ApplyGate1Q(register int, u *mat.CDense) error {
	comp, err := c.componentOf(register)
	if err != nil {
		return err
	}
	if r, cc := u.Dims(); r != 2 || cc != 2 {
		return fmt.Errorf("1-qubit gate must be 2x2, got %dx%d: %w", r, cc, ErrDimensionMismatch)
	}
	if !cmatrix.IsUnitary(u, c.tol) {
		return fmt.Errorf("gate matrix is not unitary: %w", ErrInvalidState)
	}
	pos, _ := comp.position(register)
	full := cmatrix.EmbedOneQubit(u, comp.size(), pos)
	comp.Rho = cmatrix.Conjugate(full, comp.Rho)
	comp.renormalize()
	return nil
}

// ApplyGate2Q applies a 4×4 unitary to two registers, merging their
// components via tensor product first when they are unentangled.
func (c *Computer) ApplyGate2Q(regA, regB int, u *mat.CDense) error {
	if regA == regB {
		return fmt.Errorf("two-register gate targets must differ: %w", ErrInvalidState)
	}
	compA, err := c.componentOf(regA)
	if err != nil {
		return err
	}
	compB, err := c.componentOf(regB)
	if err != nil {
		return err
	}
	if r, cc := u.Dims(); r != 4 || cc != 4 {
		return fmt.Errorf("2-qubit gate must be 4x4, got %dx%d: %w", r, cc, ErrDimensionMismatch)
	}
	if !cmatrix.IsUnitary(u, c.tol) {
		return fmt.Errorf("gate matrix is not unitary: %w", ErrInvalidState)
	}

	comp := compA
	if compA.ID != compB.ID {
		comp = c.merge(compA, compB)
	}
	posA, _ := comp.position(regA)
	posB, _ := comp.position(regB)
	full := cmatrix.EmbedTwoQubit(u, comp.size(), posA, posB)
	comp.Rho = cmatrix.Conjugate(full, comp.Rho)
	comp.renormalize()
	return nil
}

// ApplyNamedGate resolves a gate by library name and dispatches on arity.
// Two-qubit gates read the second target from regB; rotation gates read the
// angle parameter.
func (c *Computer) ApplyNamedGate(name string, regA, regB int, angle ...float64) error {
	arity, err := c.gates.Arity(name)
	if err != nil {
		return fmt.Errorf("gate %s: %w", name, ErrNotFound)
	}
	u, err := c.gates.MatrixFor(name, angle...)
	if err != nil {
		return fmt.Errorf("gate %s: %w", name, ErrInvalidState)
	}
	if arity == gate.ArityTwo {
		return c.ApplyGate2Q(regA, regB, u)
	}
	return c.ApplyGate1Q(regA, u)
}

// merge replaces two components with their tensor product under a fresh ID.
// The first component occupies the most significant bits of the joint basis.
func (c *Computer) merge(a, b *Component) *Component {
	joint := &Component{
		ID:      c.nextID,
		Members: append(append([]int{}, a.Members...), b.Members...),
		Rho:     cmatrix.Kronecker(a.Rho, b.Rho),
	}
	c.nextID++
	delete(c.components, a.ID)
	delete(c.components, b.ID)
	c.components[joint.ID] = joint
	for _, m := range joint.Members {
		c.byRegister[m] = joint.ID
	}
	c.log.Debug().
		Int("component", joint.ID).
		Ints("members", joint.Members).
		Msg("components merged")
	return joint
}

// Entangle couples two registers into a Bell-type pair: Hadamard on the
// first register followed by CNOT with the second as target. Starting from
// two fresh |0⟩ registers this produces the Bell state (|00⟩+|11⟩)/√2.
func (c *Computer) Entangle(regA, regB int) error {
	if regA == regB {
		return fmt.Errorf("cannot entangle a register with itself: %w", ErrInvalidState)
	}
	if _, err := c.componentOf(regA); err != nil {
		return err
	}
	if _, err := c.componentOf(regB); err != nil {
		return err
	}
	h, _ := c.gates.MatrixFor("H")
	if err := c.ApplyGate1Q(regA, h); err != nil {
		return err
	}
	cnot, _ := c.gates.MatrixFor("CNOT")
	return c.ApplyGate2Q(regA, regB, cnot)
}

// EntangleChain builds a linear entanglement topology by coupling each
// consecutive register pair. Elements are processed sequentially; one
// element's failure does not roll back or block its siblings. The returned
// slice holds one entry per pair, nil on success.
func (c *Computer) EntangleChain(registers []int) []error {
	if len(registers) < 2 {
		return nil
	}
	errs := make([]error, len(registers)-1)
	for i := 0; i < len(registers)-1; i++ {
		errs[i] = c.Entangle(registers[i], registers[i+1])
		if errs[i] != nil {
			c.log.Warn().Err(errs[i]).
				Int("from", registers[i]).
				Int("to", registers[i+1]).
				Msg("chain link failed")
		}
	}
	return errs
}

// MeasureAxis performs a Born-rule projective measurement on the register:
// marginal probabilities by partial trace, weighted sampling, projection and
// renormalization, then a split of the measured register into its own
// singleton component holding the post-measurement basis state.
func (c *Computer) MeasureAxis(register int) (Outcome, error) {
	comp, err := c.componentOf(register)
	if err != nil {
		return Outcome{}, err
	}
	label, err := c.registers.LabelFor(register)
	if err != nil {
		return Outcome{}, err
	}
	pos, _ := comp.position(register)
	k := comp.size()

	p0, p1 := cmatrix.MarginalProbability(comp.Rho, k, pos)
	bit := 0
	prob := p0
	if c.rng.Float64() < p1 {
		bit = 1
		prob = p1
	}

	projected, weight := cmatrix.ProjectQubit(comp.Rho, k, pos, bit)
	if weight <= c.tol {
		// The sampled branch has no support; the state is (numerically)
		// already collapsed to the other outcome.
		bit = 1 - bit
		prob = 1 - prob
		projected, _ = cmatrix.ProjectQubit(comp.Rho, k, pos, bit)
	}
	cmatrix.NormalizeTrace(projected)

	if k == 1 {
		comp.Rho = projected
		comp.renormalize()
	} else {
		remainder := cmatrix.PartialTraceQubit(projected, k, pos)
		comp.Members = append(comp.Members[:pos], comp.Members[pos+1:]...)
		comp.Rho = remainder
		comp.renormalize()

		split := &Component{ID: c.nextID, Members: []int{register}, Rho: cmatrix.BasisState(2, bit)}
		c.nextID++
		c.components[split.ID] = split
		c.byRegister[register] = split.ID
	}

	outLabel := label.Ground
	if bit == 1 {
		outLabel = label.Excited
	}
	c.log.Debug().
		Int("register", register).
		Str("outcome", outLabel).
		Float64("probability", prob).
		Msg("measurement collapse")
	return Outcome{Register: register, Label: outLabel, Bit: bit, Probability: prob}, nil
}

// MeasureComponent measures every register of the component owning the given
// register, in insertion order, collapsing the whole entangled group in one
// action.
func (c *Computer) MeasureComponent(register int) ([]Outcome, error) {
	comp, err := c.componentOf(register)
	if err != nil {
		return nil, err
	}
	members := make([]int, len(comp.Members))
	copy(members, comp.Members)

	outcomes := make([]Outcome, 0, len(members))
	for _, m := range members {
		out, err := c.MeasureAxis(m)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// Purity returns Tr(ρ²) of the register's component: 1.0 for pure states,
// down to 1/2^k for maximally mixed ones.
func (c *Computer) Purity(register int) (float64, error) {
	comp, err := c.componentOf(register)
	if err != nil {
		return 0, err
	}
	return comp.purity(), nil
}

// Probability returns the marginal Born probabilities (ground, excited) of a
// register without collapsing anything.
func (c *Computer) Probability(register int) (float64, float64, error) {
	comp, err := c.componentOf(register)
	if err != nil {
		return 0, 0, err
	}
	pos, _ := comp.position(register)
	p0, p1 := cmatrix.MarginalProbability(comp.Rho, comp.size(), pos)
	return p0, p1, nil
}

// ProbabilityOf returns the marginal probability of one named basis outcome.
func (c *Computer) ProbabilityOf(register int, outcomeLabel string) (float64, error) {
	label, err := c.registers.LabelFor(register)
	if err != nil {
		return 0, err
	}
	p0, p1, err := c.Probability(register)
	if err != nil {
		return 0, err
	}
	switch outcomeLabel {
	case label.Ground:
		return p0, nil
	case label.Excited:
		return p1, nil
	default:
		return 0, fmt.Errorf("outcome %q is not a basis label of register %d: %w", outcomeLabel, register, ErrNotFound)
	}
}

// RemoveEntanglement decouples regB from regA's component by discarding the
// correlations between them: the component keeps the partial trace over regB
// and regB gets its own singleton holding its marginal. This is an explicit
// decoherence operation, not a measurement. Already-separate registers are
// left unchanged.
func (c *Computer) RemoveEntanglement(regA, regB int) error {
	if regA == regB {
		return fmt.Errorf("registers must differ: %w", ErrInvalidState)
	}
	compA, err := c.componentOf(regA)
	if err != nil {
		return err
	}
	compB, err := c.componentOf(regB)
	if err != nil {
		return err
	}
	if compA.ID != compB.ID {
		return nil // decoupling is idempotent
	}

	comp := compA
	pos, _ := comp.position(regB)
	k := comp.size()

	// Both reduced states survive; only the correlations between the two
	// subsets are discarded.
	rest := cmatrix.PartialTraceQubit(comp.Rho, k, pos)
	single := reducedSingleQubit(comp.Rho, k, pos)

	comp.Members = append(comp.Members[:pos], comp.Members[pos+1:]...)
	comp.Rho = rest
	comp.renormalize()

	split := &Component{ID: c.nextID, Members: []int{regB}, Rho: single}
	c.nextID++
	cmatrix.Hermitize(split.Rho)
	cmatrix.NormalizeTrace(split.Rho)
	c.components[split.ID] = split
	c.byRegister[regB] = split.ID

	c.log.Debug().Int("register", regB).Msg("entanglement removed")
	return nil
}

// reducedSingleQubit returns the 2×2 reduced density matrix of the qubit at
// position pos, tracing out every other member.
func reducedSingleQubit(rho *mat.CDense, k, pos int) *mat.CDense {
	reduced := cmatrix.Clone(rho)
	// Trace out the other qubits one at a time. Removing a qubit before pos
	// shifts pos left by one.
	p := pos
	for dim := k; dim > 1; {
		other := 0
		if p == 0 {
			other = 1
		}
		reduced = cmatrix.PartialTraceQubit(reduced, dim, other)
		if other < p {
			p--
		}
		dim--
	}
	return reduced
}

// Audit verifies the Hermiticity, unit-trace and positivity invariants of
// every component within the given tolerance, repairing violations in place.
// Returns a report per violating component; an empty slice means all
// invariants held. The tolerance is the caller's to pick: discretized
// Lindblad integration legitimately accumulates O(Δt²) eigenvalue error, so
// the periodic audit runs with a looser bound than gate validation.
func (c *Computer) Audit(tol float64) []DriftReport {
	var reports []DriftReport
	for _, comp := range c.components {
		traceDev := real(cmatrix.Trace(comp.Rho)) - 1
		if traceDev < 0 {
			traceDev = -traceDev
		}
		hermDev := cmatrix.Hermitize(comp.Rho)
		minEig := 0.0
		if eigs := cmatrix.HermitianEigenvalues(comp.Rho); len(eigs) > 0 {
			minEig = eigs[0]
		}
		if hermDev > tol || traceDev > tol || minEig < -tol {
			cmatrix.NormalizeTrace(comp.Rho)
			reports = append(reports, DriftReport{
				ComponentID:   comp.ID,
				HermitianDev:  hermDev,
				TraceDev:      traceDev,
				MinEigenvalue: minEig,
			})
			c.log.Warn().
				Int("component", comp.ID).
				Float64("hermitian_dev", hermDev).
				Float64("trace_dev", traceDev).
				Float64("min_eigenvalue", minEig).
				Msg("numeric drift repaired")
		}
	}
	return reports
}
