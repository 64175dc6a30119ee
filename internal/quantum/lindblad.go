package quantum

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/substrate/pkg/cmatrix"
)

// ChannelKind identifies the physical role of a dissipative channel.
type ChannelKind string

const (
	// ChannelDrive is a coherent Hamiltonian drive term Ω·σx.
	ChannelDrive ChannelKind = "drive"
	// ChannelDecay is amplitude damping toward the ground state (σ⁻).
	ChannelDecay ChannelKind = "decay"
	// ChannelPump is incoherent pumping toward the excited state (σ⁺).
	ChannelPump ChannelKind = "pump"
	// ChannelTransfer moves population from a source register to a target
	// register via the joint operator σ⁺(target) ⊗ σ⁻(source).
	ChannelTransfer ChannelKind = "transfer"
)

// Channel is one named dissipative (or drive) operator. Channels persist
// until explicitly removed.
type Channel struct {
	Name      string      `json:"name"`
	Kind      ChannelKind `json:"kind"`
	Registers []int       `json:"registers"` // one entry, or [source, target]
	Rate      float64     `json:"rate"`
}

// Driver is the optional time-dependent Hamiltonian term
// H(t) = Amplitude·cos(Frequency·t)·σx on one register.
type Driver struct {
	Register  int     `json:"register"`
	Amplitude float64 `json:"amplitude"`
	Frequency float64 `json:"frequency"`
}

// ChannelSet maintains a region's dissipative channels and advances the
// discretized master equation each simulation tick:
//
//	ρ(t+Δt) ≈ ρ(t) + Δt·(-i[H,ρ] + Σ_k rate_k·(L_k ρ L_k† − ½{L_k†L_k, ρ}))
//
// Hamiltonian and dissipator terms are summed into one combined explicit
// Euler step per tick, followed by Hermitization and trace renormalization
// to absorb integration error. Pausing freezes evolution without discarding
// registered channels.
type ChannelSet struct {
	computer *Computer
	channels map[string]*Channel
	drivers  map[int]Driver
	paused   bool
	elapsed  float64
	log      zerolog.Logger
}

// NewChannelSet creates an empty channel set bound to one computer.
func NewChannelSet(computer *Computer, log zerolog.Logger) *ChannelSet {
	return &ChannelSet{
		computer: computer,
		channels: make(map[string]*Channel),
		drivers:  make(map[int]Driver),
		log:      log.With().Str("service", "lindblad").Logger(),
	}
}

// sigmaMinus lowers |1⟩ to |0⟩.
func sigmaMinus() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{0, 1, 0, 0})
}

// sigmaPlus raises |0⟩ to |1⟩.
func sigmaPlus() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{0, 0, 1, 0})
}

// sigmaX is the drive generator.
func sigmaX() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{0, 1, 1, 0})
}

func (s *ChannelSet) install(ch *Channel) error {
	for _, reg := range ch.Registers {
		if _, err := s.computer.componentOf(reg); err != nil {
			return err
		}
	}
	if ch.Rate < 0 {
		return fmt.Errorf("channel rate must be non-negative: %w", ErrInvalidState)
	}
	s.channels[ch.Name] = ch
	s.log.Debug().Str("channel", ch.Name).Str("kind", string(ch.Kind)).Msg("channel installed")
	return nil
}

// InstallDrive registers a persistent coherent drive on a register.
func (s *ChannelSet) InstallDrive(name string, register int, rate float64) error {
	return s.install(&Channel{Name: name, Kind: ChannelDrive, Registers: []int{register}, Rate: rate})
}

// InstallDecay registers a persistent amplitude-damping channel.
func (s *ChannelSet) InstallDecay(name string, register int, rate float64) error {
	return s.install(&Channel{Name: name, Kind: ChannelDecay, Registers: []int{register}, Rate: rate})
}

// InstallPump registers a persistent pump channel.
func (s *ChannelSet) InstallPump(name string, register int, rate float64) error {
	return s.install(&Channel{Name: name, Kind: ChannelPump, Registers: []int{register}, Rate: rate})
}

// InstallTransfer registers a persistent population-transfer channel from a
// source register to a target register. The two components are merged on the
// first tick that integrates the channel.
func (s *ChannelSet) InstallTransfer(name string, source, target int, rate float64) error {
	if source == target {
		return fmt.Errorf("transfer source and target must differ: %w", ErrInvalidState)
	}
	return s.install(&Channel{Name: name, Kind: ChannelTransfer, Registers: []int{source, target}, Rate: rate})
}

// Remove discards a named channel.
func (s *ChannelSet) Remove(name string) error {
	if _, ok := s.channels[name]; !ok {
		return fmt.Errorf("channel %s: %w", name, ErrNotFound)
	}
	delete(s.channels, name)
	return nil
}

// Channels lists the registered channels.
func (s *ChannelSet) Channels() []Channel {
	out := make([]Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, *ch)
	}
	return out
}

// SetDriver installs (or replaces) the oscillating Hamiltonian driver on a
// register.
func (s *ChannelSet) SetDriver(register int, amplitude, frequency float64) error {
	if _, err := s.computer.componentOf(register); err != nil {
		return err
	}
	s.drivers[register] = Driver{Register: register, Amplitude: amplitude, Frequency: frequency}
	return nil
}

// ClearDriver removes the driver on a register, if any.
func (s *ChannelSet) ClearDriver(register int) {
	delete(s.drivers, register)
}

// Pause freezes evolution. Discrete actions (gates, measurement, terminal
// transitions) remain available while paused.
func (s *ChannelSet) Pause() { s.paused = true }

// Resume unfreezes evolution.
func (s *ChannelSet) Resume() { s.paused = false }

// Paused reports whether evolution is frozen.
func (s *ChannelSet) Paused() bool { return s.paused }

// Elapsed returns the simulated time accumulated by ticks.
func (s *ChannelSet) Elapsed() float64 { return s.elapsed }

// Tick advances every component touched by at least one channel or driver by
// one master-equation step of size dt. A no-op while paused.
func (s *ChannelSet) Tick(dt float64) {
	if s.paused || dt <= 0 {
		return
	}
	s.elapsed += dt

	// Transfer channels may span two components; merge them first so the
	// per-component pass below sees every operator whole.
	for _, ch := range s.channels {
		if ch.Kind != ChannelTransfer {
			continue
		}
		src, _ := s.computer.componentOf(ch.Registers[0])
		dst, _ := s.computer.componentOf(ch.Registers[1])
		if src != nil && dst != nil && src.ID != dst.ID {
			s.computer.merge(src, dst)
		}
	}

	touched := make(map[int]*Component)
	mark := func(reg int) {
		if comp, err := s.computer.componentOf(reg); err == nil {
			touched[comp.ID] = comp
		}
	}
	for _, ch := range s.channels {
		for _, reg := range ch.Registers {
			mark(reg)
		}
	}
	for reg := range s.drivers {
		mark(reg)
	}

	for _, comp := range touched {
		s.stepComponent(comp, dt, s.channels, s.drivers)
	}
}

// stepComponent integrates one combined Euler step for a single component.
// The channel and driver sets are explicit parameters so one-shot applies
// integrate only their transient operator, never the installed dynamics.
func (s *ChannelSet) stepComponent(comp *Component, dt float64, channels map[string]*Channel, drivers map[int]Driver) {
	k := comp.size()
	n := 1 << k
	delta := mat.NewCDense(n, n, nil)

	addDissipator := func(l *mat.CDense, rate float64) {
		lRho := cmatrix.Mul(l, comp.Rho)
		term := cmatrix.Mul(lRho, cmatrix.Dagger(l))
		ldl := cmatrix.Mul(cmatrix.Dagger(l), l)
		anti := cmatrix.AntiCommutator(ldl, comp.Rho)
		term = cmatrix.Add(term, cmatrix.Scale(-0.5, anti))
		delta = cmatrix.Add(delta, cmatrix.Scale(complex(rate, 0), term))
	}
	addHamiltonian := func(h *mat.CDense) {
		delta = cmatrix.Add(delta, cmatrix.Scale(-1i, cmatrix.Commutator(h, comp.Rho)))
	}

	for _, ch := range channels {
		switch ch.Kind {
		case ChannelDrive:
			if pos, ok := comp.position(ch.Registers[0]); ok {
				h := cmatrix.EmbedOneQubit(cmatrix.Scale(complex(ch.Rate, 0), sigmaX()), k, pos)
				addHamiltonian(h)
			}
		case ChannelDecay:
			if pos, ok := comp.position(ch.Registers[0]); ok {
				addDissipator(cmatrix.EmbedOneQubit(sigmaMinus(), k, pos), ch.Rate)
			}
		case ChannelPump:
			if pos, ok := comp.position(ch.Registers[0]); ok {
				addDissipator(cmatrix.EmbedOneQubit(sigmaPlus(), k, pos), ch.Rate)
			}
		case ChannelTransfer:
			posSrc, okSrc := comp.position(ch.Registers[0])
			posDst, okDst := comp.position(ch.Registers[1])
			if okSrc && okDst {
				joint := cmatrix.Kronecker(sigmaPlus(), sigmaMinus())
				addDissipator(cmatrix.EmbedTwoQubit(joint, k, posDst, posSrc), ch.Rate)
			}
		}
	}

	for _, drv := range drivers {
		if pos, ok := comp.position(drv.Register); ok {
			amp := drv.Amplitude * math.Cos(drv.Frequency*s.elapsed)
			h := cmatrix.EmbedOneQubit(cmatrix.Scale(complex(amp, 0), sigmaX()), k, pos)
			addHamiltonian(h)
		}
	}

	comp.Rho = cmatrix.Add(comp.Rho, cmatrix.Scale(complex(dt, 0), delta))
	if dev := comp.renormalize(); dev > 10*dt {
		s.log.Warn().Int("component", comp.ID).Float64("deviation", dev).Msg("large integration drift")
	}
}

// ApplyDecay integrates a single amplitude-damping step on one register
// without installing a persistent channel.
func (s *ChannelSet) ApplyDecay(register int, rate, dt float64) error {
	return s.applyOnce(&Channel{Name: "once", Kind: ChannelDecay, Registers: []int{register}, Rate: rate}, dt)
}

// ApplyDrive integrates a single coherent-drive step on one register.
func (s *ChannelSet) ApplyDrive(register int, rate, dt float64) error {
	return s.applyOnce(&Channel{Name: "once", Kind: ChannelDrive, Registers: []int{register}, Rate: rate}, dt)
}

// ApplyPump integrates a single pump step on one register.
func (s *ChannelSet) ApplyPump(register int, rate, dt float64) error {
	return s.applyOnce(&Channel{Name: "once", Kind: ChannelPump, Registers: []int{register}, Rate: rate}, dt)
}

// TransferPopulation integrates a single population-transfer step between
// two registers, merging their components when they are unentangled.
func (s *ChannelSet) TransferPopulation(source, target int, rate, dt float64) error {
	if source == target {
		return fmt.Errorf("transfer source and target must differ: %w", ErrInvalidState)
	}
	src, err := s.computer.componentOf(source)
	if err != nil {
		return err
	}
	dst, err := s.computer.componentOf(target)
	if err != nil {
		return err
	}
	if src.ID != dst.ID {
		s.computer.merge(src, dst)
	}
	return s.applyOnce(&Channel{Name: "once", Kind: ChannelTransfer, Registers: []int{source, target}, Rate: rate}, dt)
}

// applyOnce runs one integration step for a transient channel.
func (s *ChannelSet) applyOnce(ch *Channel, dt float64) error {
	if ch.Rate < 0 {
		return fmt.Errorf("rate must be non-negative: %w", ErrInvalidState)
	}
	if dt <= 0 {
		return fmt.Errorf("dt must be positive: %w", ErrInvalidState)
	}
	comp, err := s.computer.componentOf(ch.Registers[0])
	if err != nil {
		return err
	}
	s.stepComponent(comp, dt, map[string]*Channel{ch.Name: ch}, nil)
	return nil
}

// ResetToPure decouples the register from its component and mixes it toward
// the ground state: ρ ← (1−α)ρ + α|0⟩⟨0|. A reset is maximal decoherence,
// so the decoupling step is part of the operation.
func (s *ChannelSet) ResetToPure(register int, alpha float64) error {
	return s.resetRegister(register, alpha, cmatrix.BasisState(2, 0))
}

// ResetToMixed decouples the register and mixes it toward I/2.
func (s *ChannelSet) ResetToMixed(register int, alpha float64) error {
	return s.resetRegister(register, alpha, cmatrix.MaximallyMixed(2))
}

func (s *ChannelSet) resetRegister(register int, alpha float64, target *mat.CDense) error {
	if alpha < 0 || alpha > 1 {
		return fmt.Errorf("mix weight must lie in [0,1]: %w", ErrInvalidState)
	}
	comp, err := s.computer.componentOf(register)
	if err != nil {
		return err
	}
	if comp.size() > 1 {
		other := comp.Members[0]
		if other == register {
			other = comp.Members[1]
		}
		if err := s.computer.RemoveEntanglement(other, register); err != nil {
			return err
		}
		comp, _ = s.computer.componentOf(register)
	}
	comp.Rho = cmatrix.Add(
		cmatrix.Scale(complex(1-alpha, 0), comp.Rho),
		cmatrix.Scale(complex(alpha, 0), target),
	)
	comp.renormalize()
	return nil
}
