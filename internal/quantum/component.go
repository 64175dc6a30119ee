package quantum

import (
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/substrate/pkg/cmatrix"
)

// Component is one entanglement component: a maximal group of registers
// whose joint state cannot be factored. It owns a 2^k × 2^k density matrix
// where k is the member count. Member order is insertion order and fixes the
// tensor-product basis: the first member occupies the most significant bit.
//
// Components are engine-internal; callers address registers through the
// Computer and never hold a Component directly.
type Component struct {
	ID      int
	Members []int
	Rho     *mat.CDense
}

// newSingleton creates a 2×2 component for one register in the computational
// basis state |0⟩⟨0|.
func newSingleton(id, register int) *Component {
	return &Component{
		ID:      id,
		Members: []int{register},
		Rho:     cmatrix.BasisState(2, 0),
	}
}

// size returns the number of member registers.
func (c *Component) size() int {
	return len(c.Members)
}

// position returns the tensor position of a register within the component.
func (c *Component) position(register int) (int, bool) {
	for i, m := range c.Members {
		if m == register {
			return i, true
		}
	}
	return 0, false
}

// renormalize projects the density matrix back onto the Hermitian unit-trace
// matrices, absorbing floating-point drift. Returns the Hermiticity
// deviation observed before the repair.
func (c *Component) renormalize() float64 {
	dev := cmatrix.Hermitize(c.Rho)
	cmatrix.NormalizeTrace(c.Rho)
	return dev
}

// purity returns Tr(ρ²).
func (c *Component) purity() float64 {
	return cmatrix.Purity(c.Rho)
}
