package gate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/substrate/pkg/cmatrix"
)

const tol = 1e-9

func TestEveryGateIsUnitary(t *testing.T) {
	lib := NewLibrary()
	for _, name := range lib.Names() {
		m, err := lib.MatrixFor(name, math.Pi/3)
		require.NoError(t, err, name)
		assert.True(t, cmatrix.IsUnitary(m, tol), "gate %s is not unitary", name)
	}
}

func TestRotationRequiresAngle(t *testing.T) {
	lib := NewLibrary()
	_, err := lib.MatrixFor("RX")
	assert.ErrorIs(t, err, ErrMissingAngle)
}

func TestUnknownGate(t *testing.T) {
	lib := NewLibrary()
	assert.False(t, lib.Has("TOFFOLI"))
	_, err := lib.MatrixFor("TOFFOLI")
	assert.ErrorIs(t, err, ErrUnknownGate)
	_, err = lib.Arity("TOFFOLI")
	assert.ErrorIs(t, err, ErrUnknownGate)
}

func TestArity(t *testing.T) {
	lib := NewLibrary()
	one, err := lib.Arity("H")
	require.NoError(t, err)
	assert.Equal(t, ArityOne, one)
	two, err := lib.Arity("CNOT")
	require.NoError(t, err)
	assert.Equal(t, ArityTwo, two)
}

func TestRotationSpecialCases(t *testing.T) {
	lib := NewLibrary()

	// Rx(π) equals X up to the global phase -i: conjugating |0⟩⟨0| by either
	// must give |1⟩⟨1|.
	rx, err := lib.MatrixFor("RX", math.Pi)
	require.NoError(t, err)
	rho := cmatrix.Conjugate(rx, cmatrix.BasisState(2, 0))
	assert.InDelta(t, 1.0, real(rho.At(1, 1)), tol)

	// Rz(2π) is -I: conjugation leaves any state unchanged.
	rz, err := lib.MatrixFor("RZ", 2*math.Pi)
	require.NoError(t, err)
	rho = cmatrix.Conjugate(rz, cmatrix.BasisState(2, 1))
	assert.InDelta(t, 1.0, real(rho.At(1, 1)), tol)
}

func TestHadamardSquaredIsIdentity(t *testing.T) {
	lib := NewLibrary()
	h, err := lib.MatrixFor("H")
	require.NoError(t, err)
	assert.True(t, cmatrix.ApproxEqual(cmatrix.Mul(h, h), cmatrix.Identity(2), tol))
}

func TestMatrixForReturnsCopy(t *testing.T) {
	lib := NewLibrary()
	a, err := lib.MatrixFor("X")
	require.NoError(t, err)
	a.Set(0, 0, 42)
	b, err := lib.MatrixFor("X")
	require.NoError(t, err)
	assert.Equal(t, complex128(0), b.At(0, 0))
}
