package cmatrix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const tol = 1e-9

func pauliX() *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{0, 1, 1, 0})
}

func hadamard() *mat.CDense {
	h := complex(1/math.Sqrt2, 0)
	return mat.NewCDense(2, 2, []complex128{h, h, h, -h})
}

// bellState returns the density matrix of (|00⟩ + |11⟩)/√2.
func bellState() *mat.CDense {
	rho := mat.NewCDense(4, 4, nil)
	for _, i := range []int{0, 3} {
		for _, j := range []int{0, 3} {
			rho.Set(i, j, 0.5)
		}
	}
	return rho
}

func TestKroneckerDimensions(t *testing.T) {
	a := Identity(2)
	b := Identity(4)
	k := Kronecker(a, b)
	r, c := k.Dims()
	assert.Equal(t, 8, r)
	assert.Equal(t, 8, c)
	assert.True(t, ApproxEqual(k, Identity(8), tol))
}

func TestKroneckerProductState(t *testing.T) {
	// |0⟩⟨0| ⊗ |1⟩⟨1| must be |01⟩⟨01| with the first factor as MSB.
	joint := Kronecker(BasisState(2, 0), BasisState(2, 1))
	assert.InDelta(t, 1.0, real(joint.At(1, 1)), tol)
	assert.InDelta(t, 1.0, real(Trace(joint)), tol)
}

func TestMulHandComputedProduct(t *testing.T) {
	// XZ = [[0,-1],[1,0]] up to the complex entries below.
	x := pauliX()
	z := mat.NewCDense(2, 2, []complex128{1, 0, 0, -1})
	xz := Mul(x, z)
	assert.True(t, ApproxEqual(xz, mat.NewCDense(2, 2, []complex128{0, -1, 1, 0}), tol))

	// Complex entries: S·S = Z.
	s := mat.NewCDense(2, 2, []complex128{1, 0, 0, 1i})
	assert.True(t, ApproxEqual(Mul(s, s), z, tol))

	// H is self-inverse.
	h := hadamard()
	assert.True(t, ApproxEqual(Mul(h, h), Identity(2), tol))
}

func TestMulRectangular(t *testing.T) {
	a := mat.NewCDense(2, 3, []complex128{1, 2, 3, 4, 5, 6})
	b := mat.NewCDense(3, 1, []complex128{1, 1i, -1})
	out := Mul(a, b)
	r, c := out.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 1, c)
	assert.InDelta(t, -2.0, real(out.At(0, 0)), tol)
	assert.InDelta(t, 2.0, imag(out.At(0, 0)), tol)
	assert.InDelta(t, -2.0, real(out.At(1, 0)), tol)
	assert.InDelta(t, 5.0, imag(out.At(1, 0)), tol)
}

func TestMulDimensionMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		Mul(mat.NewCDense(2, 3, nil), mat.NewCDense(2, 2, nil))
	})
}

func TestConjugatePreservesTraceAndPurity(t *testing.T) {
	rho := BasisState(2, 0)
	out := Conjugate(hadamard(), rho)
	assert.InDelta(t, 1.0, real(Trace(out)), tol)
	assert.InDelta(t, 1.0, Purity(out), tol)
	// H|0⟩ is the equal superposition: both populations 1/2.
	assert.InDelta(t, 0.5, real(out.At(0, 0)), tol)
	assert.InDelta(t, 0.5, real(out.At(1, 1)), tol)
}

func TestHermitizeReportsDrift(t *testing.T) {
	a := mat.NewCDense(2, 2, []complex128{1, 0.5 + 0.1i, 0.5 - 0.2i, 0})
	dev := Hermitize(a)
	assert.Greater(t, dev, 0.0)
	assert.InDelta(t, 0.0, Hermitize(a), tol) // second pass is a no-op
}

func TestNormalizeTrace(t *testing.T) {
	a := Scale(4, Identity(2))
	require.True(t, NormalizeTrace(a))
	assert.InDelta(t, 1.0, real(Trace(a)), tol)

	zero := mat.NewCDense(2, 2, nil)
	assert.False(t, NormalizeTrace(zero))
}

func TestIsUnitary(t *testing.T) {
	assert.True(t, IsUnitary(hadamard(), tol))
	assert.True(t, IsUnitary(pauliX(), tol))
	notU := mat.NewCDense(2, 2, []complex128{1, 1, 0, 1})
	assert.False(t, IsUnitary(notU, tol))
}

func TestPartialTraceOfProductState(t *testing.T) {
	joint := Kronecker(BasisState(2, 0), BasisState(2, 1))
	// Tracing out the second qubit (pos 1) leaves |0⟩⟨0|.
	reduced := PartialTraceQubit(joint, 2, 1)
	assert.True(t, ApproxEqual(reduced, BasisState(2, 0), tol))
	// Tracing out the first qubit (pos 0) leaves |1⟩⟨1|.
	reduced = PartialTraceQubit(joint, 2, 0)
	assert.True(t, ApproxEqual(reduced, BasisState(2, 1), tol))
}

func TestPartialTraceOfBellState(t *testing.T) {
	// Either marginal of a Bell pair is maximally mixed.
	reduced := PartialTraceQubit(bellState(), 2, 0)
	assert.True(t, ApproxEqual(reduced, MaximallyMixed(2), tol))
	assert.InDelta(t, 0.5, Purity(reduced), tol)
}

func TestMarginalProbability(t *testing.T) {
	p0, p1 := MarginalProbability(bellState(), 2, 0)
	assert.InDelta(t, 0.5, p0, tol)
	assert.InDelta(t, 0.5, p1, tol)

	p0, p1 = MarginalProbability(Kronecker(BasisState(2, 0), BasisState(2, 1)), 2, 1)
	assert.InDelta(t, 0.0, p0, tol)
	assert.InDelta(t, 1.0, p1, tol)
}

func TestProjectQubit(t *testing.T) {
	projected, p := ProjectQubit(bellState(), 2, 0, 0)
	assert.InDelta(t, 0.5, p, tol)
	require.True(t, NormalizeTrace(projected))
	// Projecting the first qubit of a Bell pair onto |0⟩ collapses the pair
	// to |00⟩⟨00|.
	assert.InDelta(t, 1.0, real(projected.At(0, 0)), tol)
}

func TestEmbedOneQubit(t *testing.T) {
	// X on the second qubit of two: I ⊗ X.
	embedded := EmbedOneQubit(pauliX(), 2, 1)
	expected := Kronecker(Identity(2), pauliX())
	assert.True(t, ApproxEqual(embedded, expected, tol))

	// X on the first qubit: X ⊗ I.
	embedded = EmbedOneQubit(pauliX(), 2, 0)
	expected = Kronecker(pauliX(), Identity(2))
	assert.True(t, ApproxEqual(embedded, expected, tol))
}

func TestEmbedTwoQubitMatchesKroneckerOrder(t *testing.T) {
	cnot := mat.NewCDense(4, 4, []complex128{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
		0, 0, 1, 0,
	})
	embedded := EmbedTwoQubit(cnot, 2, 0, 1)
	assert.True(t, ApproxEqual(embedded, cnot, tol))

	// Swapped positions: control on the second qubit.
	embedded = EmbedTwoQubit(cnot, 2, 1, 0)
	expected := mat.NewCDense(4, 4, []complex128{
		1, 0, 0, 0,
		0, 0, 0, 1,
		0, 0, 1, 0,
		0, 1, 0, 0,
	})
	assert.True(t, ApproxEqual(embedded, expected, tol))
}

func TestHermitianEigenvalues(t *testing.T) {
	eigs := HermitianEigenvalues(MaximallyMixed(2))
	require.Len(t, eigs, 2)
	assert.InDelta(t, 0.5, eigs[0], tol)
	assert.InDelta(t, 0.5, eigs[1], tol)

	eigs = HermitianEigenvalues(bellState())
	require.Len(t, eigs, 4)
	assert.InDelta(t, 0.0, eigs[0], tol)
	assert.InDelta(t, 1.0, eigs[3], tol)

	// A matrix with complex off-diagonals: σy has spectrum {-1, +1}.
	sy := mat.NewCDense(2, 2, []complex128{0, -1i, 1i, 0})
	eigs = HermitianEigenvalues(sy)
	require.Len(t, eigs, 2)
	assert.InDelta(t, -1.0, eigs[0], tol)
	assert.InDelta(t, 1.0, eigs[1], tol)
}

func TestCommutators(t *testing.T) {
	x := pauliX()
	z := mat.NewCDense(2, 2, []complex128{1, 0, 0, -1})
	// [X, X] = 0, {X, X} = 2I.
	assert.True(t, ApproxEqual(Commutator(x, x), mat.NewCDense(2, 2, nil), tol))
	assert.True(t, ApproxEqual(AntiCommutator(x, x), Scale(2, Identity(2)), tol))
	// X and Z anticommute.
	assert.True(t, ApproxEqual(AntiCommutator(x, z), mat.NewCDense(2, 2, nil), tol))
}

func TestMaxDiagonalDeficit(t *testing.T) {
	assert.InDelta(t, 0.0, MaxDiagonalDeficit(Identity(2)), tol)
	a := mat.NewCDense(2, 2, []complex128{1.2, 0, 0, -0.2})
	assert.InDelta(t, 0.2, MaxDiagonalDeficit(a), tol)
}
