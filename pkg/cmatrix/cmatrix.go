// Package cmatrix provides the dense complex-matrix primitives used by the
// quantum engine: tensor products, partial traces, unitary conjugation,
// Hermitization and trace renormalization. Matrices are stored as
// gonum mat.CDense; every function treats its inputs as immutable unless
// documented otherwise.
package cmatrix

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Identity returns the n×n identity matrix.
func Identity(n int) *mat.CDense {
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Clone returns a deep copy of a.
func Clone(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.At(i, j))
		}
	}
	return out
}

// Add returns a + b. Panics if dimensions differ.
func Add(a, b *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.At(i, j)+b.At(i, j))
		}
	}
	return out
}

// Scale returns f·a.
func Scale(f complex128, a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, f*a.At(i, j))
		}
	}
	return out
}

// Mul returns the matrix product a·b. Panics if the inner dimensions differ.
func Mul(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		panic("cmatrix: inner dimension mismatch")
	}
	out := mat.NewCDense(ar, bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < bc; j++ {
			var sum complex128
			for k := 0; k < ac; k++ {
				sum += a.At(i, k) * b.At(k, j)
			}
			out.Set(i, j, sum)
		}
	}
	return out
}

// Conjugate returns U·a·U† (the unitary conjugation of a by u).
func Conjugate(u, a *mat.CDense) *mat.CDense {
	return Mul(Mul(u, a), Dagger(u))
}

// Dagger returns the conjugate transpose of a.
func Dagger(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(c, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(j, i, cmplx.Conj(a.At(i, j)))
		}
	}
	return out
}

// Kronecker returns the tensor product a ⊗ b. The first factor occupies the
// most significant bits of the joint basis index.
func Kronecker(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewCDense(ar*br, ac*bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			av := a.At(i, j)
			if av == 0 {
				continue
			}
			for k := 0; k < br; k++ {
				for l := 0; l < bc; l++ {
					out.Set(i*br+k, j*bc+l, av*b.At(k, l))
				}
			}
		}
	}
	return out
}

// Trace returns the trace of a.
func Trace(a *mat.CDense) complex128 {
	n, _ := a.Dims()
	var t complex128
	for i := 0; i < n; i++ {
		t += a.At(i, i)
	}
	return t
}

// Purity returns Tr(a²) as a real number; 1.0 for pure states.
func Purity(a *mat.CDense) float64 {
	return real(Trace(Mul(a, a)))
}

// Hermitize overwrites a with (a + a†)/2, projecting it back onto the
// Hermitian matrices. Returns the largest entrywise deviation |a - a†| seen
// before the projection, so callers can log numeric drift.
func Hermitize(a *mat.CDense) float64 {
	n, _ := a.Dims()
	maxDev := 0.0
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := a.At(i, j)
			w := cmplx.Conj(a.At(j, i))
			if dev := cmplx.Abs(v - w); dev > maxDev {
				maxDev = dev
			}
			avg := (v + w) / 2
			a.Set(i, j, avg)
			a.Set(j, i, cmplx.Conj(avg))
		}
	}
	return maxDev
}

// NormalizeTrace rescales a in place so that Tr(a) = 1. A zero or negative
// trace leaves a untouched and returns false.
func NormalizeTrace(a *mat.CDense) bool {
	t := real(Trace(a))
	if t <= 0 {
		return false
	}
	n, _ := a.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, a.At(i, j)/complex(t, 0))
		}
	}
	return true
}

// IsUnitary reports whether u·u† is the identity within tol.
func IsUnitary(u *mat.CDense, tol float64) bool {
	r, c := u.Dims()
	if r != c {
		return false
	}
	return mat.CEqualApprox(Mul(u, Dagger(u)), Identity(r), tol)
}

// insertBit widens x by one bit, inserting bit b at position pos counted from
// the most significant side of a k-bit index.
func insertBit(x, pos, k, b int) int {
	s := k - 1 - pos
	low := x & ((1 << s) - 1)
	high := x >> s
	return (high << (s + 1)) | (b << s) | low
}

// bitAt extracts the bit at position pos (MSB-first) of a k-bit index.
func bitAt(x, pos, k int) int {
	return (x >> (k - 1 - pos)) & 1
}

// EmbedOneQubit lifts a 2×2 matrix acting on the qubit at position pos into
// the full 2^k-dimensional space. Position 0 is the most significant bit of
// the basis index, matching Kronecker order.
func EmbedOneQubit(g *mat.CDense, k, pos int) *mat.CDense {
	n := 1 << k
	out := mat.NewCDense(n, n, nil)
	half := n / 2
	for rest := 0; rest < half; rest++ {
		for bi := 0; bi < 2; bi++ {
			for bj := 0; bj < 2; bj++ {
				v := g.At(bi, bj)
				if v == 0 {
					continue
				}
				i := insertBit(rest, pos, k, bi)
				j := insertBit(rest, pos, k, bj)
				out.Set(i, j, v)
			}
		}
	}
	return out
}

// EmbedTwoQubit lifts a 4×4 matrix acting on the qubits at positions posA
// (first factor) and posB (second factor) into the full 2^k space.
func EmbedTwoQubit(g *mat.CDense, k, posA, posB int) *mat.CDense {
	n := 1 << k
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		ia := bitAt(i, posA, k)
		ib := bitAt(i, posB, k)
		for j := 0; j < n; j++ {
			// Off the two target qubits the operator is the identity.
			if i&^(1<<(k-1-posA))&^(1<<(k-1-posB)) != j&^(1<<(k-1-posA))&^(1<<(k-1-posB)) {
				continue
			}
			ja := bitAt(j, posA, k)
			jb := bitAt(j, posB, k)
			v := g.At(ia*2+ib, ja*2+jb)
			if v != 0 {
				out.Set(i, j, v)
			}
		}
	}
	return out
}

// PartialTraceQubit traces out the qubit at position pos of a 2^k density
// matrix, returning the 2^(k-1) reduced matrix.
func PartialTraceQubit(rho *mat.CDense, k, pos int) *mat.CDense {
	m := 1 << (k - 1)
	out := mat.NewCDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			var sum complex128
			for b := 0; b < 2; b++ {
				sum += rho.At(insertBit(i, pos, k, b), insertBit(j, pos, k, b))
			}
			out.Set(i, j, sum)
		}
	}
	return out
}

// MarginalProbability returns the Born-rule probabilities (p0, p1) of the
// qubit at position pos without mutating rho.
func MarginalProbability(rho *mat.CDense, k, pos int) (float64, float64) {
	n := 1 << k
	p1 := 0.0
	for i := 0; i < n; i++ {
		if bitAt(i, pos, k) == 1 {
			p1 += real(rho.At(i, i))
		}
	}
	if p1 < 0 {
		p1 = 0
	}
	if p1 > 1 {
		p1 = 1
	}
	return 1 - p1, p1
}

// ProjectQubit applies the projector |b⟩⟨b| on the qubit at position pos,
// returning the unnormalized projected matrix and its trace (the outcome
// probability).
func ProjectQubit(rho *mat.CDense, k, pos, b int) (*mat.CDense, float64) {
	n := 1 << k
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		if bitAt(i, pos, k) != b {
			continue
		}
		for j := 0; j < n; j++ {
			if bitAt(j, pos, k) != b {
				continue
			}
			out.Set(i, j, rho.At(i, j))
		}
	}
	return out, real(Trace(out))
}

// BasisState returns the pure density matrix |b⟩⟨b| in dimension n.
func BasisState(n, b int) *mat.CDense {
	m := mat.NewCDense(n, n, nil)
	m.Set(b, b, 1)
	return m
}

// MaximallyMixed returns I/n in dimension n.
func MaximallyMixed(n int) *mat.CDense {
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, complex(1/float64(n), 0))
	}
	return m
}

// HermitianEigenvalues returns the eigenvalues of a Hermitian matrix in
// ascending order. The complex matrix is embedded into the real symmetric
// matrix [[Re, -Im], [Im, Re]] whose spectrum is that of a with every
// eigenvalue doubled, so only every second value is kept.
func HermitianEigenvalues(a *mat.CDense) []float64 {
	n, _ := a.Dims()
	sym := mat.NewSymDense(2*n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			re := real(a.At(i, j))
			im := imag(a.At(i, j))
			sym.SetSym(i, j, re)
			sym.SetSym(n+i, n+j, re)
			if i != j {
				sym.SetSym(i, n+j, -im)
			}
			sym.SetSym(j, n+i, im)
		}
	}
	var es mat.EigenSym
	if ok := es.Factorize(sym, false); !ok {
		return nil
	}
	all := es.Values(nil)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = all[2*i]
	}
	return out
}

// Commutator returns a·b − b·a.
func Commutator(a, b *mat.CDense) *mat.CDense {
	return Add(Mul(a, b), Scale(-1, Mul(b, a)))
}

// AntiCommutator returns a·b + b·a.
func AntiCommutator(a, b *mat.CDense) *mat.CDense {
	return Add(Mul(a, b), Mul(b, a))
}

// ApproxEqual reports entrywise equality within tol.
func ApproxEqual(a, b *mat.CDense, tol float64) bool {
	return mat.CEqualApprox(a, b, tol)
}

// MaxDiagonalDeficit returns how far below zero the most negative diagonal
// entry of a sits; 0 for a matrix with a non-negative diagonal.
func MaxDiagonalDeficit(a *mat.CDense) float64 {
	n, _ := a.Dims()
	worst := 0.0
	for i := 0; i < n; i++ {
		if v := real(a.At(i, i)); v < -worst {
			worst = -v
		}
	}
	return math.Max(0, worst)
}
