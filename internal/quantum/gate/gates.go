// Package gate holds the static library of unitary gate matrices. The
// library is read-only after construction and safe to share across regions.
package gate

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/substrate/pkg/cmatrix"
)

// Arity of a gate: how many qubits it acts on.
const (
	ArityOne = 1
	ArityTwo = 2
)

// ErrUnknownGate is returned when a gate name is not in the library.
var ErrUnknownGate = fmt.Errorf("unknown gate")

// ErrMissingAngle is returned when a rotation gate is requested without its
// angle parameter.
var ErrMissingAngle = fmt.Errorf("rotation gate requires an angle parameter")

// Library maps gate names to their unitary matrices. Rotation gates are
// generated from an angle parameter on lookup.
type Library struct {
	fixed     map[string]*mat.CDense
	rotations map[string]func(theta float64) *mat.CDense
	arity     map[string]int
}

// NewLibrary builds the standard gate set: X, Y, Z, H, S, T, S†, T†,
// Rx/Ry/Rz, CNOT, CZ and SWAP.
func NewLibrary() *Library {
	h := complex(1/math.Sqrt2, 0)
	tPhase := cmplx.Exp(complex(0, math.Pi/4))

	fixed := map[string]*mat.CDense{
		"X":   mat.NewCDense(2, 2, []complex128{0, 1, 1, 0}),
		"Y":   mat.NewCDense(2, 2, []complex128{0, -1i, 1i, 0}),
		"Z":   mat.NewCDense(2, 2, []complex128{1, 0, 0, -1}),
		"H":   mat.NewCDense(2, 2, []complex128{h, h, h, -h}),
		"S":   mat.NewCDense(2, 2, []complex128{1, 0, 0, 1i}),
		"SDG": mat.NewCDense(2, 2, []complex128{1, 0, 0, -1i}),
		"T":   mat.NewCDense(2, 2, []complex128{1, 0, 0, tPhase}),
		"TDG": mat.NewCDense(2, 2, []complex128{1, 0, 0, cmplx.Conj(tPhase)}),
		"CNOT": mat.NewCDense(4, 4, []complex128{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 0, 1,
			0, 0, 1, 0,
		}),
		"CZ": mat.NewCDense(4, 4, []complex128{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, -1,
		}),
		"SWAP": mat.NewCDense(4, 4, []complex128{
			1, 0, 0, 0,
			0, 0, 1, 0,
			0, 1, 0, 0,
			0, 0, 0, 1,
		}),
	}

	rotations := map[string]func(theta float64) *mat.CDense{
		"RX": func(theta float64) *mat.CDense {
			c := complex(math.Cos(theta/2), 0)
			js := complex(0, -math.Sin(theta/2))
			return mat.NewCDense(2, 2, []complex128{c, js, js, c})
		},
		"RY": func(theta float64) *mat.CDense {
			c := complex(math.Cos(theta/2), 0)
			s := complex(math.Sin(theta/2), 0)
			return mat.NewCDense(2, 2, []complex128{c, -s, s, c})
		},
		"RZ": func(theta float64) *mat.CDense {
			p := cmplx.Exp(complex(0, theta/2))
			return mat.NewCDense(2, 2, []complex128{cmplx.Conj(p), 0, 0, p})
		},
	}

	arity := make(map[string]int, len(fixed)+len(rotations))
	for name, m := range fixed {
		r, _ := m.Dims()
		if r == 4 {
			arity[name] = ArityTwo
		} else {
			arity[name] = ArityOne
		}
	}
	for name := range rotations {
		arity[name] = ArityOne
	}

	return &Library{fixed: fixed, rotations: rotations, arity: arity}
}

// Has reports whether the library knows the named gate.
func (l *Library) Has(name string) bool {
	_, ok := l.arity[name]
	return ok
}

// Arity returns how many qubits the named gate acts on.
func (l *Library) Arity(name string) (int, error) {
	a, ok := l.arity[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownGate, name)
	}
	return a, nil
}

// MatrixFor returns the unitary for the named gate. Rotation gates take the
// angle as the single optional parameter; fixed gates ignore it. The returned
// matrix is a copy the caller may mutate freely.
func (l *Library) MatrixFor(name string, angle ...float64) (*mat.CDense, error) {
	if gen, ok := l.rotations[name]; ok {
		if len(angle) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingAngle, name)
		}
		return gen(angle[0]), nil
	}
	m, ok := l.fixed[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGate, name)
	}
	return cmatrix.Clone(m), nil
}

// Names returns every gate name in the library.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.arity))
	for name := range l.arity {
		names = append(names, name)
	}
	return names
}
