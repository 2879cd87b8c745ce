package core

import "math"

// Nonzero is one entry of the sparse constraint matrix.
type Nonzero struct {
	Row int
	Col int
	Val float64
}

// Matrix is the lowered form of a Model:
//
//	minimize    ColCost' x + Offset
//	subject to  RowLower <= A x <= RowUpper
//	            ColLower <= x <= ColUpper
//
// Column j corresponds to VarID j; row i corresponds to the i-th constraint.
// A maximization model is lowered with negated costs and Maximize set.
type Matrix struct {
	ColCost  []float64
	ColLower []float64
	ColUpper []float64
	RowLower []float64
	RowUpper []float64
	Nonzeros []Nonzero
	Offset   float64
	Maximize bool
}

// NumCols returns the number of columns.
func (mx *Matrix) NumCols() int { return len(mx.ColCost) }

// NumRows returns the number of rows.
func (mx *Matrix) NumRows() int { return len(mx.RowLower) }

// Lower converts the model into row/column-bound matrix form.
func (m *Model) Lower() *Matrix {
	n := len(m.vars)
	mx := &Matrix{
		ColCost:  make([]float64, n),
		ColLower: make([]float64, n),
		ColUpper: make([]float64, n),
		RowLower: make([]float64, len(m.constraints)),
		RowUpper: make([]float64, len(m.constraints)),
	}
	for j, v := range m.vars {
		mx.ColLower[j], mx.ColUpper[j] = v.Domain.Bounds()
	}

	sign := 1.0
	if m.objective.Sense == Maximize {
		sign = -1
		mx.Maximize = true
	}
	for _, t := range m.objective.Expr.Terms {
		mx.ColCost[t.Var] += sign * t.Coef
	}
	mx.Offset = sign * m.objective.Expr.Const

	for i, c := range m.constraints {
		rhs := -c.Expr.Const
		switch c.Sense {
		case LE:
			mx.RowLower[i], mx.RowUpper[i] = math.Inf(-1), rhs
		case GE:
			mx.RowLower[i], mx.RowUpper[i] = rhs, math.Inf(1)
		default:
			mx.RowLower[i], mx.RowUpper[i] = rhs, rhs
		}
		for _, t := range c.Expr.Terms {
			mx.Nonzeros = append(mx.Nonzeros, Nonzero{Row: i, Col: int(t.Var), Val: t.Coef})
		}
	}
	return mx
}
