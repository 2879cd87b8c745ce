package solver

import (
	"context"
	"errors"
	"math"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/logging"
	"github.com/energymodels/capacityplanner/pkg/core"
)

// DefaultSimplexTolerance is used when SimplexConfig.Tolerance is zero.
const DefaultSimplexTolerance = 1e-9

// SimplexConfig holds configuration for the Simplex backend.
type SimplexConfig struct {
	Tolerance float64
}

// Simplex is the dense reference backend.
type Simplex struct {
	config SimplexConfig
}

// NewSimplex creates a Simplex backend.
func NewSimplex(config SimplexConfig) *Simplex {
	if config.Tolerance <= 0 {
		config.Tolerance = DefaultSimplexTolerance
	}
	return &Simplex{config: config}
}

type presolveRow struct {
	lo, hi float64
	cols   []int
	vals   []float64
	active bool
}

// presolved is the reduced problem plus the values settled during presolve.
type presolved struct {
	lo, hi []float64
	fixed  []bool
	value  []float64
	rows   []*presolveRow
	status core.Status
}

// Solve implements Solver.
func (s *Simplex) Solve(ctx context.Context, m *core.Model) (*core.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := ctrl.LoggerFrom(ctx)
	mx := m.Lower()
	tol := s.config.Tolerance

	p := presolve(mx, tol)
	if p.status != core.StatusOptimal {
		logger.V(logging.DEBUG).Info("Presolve decided the model", "status", p.status.String())
		return &core.Solution{Status: p.status, Values: map[string]float64{}}, nil
	}

	// columns still coupled through rows
	inRow := make([]bool, mx.NumCols())
	activeRows := 0
	for _, r := range p.rows {
		if !r.active {
			continue
		}
		activeRows++
		for _, j := range r.cols {
			inRow[j] = true
		}
	}
	colIdx := make([]int, mx.NumCols())
	var active []int
	for j := range colIdx {
		colIdx[j] = -1
		if p.fixed[j] {
			continue
		}
		if inRow[j] {
			colIdx[j] = len(active)
			active = append(active, j)
			continue
		}
		v, status := settleFree(mx.ColCost[j], p.lo[j], p.hi[j])
		if status != core.StatusOptimal {
			return &core.Solution{Status: status, Values: map[string]float64{}}, nil
		}
		p.fixed[j], p.value[j] = true, v
	}

	logger.V(logging.DEBUG).Info("Presolve finished",
		"columns", mx.NumCols(),
		"rows", mx.NumRows(),
		"activeColumns", len(active),
		"activeRows", activeRows)

	if len(active) > 0 {
		status, err := s.simplex(logger, mx, p, active, colIdx)
		if err != nil {
			return nil, err
		}
		if status != core.StatusOptimal {
			return &core.Solution{Status: status, Values: map[string]float64{}}, nil
		}
	}

	obj := mx.Offset
	for j, c := range mx.ColCost {
		obj += c * p.value[j]
	}
	if mx.Maximize {
		obj = -obj
	}
	return core.NewSolution(m, core.StatusOptimal, obj, p.value), nil
}

func (s *Simplex) simplex(logger logr.Logger, mx *core.Matrix, p *presolved, active, colIdx []int) (core.Status, error) {
	n := len(active)
	var gRows, aRows [][]float64
	var h, b []float64

	for _, r := range p.rows {
		if !r.active {
			continue
		}
		row := make([]float64, n)
		for i, j := range r.cols {
			row[colIdx[j]] += r.vals[i]
		}
		if r.lo == r.hi {
			aRows = append(aRows, row)
			b = append(b, r.hi)
			continue
		}
		if !math.IsInf(r.hi, 1) {
			gRows = append(gRows, row)
			h = append(h, r.hi)
		}
		if !math.IsInf(r.lo, -1) {
			neg := make([]float64, n)
			for k, v := range row {
				neg[k] = -v
			}
			gRows = append(gRows, neg)
			h = append(h, -r.lo)
		}
	}
	for k, j := range active {
		if !math.IsInf(p.lo[j], -1) {
			row := make([]float64, n)
			row[k] = -1
			gRows = append(gRows, row)
			h = append(h, -p.lo[j])
		}
		if !math.IsInf(p.hi[j], 1) {
			row := make([]float64, n)
			row[k] = 1
			gRows = append(gRows, row)
			h = append(h, p.hi[j])
		}
	}

	c := make([]float64, n)
	for k, j := range active {
		c[k] = mx.ColCost[j]
	}

	var g, a mat.Matrix
	if len(gRows) > 0 {
		g = denseFromRows(gRows, n)
	}
	if len(aRows) > 0 {
		a = denseFromRows(aRows, n)
	}
	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	if rows, cols := aStd.Dims(); rows > cols {
		return core.StatusOther, nil
	}

	_, x, err := lp.Simplex(cStd, aStd, bStd, s.config.Tolerance, nil)
	switch {
	case err == nil:
	case errors.Is(err, lp.ErrInfeasible):
		return core.StatusInfeasible, nil
	case errors.Is(err, lp.ErrUnbounded):
		return core.StatusUnbounded, nil
	default:
		logger.V(logging.DEBUG).Info("Simplex did not converge", "error", err.Error())
		return core.StatusOther, nil
	}

	for k, j := range active {
		p.value[j] = x[k] - x[n+k]
	}
	return core.StatusOptimal, nil
}

func denseFromRows(rows [][]float64, n int) *mat.Dense {
	data := make([]float64, 0, len(rows)*n)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), n, data)
}

// presolve fixes columns with equal bounds, turns singleton rows into bounds and
// drops rows with no remaining coefficients.
func presolve(mx *core.Matrix, tol float64) *presolved {
	n := mx.NumCols()
	p := &presolved{
		lo:     append([]float64(nil), mx.ColLower...),
		hi:     append([]float64(nil), mx.ColUpper...),
		fixed:  make([]bool, n),
		value:  make([]float64, n),
		rows:   make([]*presolveRow, mx.NumRows()),
		status: core.StatusOptimal,
	}
	for i := range p.rows {
		p.rows[i] = &presolveRow{lo: mx.RowLower[i], hi: mx.RowUpper[i], active: true}
	}
	for _, nz := range mx.Nonzeros {
		r := p.rows[nz.Row]
		r.cols = append(r.cols, nz.Col)
		r.vals = append(r.vals, nz.Val)
	}
	for j := 0; j < n; j++ {
		if p.lo[j] > p.hi[j]+tol {
			p.status = core.StatusInfeasible
			return p
		}
		if p.hi[j]-p.lo[j] <= tol {
			p.fixed[j], p.value[j] = true, p.lo[j]
		}
	}

	for changed := true; changed; {
		changed = false
		for _, r := range p.rows {
			if !r.active {
				continue
			}
			r.substituteFixed(p)
			switch len(r.cols) {
			case 0:
				if r.lo > tol*scale(r.lo) || r.hi < -tol*scale(r.hi) {
					p.status = core.StatusInfeasible
					return p
				}
				r.active = false
			case 1:
				j, a := r.cols[0], r.vals[0]
				lo, hi := r.lo/a, r.hi/a
				if a < 0 {
					lo, hi = hi, lo
				}
				if lo > p.lo[j] {
					p.lo[j] = lo
				}
				if hi < p.hi[j] {
					p.hi[j] = hi
				}
				if p.lo[j] > p.hi[j]+tol*scale(p.hi[j]) {
					p.status = core.StatusInfeasible
					return p
				}
				if p.hi[j]-p.lo[j] <= tol*scale(p.lo[j]) {
					p.fixed[j], p.value[j] = true, p.lo[j]
				}
				r.active = false
				changed = true
			}
		}
	}
	return p
}

func (r *presolveRow) substituteFixed(p *presolved) {
	k := 0
	for i, j := range r.cols {
		if p.fixed[j] {
			shift := r.vals[i] * p.value[j]
			r.lo -= shift
			r.hi -= shift
			continue
		}
		r.cols[k], r.vals[k] = j, r.vals[i]
		k++
	}
	r.cols, r.vals = r.cols[:k], r.vals[:k]
}

// settleFree picks the optimal value of a column that appears in no row.
func settleFree(cost, lo, hi float64) (float64, core.Status) {
	switch {
	case cost > 0:
		if math.IsInf(lo, -1) {
			return 0, core.StatusUnbounded
		}
		return lo, core.StatusOptimal
	case cost < 0:
		if math.IsInf(hi, 1) {
			return 0, core.StatusUnbounded
		}
		return hi, core.StatusOptimal
	default:
		return math.Max(lo, math.Min(hi, 0)), core.StatusOptimal
	}
}

func scale(v float64) float64 {
	if math.IsInf(v, 0) {
		return 1
	}
	return math.Max(1, math.Abs(v))
}
