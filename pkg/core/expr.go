package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// VarID identifies a variable within the Model that declared it.
type VarID int

// Index is an ordered index tuple, e.g. (carrier, tech, location, timestep).
type Index []string

func (i Index) String() string {
	return strings.Join(i, ",")
}

// Key returns the canonical name of a family member, e.g. "e_cap[ccgt,region1]".
func Key(family string, idx Index) string {
	return family + "[" + idx.String() + "]"
}

// Domain is the sign restriction of a variable.
type Domain int

const (
	Reals Domain = iota
	NonNegativeReals
	NonPositiveReals
)

func (d Domain) String() string {
	switch d {
	case NonNegativeReals:
		return "NonNegativeReals"
	case NonPositiveReals:
		return "NonPositiveReals"
	default:
		return "Reals"
	}
}

// Bounds returns the column bounds implied by the domain.
func (d Domain) Bounds() (lower, upper float64) {
	switch d {
	case NonNegativeReals:
		return 0, math.Inf(1)
	case NonPositiveReals:
		return math.Inf(-1), 0
	default:
		return math.Inf(-1), math.Inf(1)
	}
}

// Variable is a declared decision variable.
type Variable struct {
	ID     VarID
	Family string
	Index  Index
	Domain Domain
}

// Name returns the canonical key of the variable.
func (v Variable) Name() string {
	return Key(v.Family, v.Index)
}

// Term is a single coefficient-variable product.
type Term struct {
	Var  VarID
	Coef float64
}

// T is shorthand for a Term.
func T(v VarID, coef float64) Term {
	return Term{Var: v, Coef: coef}
}

// LinExpr is a linear expression sum(Coef*Var) + Const.
type LinExpr struct {
	Terms []Term
	Const float64
}

// Expr builds an expression from terms. Zero coefficients are dropped.
func Expr(terms ...Term) LinExpr {
	e := LinExpr{}
	for _, t := range terms {
		e.Add(t.Var, t.Coef)
	}
	return e
}

// Const builds a constant expression.
func Const(c float64) LinExpr {
	return LinExpr{Const: c}
}

// Add appends coef*v to the expression.
func (e *LinExpr) Add(v VarID, coef float64) *LinExpr {
	if coef == 0 {
		return e
	}
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	return e
}

// AddConst adds c to the constant term.
func (e *LinExpr) AddConst(c float64) *LinExpr {
	e.Const += c
	return e
}

// AddExpr adds scale*o to the expression.
func (e *LinExpr) AddExpr(o LinExpr, scale float64) *LinExpr {
	if scale == 0 {
		return e
	}
	for _, t := range o.Terms {
		e.Add(t.Var, t.Coef*scale)
	}
	e.Const += o.Const * scale
	return e
}

// Scaled returns a copy of the expression multiplied by f.
func (e LinExpr) Scaled(f float64) LinExpr {
	out := LinExpr{}
	out.AddExpr(e, f)
	return out
}

// IsZero reports whether the expression has no terms and a zero constant.
func (e LinExpr) IsZero() bool {
	return len(e.Terms) == 0 && e.Const == 0
}

// Coef returns the total coefficient of v.
func (e LinExpr) Coef(v VarID) float64 {
	var c float64
	for _, t := range e.Terms {
		if t.Var == v {
			c += t.Coef
		}
	}
	return c
}

// Compact merges repeated variables, drops cancelled terms and orders terms by VarID.
func (e LinExpr) Compact() LinExpr {
	acc := make(map[VarID]float64, len(e.Terms))
	for _, t := range e.Terms {
		acc[t.Var] += t.Coef
	}
	out := LinExpr{Const: e.Const, Terms: make([]Term, 0, len(acc))}
	for v, c := range acc {
		if c != 0 {
			out.Terms = append(out.Terms, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out.Terms, func(i, j int) bool { return out.Terms[i].Var < out.Terms[j].Var })
	return out
}

// Eval evaluates the expression for the given variable values; missing variables count as zero.
func (e LinExpr) Eval(values func(VarID) float64) float64 {
	sum := e.Const
	for _, t := range e.Terms {
		sum += t.Coef * values(t.Var)
	}
	return sum
}

// Sense relates a constraint expression to zero.
type Sense int

const (
	EQ Sense = iota
	LE
	GE
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "=="
	}
}

// Constraint is Expr (Sense) 0.
type Constraint struct {
	Family string
	Index  Index
	Expr   LinExpr
	Sense  Sense
}

// Name returns the canonical key of the constraint.
func (c Constraint) Name() string {
	return Key(c.Family, c.Index)
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s: %d terms %+g %s 0", c.Name(), len(c.Expr.Terms), c.Expr.Const, c.Sense)
}

// Satisfied reports whether the constraint holds for the given values within tol.
func (c Constraint) Satisfied(values func(VarID) float64, tol float64) bool {
	v := c.Expr.Eval(values)
	switch c.Sense {
	case LE:
		return v <= tol
	case GE:
		return v >= -tol
	default:
		return math.Abs(v) <= tol
	}
}

func relate(lhs, rhs LinExpr, s Sense) Constraint {
	e := LinExpr{}
	e.AddExpr(lhs, 1)
	e.AddExpr(rhs, -1)
	return Constraint{Expr: e.Compact(), Sense: s}
}

// Eq returns lhs == rhs.
func Eq(lhs, rhs LinExpr) Constraint { return relate(lhs, rhs, EQ) }

// Le returns lhs <= rhs.
func Le(lhs, rhs LinExpr) Constraint { return relate(lhs, rhs, LE) }

// Ge returns lhs >= rhs.
func Ge(lhs, rhs LinExpr) Constraint { return relate(lhs, rhs, GE) }
