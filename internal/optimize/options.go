package optimize

import (
	"fmt"
	"strings"

	"solar-bess-sizer/internal/lp"

	"go.uber.org/zap"
)

// Formulation selects how simultaneous charge and discharge is handled.
type Formulation string

const (
	// FormulationPenalty adds penalty[t] >= charge[t] + discharge[t] - power to the
	// objective with a small weight. It stays a pure LP.
	FormulationPenalty Formulation = "penalty"
	// FormulationBinary forbids simultaneous charge and discharge by branching on
	// the disjunction charge[t] = 0 or discharge[t] = 0.
	FormulationBinary Formulation = "binary"
	// FormulationUnconstrained imposes no exclusivity at all.
	FormulationUnconstrained Formulation = "unconstrained"
)

// PowerCoupling selects what bounds the storage charge and discharge rate.
type PowerCoupling string

const (
	// CouplingSeparate sizes a storage power capacity of its own.
	CouplingSeparate PowerCoupling = "separate"
	// CouplingSolar bounds storage flows by the solar capacity (shared inverter).
	CouplingSolar PowerCoupling = "solar"
)

const (
	DefaultPenaltyWeight = 1e-3
	// DefaultCheckTolerance is the slack used when verifying solved trajectories.
	DefaultCheckTolerance = 1e-6
)

// Solver names accepted by ParseSolver.
const (
	SolverAuto     = "auto"
	SolverSimplex  = "simplex"
	SolverInterior = "interior"
)

// ParseSolver maps a backend name to an LP solver. "" means SolverAuto.
func ParseSolver(s string, tol float64) (lp.Solver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", SolverAuto:
		return lp.Auto{Tol: tol}, nil
	case SolverSimplex:
		return lp.Simplex{Tol: tol}, nil
	case SolverInterior:
		return lp.InteriorPoint{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown solver %q", ErrInvalidInput, s)
	}
}

// FormulationInfo describes a formulation for listings (API, CLI help).
type FormulationInfo struct {
	Name        Formulation `json:"name"`
	Description string      `json:"description"`
	MIP         bool        `json:"mip"`
}

// Formulations lists the supported formulations, default first.
func Formulations() []FormulationInfo {
	return []FormulationInfo{
		{Name: FormulationPenalty, Description: "LP; simultaneous charge and discharge above storage power is penalized in the objective"},
		{Name: FormulationBinary, Description: "MIP; charge and discharge are strictly exclusive in every period (branch-and-bound)", MIP: true},
		{Name: FormulationUnconstrained, Description: "LP; no exclusivity between charge and discharge"},
	}
}

func ParseFormulation(s string) (Formulation, error) {
	switch f := Formulation(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormulationPenalty, nil
	case FormulationPenalty, FormulationBinary, FormulationUnconstrained:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown formulation %q", ErrInvalidInput, s)
	}
}

func ParsePowerCoupling(s string) (PowerCoupling, error) {
	switch c := PowerCoupling(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CouplingSeparate, nil
	case CouplingSeparate, CouplingSolar:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown power coupling %q", ErrInvalidInput, s)
	}
}

// Options configures a single Optimize or Evaluate call. The zero value is usable.
type Options struct {
	Formulation   Formulation
	PowerCoupling PowerCoupling
	// Segments splits the horizon into contiguous blocks linked by entry-SOC
	// variables. 0 or 1 builds a single block.
	Segments int
	// PenaltyWeight applies to FormulationPenalty only. 0 means DefaultPenaltyWeight.
	PenaltyWeight float64
	// Tolerance is passed to the simplex of the default solver. 0 means lp.DefaultTolerance.
	Tolerance float64
	// MaxNodes bounds branch-and-bound for FormulationBinary. 0 means lp.DefaultMaxNodes.
	MaxNodes int

	// Solver overrides the LP backend. nil means lp.Auto, which keeps small
	// models on the dense simplex and long horizons on the interior-point method.
	Solver lp.Solver
	Logger *zap.Logger
}

// DefaultOptions returns the options used when a caller has no preference.
func DefaultOptions() Options {
	return Options{
		Formulation:   FormulationPenalty,
		PowerCoupling: CouplingSeparate,
		Segments:      1,
		PenaltyWeight: DefaultPenaltyWeight,
	}
}

func (o Options) withDefaults() Options {
	if o.Formulation == "" {
		o.Formulation = FormulationPenalty
	}
	if o.PowerCoupling == "" {
		o.PowerCoupling = CouplingSeparate
	}
	if o.Segments <= 0 {
		o.Segments = 1
	}
	if o.PenaltyWeight == 0 {
		o.PenaltyWeight = DefaultPenaltyWeight
	}
	if o.Solver == nil {
		o.Solver = lp.Auto{Tol: o.Tolerance}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) Validate() error {
	if _, err := ParseFormulation(string(o.Formulation)); err != nil {
		return err
	}
	if _, err := ParsePowerCoupling(string(o.PowerCoupling)); err != nil {
		return err
	}
	if o.Segments < 0 {
		return fmt.Errorf("%w: segments %d must be >= 0", ErrInvalidInput, o.Segments)
	}
	if o.PenaltyWeight < 0 {
		return fmt.Errorf("%w: penalty weight %v must be >= 0", ErrInvalidInput, o.PenaltyWeight)
	}
	if o.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance %v must be >= 0", ErrInvalidInput, o.Tolerance)
	}
	if o.MaxNodes < 0 {
		return fmt.Errorf("%w: max nodes %d must be >= 0", ErrInvalidInput, o.MaxNodes)
	}
	return nil
}
