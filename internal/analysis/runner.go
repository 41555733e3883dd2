// Package analysis runs sizing across countries, years and service targets and
// re-costs fixed capacities over a cost curve.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"solar-bess-sizer/internal/config"
	"solar-bess-sizer/internal/costs"
	"solar-bess-sizer/internal/data"
	"solar-bess-sizer/internal/lcoe"
	"solar-bess-sizer/internal/model"
	"solar-bess-sizer/internal/optimize"
	"solar-bess-sizer/internal/profile"
	"solar-bess-sizer/internal/store"

	"go.uber.org/zap"
)

// Job is one sizing instance of a sweep. Zero Target uses the scenario target.
type Job struct {
	Location data.Location
	Year     int
	Target   float64
}

// Jobs expands locations × years × targets. A nil targets slice yields one job
// per location and year at the scenario target.
func Jobs(locs []data.Location, years []int, targets []float64) []Job {
	if len(targets) == 0 {
		targets = []float64{0}
	}
	out := make([]Job, 0, len(locs)*len(years)*len(targets))
	for _, loc := range locs {
		for _, y := range years {
			for _, t := range targets {
				out = append(out, Job{Location: loc, Year: y, Target: t})
			}
		}
	}
	return out
}

// Outcome is the result of one job. Err is set when the job failed; the other
// jobs of the sweep are unaffected.
type Outcome struct {
	Job
	RunID  string
	Costs  model.TechCosts
	Result *optimize.SizingResult
	LoadMW float64
	Target float64
	LCOE   float64
	Err    error
}

// Runner sizes jobs against a base scenario on a bounded pool of workers.
type Runner struct {
	Scenario *config.Scenario
	Profiles profile.Provider
	// Store, when set, persists every successful outcome.
	Store  *store.Store
	Logger *zap.Logger
	// Progress is called once per finished job from the worker goroutines.
	Progress func(Outcome)
}

func (r *Runner) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) workers(jobs int) int {
	n := r.Scenario.Workers
	if n <= 0 {
		n = 1
	}
	if n > jobs {
		n = jobs
	}
	return n
}

// Run sizes every job and returns outcomes in job order. It stops handing out
// jobs once ctx is done; jobs never started carry ctx.Err().
func (r *Runner) Run(ctx context.Context, jobs []Job) []Outcome {
	out := make([]Outcome, len(jobs))
	if len(jobs) == 0 {
		return out
	}
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.workers(len(jobs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				out[i] = r.Size(ctx, jobs[i])
				if r.Progress != nil {
					r.Progress(out[i])
				}
			}
		}()
	}

	next := 0
feed:
	for ; next < len(jobs); next++ {
		select {
		case <-ctx.Done():
			break feed
		case idx <- next:
		}
	}
	close(idx)
	wg.Wait()
	for i := next; i < len(jobs); i++ {
		out[i] = Outcome{Job: jobs[i], Err: ctx.Err()}
	}
	return out
}

// scenarioFor is the base scenario moved to the job's place and year.
func (r *Runner) scenarioFor(j Job) *config.Scenario {
	sc := *r.Scenario
	if j.Location.Country != "" {
		sc.Country = j.Location.Country
		sc.Site = config.SiteConfig{
			Latitude:  j.Location.Latitude,
			Longitude: j.Location.Longitude,
			AltitudeM: j.Location.AltitudeM,
		}
	}
	if j.Year != 0 {
		sc.Year = j.Year
	}
	if j.Target > 0 {
		sc.Operating.Target = j.Target
	}
	return &sc
}

// Size runs a single job.
func (r *Runner) Size(ctx context.Context, j Job) Outcome {
	o := Outcome{Job: j}
	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}
	sc := r.scenarioFor(j)
	log := r.log().With(zap.String("country", sc.Country), zap.Int("year", sc.Year))
	o.Target = sc.Operating.Target

	p, err := sc.Problem(ctx, r.Profiles)
	if err != nil {
		o.Err = err
		log.Warn("job setup failed", zap.Error(err))
		return o
	}
	o.Costs = p.Costs
	o.LoadMW = p.Demand.Total(p.Profile.Len()) / float64(p.Profile.Len())

	opts, err := sc.Options(log)
	if err != nil {
		o.Err = err
		return o
	}
	started := time.Now()
	res, err := optimize.Optimize(ctx, p, opts)
	if err != nil {
		o.Err = err
		return o
	}
	o.Result = res
	o.LCOE, err = lcoe.FromSizing(res.TotalCost, o.LoadMW, o.Target, sc.FinancialsOrDefault())
	if err != nil {
		o.Err = fmt.Errorf("lcoe: %w", err)
		return o
	}

	if r.Store != nil {
		run := RunRecord(sc, o)
		if err := r.Store.SaveRun(run, res.Trajectory); err != nil {
			log.Error("save run failed", zap.Error(err))
		} else {
			o.RunID = run.ID
		}
	}
	log.Info("job done",
		zap.Float64("target", o.Target),
		zap.Float64("lcoe", o.LCOE),
		zap.Duration("elapsed", time.Since(started)))
	return o
}

// RunRecord converts an outcome into its persisted summary.
func RunRecord(sc *config.Scenario, o Outcome) *store.Run {
	run := &store.Run{
		Kind:       store.KindOptimize,
		Name:       sc.Name,
		Country:    sc.Country,
		Year:       sc.Year,
		Target:     o.Target,
		Efficiency: sc.Operating.Efficiency,
		InitialSOC: sc.Operating.InitialSOC,
		LCOE:       o.LCOE,
		Status:     StatusOf(o.Err),
	}
	if o.Err != nil {
		run.Error = o.Err.Error()
	}
	if res := o.Result; res != nil {
		run.Formulation = string(res.Formulation)
		run.PowerCoupling = string(res.PowerCoupling)
		run.Segments = res.Segments
		run.SolarMW = res.SolarCapacityMW
		run.StoragePowerMW = res.StoragePowerMW
		run.StorageEnergyMWh = res.StorageEnergyMWh
		run.TotalCost = res.TotalCost
		run.Availability = res.Availability
	}
	return run
}

// StatusOf names the outcome of a run for reports.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return "optimal"
	case errors.Is(err, optimize.ErrInfeasible):
		return "infeasible"
	case errors.Is(err, optimize.ErrSuboptimal):
		return "suboptimal"
	case errors.Is(err, optimize.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, costs.ErrNotFound):
		return "lookup_miss"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
