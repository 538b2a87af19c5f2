package run

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/gradbench/internal/optimization"
)

// SampleStarts draws n start points uniformly inside b. The same seed always
// yields the same points.
func SampleStarts(b optimization.Bounds, n int, seed uint64) []optimization.Point {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	xs := distuv.Uniform{Min: b.XMin, Max: b.XMax, Src: src}
	ys := distuv.Uniform{Min: b.YMin, Max: b.YMax, Src: src}

	points := make([]optimization.Point, n)
	for i := range points {
		points[i] = optimization.Point{X: xs.Rand(), Y: ys.Rand()}
	}
	return points
}

// MultiStart runs spec once from each start, sequentially.
func (r *Runner) MultiStart(ctx context.Context, spec Spec, starts []optimization.Point) ([]*Result, error) {
	results := make([]*Result, 0, len(starts))
	for i := range starts {
		s := spec
		s.Start = &starts[i]
		res, err := r.Trajectory(ctx, s, nil)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Summary aggregates the final state of several trajectories.
type Summary struct {
	Runs         int     `json:"runs"`
	Diverged     int     `json:"diverged"`
	MeanDistance float64 `json:"mean_distance"`
	StdDistance  float64 `json:"std_distance"`
	// CI95 is the half-width of a Student-t 95% interval on MeanDistance.
	CI95      float64 `json:"ci95"`
	MeanValue float64 `json:"mean_value"`
	// Hits counts runs that ended within tol of an optimum.
	Hits int `json:"hits"`
}

// Summarize aggregates results. Diverged runs are counted but excluded from
// the statistics.
func Summarize(results []*Result, tol float64) Summary {
	s := Summary{Runs: len(results)}

	var dists, values []float64
	for _, res := range results {
		if !res.Finite || math.IsNaN(res.Distance) {
			s.Diverged++
			continue
		}
		dists = append(dists, res.Distance)
		values = append(values, res.Value)
		if res.Distance <= tol {
			s.Hits++
		}
	}

	if len(dists) == 0 {
		s.MeanDistance, s.StdDistance, s.CI95, s.MeanValue = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}

	s.MeanValue = stat.Mean(values, nil)
	if len(dists) == 1 {
		s.MeanDistance = dists[0]
		return s
	}

	s.MeanDistance, s.StdDistance = stat.MeanStdDev(dists, nil)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(dists) - 1)}
	s.CI95 = t.Quantile(0.975) * s.StdDistance / math.Sqrt(float64(len(dists)))
	return s
}
