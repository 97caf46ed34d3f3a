package planner

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats accumulates counters across repeated calls to Build, grounded on
// the teacher's dialect/sql.QueryStats atomic-counter shape, repurposed
// from query-execution counters to plan-building counters.
type Stats struct {
	TotalPlans       atomic.Int64
	TotalColumns     atomic.Int64
	TotalJoins       atomic.Int64
	TotalPredicates  atomic.Int64
	CompileErrors    atomic.Int64
	TotalBuildTime   atomic.Int64 // nanoseconds
}

// StatsSnapshot is a point-in-time read of Stats.
type StatsSnapshot struct {
	TotalPlans      int64
	TotalColumns    int64
	TotalJoins      int64
	TotalPredicates int64
	CompileErrors   int64
	TotalBuildTime  time.Duration
}

// Snapshot returns a StatsSnapshot of s.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalPlans:      s.TotalPlans.Load(),
		TotalColumns:    s.TotalColumns.Load(),
		TotalJoins:      s.TotalJoins.Load(),
		TotalPredicates: s.TotalPredicates.Load(),
		CompileErrors:   s.CompileErrors.Load(),
		TotalBuildTime:  time.Duration(s.TotalBuildTime.Load()),
	}
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	s.TotalPlans.Store(0)
	s.TotalColumns.Store(0)
	s.TotalJoins.Store(0)
	s.TotalPredicates.Store(0)
	s.CompileErrors.Store(0)
	s.TotalBuildTime.Store(0)
}

// AvgBuildTime returns the average Build duration across recorded plans.
func (s StatsSnapshot) AvgBuildTime() time.Duration {
	if s.TotalPlans == 0 {
		return 0
	}
	return s.TotalBuildTime / time.Duration(s.TotalPlans)
}

// String renders a human-readable summary, for log lines and debugging.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"plans=%d columns=%d joins=%d predicates=%d compileErrors=%d avgBuild=%s",
		s.TotalPlans, s.TotalColumns, s.TotalJoins, s.TotalPredicates, s.CompileErrors, s.AvgBuildTime(),
	)
}

// record folds one Build call's outcome into s.
func (s *Stats) record(mq *MappedQuery, elapsed time.Duration, err error) {
	s.TotalPlans.Add(1)
	s.TotalBuildTime.Add(int64(elapsed))
	if err != nil {
		s.CompileErrors.Add(1)
		return
	}
	s.TotalColumns.Add(int64(len(mq.Columns)))
	s.TotalJoins.Add(int64(len(mq.Joins)))
	s.TotalPredicates.Add(int64(len(mq.Predicates)))
}
