// Package collector gathers result tables from solved models.
//
// A Snapshot is an immutable view of one solve: installed capacities per
// (technology, location), costs per (technology, location, cost class) and
// per-timestep production series. SPORES runs keep one Snapshot per iteration.
//
// # Usage Example
//
//	snap := collector.Collect(problem.Sets, sol, 0)
//	monetary := snap.ClassTotal("monetary")
//	peak := snap.Production("power", "ccgt", "region1").Aggregate(collector.AggMax)
package collector
