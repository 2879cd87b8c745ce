// Package spores implements the SPORES controller: a sequence of solves that explores
// near-optimal alternatives to the cost-optimal system.
//
// The controller first solves for the cost-optimal system and records its cost C*.
// Every further iteration bounds that cost by C*(1+slack) and minimizes a diversity
// score instead. After each solve, every (technology, location) pair that built
// capacity beyond its forced minimum has its score raised in proportion to the
// additional capacity, pushing the next iteration towards other pairs.
//
//	InitialSolve → SlackConstrainedSolve(1) → ... → SlackConstrainedSolve(n) → Terminated
//
// Iterations are strictly sequential. Scores are threaded through the loop as
// immutable snapshots.
package spores
