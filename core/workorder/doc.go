// Package workorder turns the greedy building order into a phased schedule
// of repair tasks.
//
// Critical facility tasks always form phase 0. The remaining tasks follow
// the plan order (most expensive segment first within a building) and are
// cut into phases 1 to 4 by their cumulative share of the remaining cost.
// Assemble adds the running cost and time columns and checks the critical
// facility restoration time against the generator budget.
package workorder
