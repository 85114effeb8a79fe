// Package planner orders building restorations with a greedy rule: at each
// step the impacted building with the lowest current difficulty is chosen
// (ties by ascending id) and every segment it still depends on is repaired.
//
// Difficulties shrink as shared segments get repaired, so the candidate heap
// is keyed lazily: each repair re-pushes the buildings fed by the repaired
// segments with a fresh key and a new version, and stale entries are
// discarded when they reach the top. The resulting order is the same as
// re-sorting every candidate at every step.
package planner
