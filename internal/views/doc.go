// Package views derives the task projections shown on each page.
//
// Every function here is pure: given the full task collection and a reference
// date it computes the Today, Overdue, Upcoming, Completed and filtered All
// views. Callers hold one source-of-truth collection and recompute views on
// demand instead of keeping separately mutated copies in sync.
package views
