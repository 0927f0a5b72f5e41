// Package progress defines the sink jobs report fractional progress through,
// plus helpers that clamp values, keep a stage monotonic, and rescale a
// sub-task's 0..1 progress into a reserved slice of the parent range.
package progress
