// Package tasks holds the client-side state for tasks and categories.
//
// A Manager owns the authoritative task collection loaded from a store,
// forwards every mutation to the store and patches its collection by id on
// success. Subscribers receive an Event per mutation; Page uses them to keep
// cached view subsets consistent without reloading.
//
// Failures never escape as panics. Operation failures are recorded as a
// generic message in State and returned as *OperationError; not-found results
// are returned as nil with no error.
package tasks
