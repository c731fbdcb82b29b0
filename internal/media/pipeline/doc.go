// Package pipeline runs uploaded videos through transcoding and remote
// publication one at a time.
//
// A Queue admits jobs by writing a pending status record and appending the
// source to an in-memory FIFO. A single drain goroutine pops jobs in order,
// moves them to processing, runs the transcoder, uploads every output file
// concurrently, removes local artifacts and records the terminal status.
// Submitters never wait for that work; clients poll GetStatus instead.
//
// The status store is the only state that outlives the process. Records left
// pending or processing after a restart have no in-memory job behind them and
// must be failed by a reconciliation sweep (see repository.Reconciler).
package pipeline
