// Package ingestion writes embeddable documents to a vector store in
// fixed-size batches.
//
// Documents are partitioned into contiguous batches that preserve input
// order. Each batch runs through a bounded retry state machine:
//
//	ATTEMPTING -> SUCCESS
//	ATTEMPTING -> RETRY_WAIT -> ATTEMPTING
//	ATTEMPTING -> FAILED
//
// Failures are classified as retryable or permanent. Permanent failures
// (see Permanent and IsRetryable) end the run immediately; retryable ones
// are retried with exponential backoff until the retry budget is spent.
// A failed batch aborts the whole run and is reported as a *BatchError.
package ingestion
