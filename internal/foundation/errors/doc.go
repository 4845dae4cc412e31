// Package errors provides classified error primitives used across confexport.
//
// Every failure an export can hit is one of a handful of kinds (configuration,
// transport, content API status, data shape, filesystem) and each kind maps to a
// category, a severity and a retry strategy. Callers build errors with the fluent
// builder and the CLI turns them into exit codes through CLIErrorAdapter.
//
// Example usage:
//
//	err := errors.ContentAPIError("unexpected status").
//		WithContext("page_id", id).
//		WithContext("status", resp.StatusCode).
//		WithCause(cause).
//		Build()
package errors
