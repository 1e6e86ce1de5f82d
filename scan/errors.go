// CLAUDE:SUMMARY Sentinel errors for the scan service: invalid input, panics turned into terminal errors.
package scan

import "errors"

// ErrInvalidInput is returned when scan parameters fail validation.
var ErrInvalidInput = errors.New("scan: invalid input")

// ErrInternal wraps a recovered panic outside the per-snapshot boundary.
var ErrInternal = errors.New("scan: internal error")
