// Package apperrors defines the error taxonomy and exit codes for the arch
// deflection analysis pipeline. Errors are split into per-specimen
// recoverable conditions (missing trials, degenerate fits, alignment
// inconsistencies), which flag one arch and let the batch continue, and
// fatal conditions (bad input files, bad configuration), which abort the
// run with a dedicated exit code.
package apperrors
