package main

import "github.com/orbit-lang/orbitpkg/internal/logging"

// Loggers bundles the stdout/stderr writers a command's Run method
// uses to report progress and errors.
type Loggers struct {
	Out, Err *logging.Logger
}
