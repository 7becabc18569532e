package errors

import "errors"

var (
	ErrRegistryAuthRequired = errors.New("registry credentials are required")
	ErrLockHeld             = errors.New("run lock is held by another run")
	ErrPlaceholderValue     = errors.New("placeholder values must be replaced")
	ErrBuildNotFound        = errors.New("build record not found")
	ErrReportNotFound       = errors.New("no build report found in state bucket")
)
