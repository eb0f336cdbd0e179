package errors

import "errors"

var (
	ErrInvalidStrategy         = errors.New("invalid matching strategy")
	ErrMissingCustomMappings   = errors.New("custom-mapping strategy selected but no mappings supplied")
	ErrUnsupportedReportFormat = errors.New("unsupported report format")
	ErrInvalidConcurrency      = errors.New("concurrency limit must be positive")
	ErrSourceDirMissing        = errors.New("source directory does not exist")
	ErrReferenceDirMissing     = errors.New("reference directory does not exist")
)
