package core

import "errors"

// ErrReportNotFound is returned when no report matches an (owner, id) pair.
var ErrReportNotFound = errors.New("report not found")
