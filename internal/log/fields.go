// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldSource    = "source"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Playlist fields
	FieldURL      = "url"
	FieldHop      = "hop"
	FieldStrategy = "strategy"
	FieldOutcome  = "outcome"
	FieldRanges   = "ranges"
	FieldRemoved  = "removed_lines"
	FieldStatus   = "status"

	// HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRemoteAddr = "remote_addr"
	FieldDuration   = "duration_ms"
	FieldBytes      = "bytes"
)
