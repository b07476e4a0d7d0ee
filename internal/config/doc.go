// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config holds the proxy configuration: listeners, upstream limits,
// engine tuning and the per-source adapter table.
//
// Values resolve as HLSCLEAN_* environment > YAML file > defaults. Source
// entries come from the file only. ConfigHolder swaps in a new snapshot when
// the file changes or on SIGHUP and notifies registered listeners.
package config
