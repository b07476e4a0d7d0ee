// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"sort"
	"strings"
)

// ReadyChecker reports unhealthy until ready returns true.
func ReadyChecker(name string, ready func() bool) Checker {
	return CheckerFunc{CheckName: name, Fn: func(context.Context) CheckResult {
		if !ready() {
			return CheckResult{Status: StatusUnhealthy, Message: "not initialized"}
		}
		return CheckResult{Status: StatusHealthy}
	}}
}

// PingChecker runs ping and maps an error to degraded. Used for optional
// backends whose outage only costs performance.
func PingChecker(name string, ping func(ctx context.Context) error) Checker {
	return CheckerFunc{CheckName: name, Fn: func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			return CheckResult{Status: StatusDegraded, Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy}
	}}
}

// OpenCircuitsChecker reports degraded while any upstream circuit is open.
// states maps circuit name to state name.
func OpenCircuitsChecker(name string, states func() map[string]string) Checker {
	return CheckerFunc{CheckName: name, Fn: func(context.Context) CheckResult {
		var open []string
		for circuit, state := range states() {
			if state == "open" {
				open = append(open, circuit)
			}
		}
		if len(open) == 0 {
			return CheckResult{Status: StatusHealthy}
		}
		sort.Strings(open)
		return CheckResult{Status: StatusDegraded, Message: "open: " + strings.Join(open, ", ")}
	}}
}
