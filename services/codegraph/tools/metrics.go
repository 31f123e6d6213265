// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// queriesTotal counts tool invocations by tool name.
var queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "codekg",
	Subsystem: "tools",
	Name:      "queries_total",
	Help:      "Graph traversal tool invocations",
}, []string{"tool"})
