// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for graph construction.
var (
	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "codekg",
		Subsystem: "graph",
		Name:      "build_duration_seconds",
		Help:      "Duration of knowledge graph builds",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	filesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codekg",
		Subsystem: "graph",
		Name:      "files_processed_total",
		Help:      "Files whose content produced graph nodes",
	})

	filesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codekg",
		Subsystem: "graph",
		Name:      "files_skipped_total",
		Help:      "Files skipped during graph builds, by reason",
	}, []string{"reason"})
)
