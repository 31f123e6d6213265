// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for store writes.
var (
	writeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "codekg",
		Subsystem: "store",
		Name:      "write_duration_seconds",
		Help:      "Duration of full graph writes",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	batchesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codekg",
		Subsystem: "store",
		Name:      "batches_written_total",
		Help:      "Write batches committed",
	})
)
