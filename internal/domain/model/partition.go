// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/utils"
)

// Partitioner maps a document date to the index partition holding it.
type Partitioner interface {
	// IndexFor returns the partition index for the given date
	IndexFor(t time.Time) string
	// Pattern returns the wildcard pattern covering every partition
	Pattern() string
}

// MonthlyPartitioner stores documents in one index per calendar month (UTC),
// named <prefix>-YYYY.MM.
type MonthlyPartitioner struct {
	Prefix string
}

// IndexFor returns the monthly partition for t.
func (p MonthlyPartitioner) IndexFor(t time.Time) string {
	return p.Prefix + "-" + utils.StartOfMonthUTC(t).Format("2006.01")
}

// Pattern returns <prefix>-*.
func (p MonthlyPartitioner) Pattern() string {
	return p.Prefix + "-*"
}
