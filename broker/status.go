// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package broker

import "github.com/luxfi/broker/region"

// Status is the broker's scalar runtime state, spec.md §3's Status
// record.
type Status struct {
	CoreCount              uint16
	PrivatePoolSize        uint64
	SystemPoolSize         uint64
	LastCommittedTimeslice region.Timeslice
	LastTimeslice          region.Timeslice
}
