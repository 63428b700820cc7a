// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package region

import "errors"

// Sentinel errors returned by region operations, in the flat
// errors.New-per-kind style used throughout the Lux EVM stack (see
// vmerrs.ErrInvalidJump and neighbors).
var (
	ErrUnknownRegion  = errors.New("region: unknown region")
	ErrNotOwner       = errors.New("region: caller is not the owner")
	ErrPivotTooEarly  = errors.New("region: pivot at or before region begin")
	ErrPivotTooLate   = errors.New("region: pivot at or after region end")
	ErrVoidPivot      = errors.New("region: interlace mask is void")
	ErrCompletePivot  = errors.New("region: interlace mask equals the whole region mask")
	ErrNotSubsetMask  = errors.New("region: interlace mask is not a subset of the region mask")
	ErrNotBurned      = errors.New("region: region is not burned")
	ErrMaskCollision  = errors.New("region: mask collides with an existing live region on (begin, core)")
)
