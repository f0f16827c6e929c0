package engine

import (
	"math"

	dErrors "custodia/pkg/domain-errors"
)

// splitShares partitions quantity by percentage using floor division:
// the originator receives floor(quantity*percentage/100) and the destination
// receives the remainder, so the two shares always sum to quantity exactly.
func splitShares(quantity int64, percentage int) (originatorShare, destinationShare int64, err error) {
	if percentage < 0 || percentage > 100 {
		return 0, 0, dErrors.Newf(dErrors.CodeInvalidInput,
			"percentage must be within [0,100], got %d", percentage)
	}
	if quantity <= 0 {
		return 0, 0, dErrors.Newf(dErrors.CodeInvalidInput,
			"quantity must be positive, got %d", quantity)
	}
	// The product quantity*percentage must not exceed int64 before the
	// division brings it back down.
	if percentage > 0 && quantity > math.MaxInt64/int64(percentage) {
		return 0, 0, dErrors.Newf(dErrors.CodeInvalidInput,
			"quantity %d too large to split without overflow", quantity)
	}

	originatorShare = quantity * int64(percentage) / 100
	destinationShare = quantity - originatorShare
	return originatorShare, destinationShare, nil
}
