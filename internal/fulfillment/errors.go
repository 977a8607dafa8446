package fulfillment

import "errors"

var (
	ErrInvalidStatus      = errors.New("status must be delivered or failed")
	ErrRedemptionNotFound = errors.New("redemption not found")
	ErrAlreadyFinal       = errors.New("redemption is no longer processing")
	ErrExportDisabled     = errors.New("export bucket is not configured")
)
