package service

import "errors"

var (
	// ErrNoData indicates the requested window contains no usable events or
	// persisted statistics for the subject.
	ErrNoData = errors.New("no data available for the requested period")

	// ErrNoPowerRating indicates no power rating is configured for the
	// device's type, so energy cannot be computed.
	ErrNoPowerRating = errors.New("no power rating configured for device type")

	// ErrInvalidPeriod indicates a malformed date, an inverted range or an
	// out-of-range month in the request, as opposed to a computation fault.
	ErrInvalidPeriod = errors.New("invalid date or period")
)
