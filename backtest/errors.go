package backtest

import "errors"

var (
	// ErrInvalidConfig marks a parameter set rejected before simulation.
	ErrInvalidConfig = errors.New("invalid backtest config")
	// ErrUnknownPriceField is returned for a price field other than Open/High/Low/Close.
	ErrUnknownPriceField = errors.New("unknown price field")
	// ErrUnorderedSeries is returned when dates are not strictly increasing.
	ErrUnorderedSeries = errors.New("price series dates not strictly increasing")
	// ErrInvalidPrice is returned when the selected price is non-positive or not finite.
	ErrInvalidPrice = errors.New("invalid price")
)

// IsInputError reports whether err was caused by the caller's config or series.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrUnknownPriceField) ||
		errors.Is(err, ErrUnorderedSeries) ||
		errors.Is(err, ErrInvalidPrice)
}
