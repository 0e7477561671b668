package pinning

import "errors"

var (
	ErrUnknownBackend = errors.New("unknown pinning backend")
	ErrInvalidCID     = errors.New("invalid content identifier")
)
