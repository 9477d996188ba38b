package domain

import "errors"

var (
	ErrInvalidMatchID = errors.New("invalid match identifier")
	ErrUnknownMatch   = errors.New("match not registered")
	ErrUnknownRole    = errors.New("unknown viewer role")
	ErrFetchFailed    = errors.New("feed fetch failed")
	ErrEngineStopped  = errors.New("engine stopped")
	ErrMatchFull      = errors.New("viewer limit reached for match")
)
