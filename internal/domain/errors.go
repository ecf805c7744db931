package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient uncommitted balance")
	ErrDuplicatePosition = errors.New("position already open for asset")
	ErrPositionLimit     = errors.New("max concurrent positions reached")
	ErrExposureLimit     = errors.New("max total exposure reached")
	ErrPriceUnavailable  = errors.New("price unavailable")
	ErrTradingHalted     = errors.New("trading halted by safety breaker")
	ErrPlanExpired       = errors.New("plan expired")
	ErrWSDisconnect      = errors.New("websocket disconnected")
)
