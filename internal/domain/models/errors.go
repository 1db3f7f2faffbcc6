package models

import "errors"

var (
	ErrUnknownAsset        = errors.New("unknown asset")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrProviderUnavailable = errors.New("quote provider unavailable")
	ErrProviderError       = errors.New("quote provider error")
	ErrCorruptRecord       = errors.New("corrupt record")
	ErrPredictionNotFound  = errors.New("prediction not found")
	ErrOutcomeAlreadySet   = errors.New("prediction outcome already set")
)
