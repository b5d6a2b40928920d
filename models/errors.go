package models

import "fmt"

// MinCandles is the minimum series length Engine.Analyze accepts.
const MinCandles = 30

// InsufficientDataError is returned when a candle series is too short to
// analyze. The caller decides the fallback (usually: skip the cycle).
type InsufficientDataError struct {
	Got  int
	Want int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient candle data: got %d, need at least %d", e.Got, e.Want)
}
