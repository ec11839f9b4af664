package clock

import "time"

// Clock abstracts time.Now so services can be tested against a fixed point
// in time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
