package engine

// Clock hands out the attempt sequence numbers of one run.
//
// Attempts are stamped in attribution order, so sorting a report or its
// journal rows by seq reproduces the order in which outcomes arrived, even
// when several attempts share a wall-clock timestamp. A run is driven by a
// single goroutine and owns its clock.
type Clock struct {
	seq int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new sequence number.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}
