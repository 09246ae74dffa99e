package decimalx

// Timestamp is milliseconds since the Unix epoch. The core never reads the
// wall clock (spec.md §5): every Timestamp in play enters through a command
// argument (OracleTick, Tick, or an order's supplied CreatedAt).
type Timestamp int64

// ElapsedMs returns t - earlier, in milliseconds. If t precedes earlier it
// returns 0 ("no time has passed") rather than a negative value or an error
// (commands are expected to arrive in non-decreasing time order, but the
// core does not enforce it beyond this clamp).
func (t Timestamp) ElapsedMs(earlier Timestamp) int64 {
	d := int64(t) - int64(earlier)
	if d < 0 {
		return 0
	}
	return d
}

func (t Timestamp) Before(o Timestamp) bool { return t < o }
func (t Timestamp) After(o Timestamp) bool  { return t > o }
