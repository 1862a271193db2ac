package doorlock

import "sync/atomic"

// Flag is the recognition-enabled switch. The scheduler reads it once per
// iteration; enrollment suspends it for its whole duration.
type Flag struct {
	v atomic.Bool
}

// NewFlag creates a flag with the given initial value.
func NewFlag(enabled bool) *Flag {
	f := &Flag{}
	f.v.Store(enabled)
	return f
}

// Enabled reports the current value.
func (f *Flag) Enabled() bool {
	return f.v.Load()
}

// Suspend clears the flag and returns a function that restores the value
// seen at the time of the call. Call the restore function exactly once,
// typically with defer.
func (f *Flag) Suspend() (restore func()) {
	prev := f.v.Swap(false)
	return func() { f.v.Store(prev) }
}
