package dedupe

// Option applies a configuration option to the in-memory Tracker.
type Option func(*memoryTracker)

// WithCapacity bounds how many IDs are remembered. Values <= 0 remove the bound.
func WithCapacity(n int) Option {
	return func(t *memoryTracker) {
		t.capacity = n
	}
}
