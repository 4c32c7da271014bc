package flatgeobuf

import "go.uber.org/zap"

// DefaultExtraRequestThreshold is the number of excess index bytes
// StreamSearch is willing to fetch-and-discard in order to coalesce
// two adjacent node-range reads into one, matching the upstream
// reader's default.
const DefaultExtraRequestThreshold = 256 * 1024

// Config controls the range-fetch tuning knobs used by Open and
// Select. It is a plain, explicitly-passed struct rather than a
// process-wide global: a reader embedded in a server handling
// concurrent requests against files with different access patterns
// has no single right answer for these knobs, so this package never
// assumes a shared default the way the Config it is grounded on does.
type Config struct {
	// ExtraRequestThreshold is the byte budget for coalescing adjacent
	// index-node and feature reads into a single range request. Zero
	// disables merging of index-node ranges; features that are directly
	// adjacent in the data section still share one batch. Must not be
	// negative.
	ExtraRequestThreshold int64
	// NodeReadMinLength is the minimum number of bytes to request for
	// any single index-node read, letting a caller trade a larger
	// read-ahead window for fewer round trips when the underlying
	// Source has high per-request latency. Zero means "no minimum".
	NodeReadMinLength int64
	// Logger receives debug-level range-fetch and buffer-hit events
	// and an info-level usage-efficiency report per read phase. A nil
	// Logger is treated as zap.NewNop().
	Logger *zap.Logger
}

// DefaultConfig returns a Config with ExtraRequestThreshold set to
// DefaultExtraRequestThreshold and all other fields zero.
func DefaultConfig() Config {
	return Config{ExtraRequestThreshold: DefaultExtraRequestThreshold}
}

// Validate reports an error if c's fields are individually
// nonsensical (e.g. a negative threshold). It does not, and cannot,
// validate fields against a file's contents.
func (c Config) Validate() error {
	if c.ExtraRequestThreshold < 0 {
		return fmtErr("ExtraRequestThreshold cannot be negative, got %d", c.ExtraRequestThreshold)
	}
	if c.NodeReadMinLength < 0 {
		return fmtErr("NodeReadMinLength cannot be negative, got %d", c.NodeReadMinLength)
	}
	return nil
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
