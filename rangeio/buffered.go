// Copyright 2023 The flatgeobuf (Go) Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package rangeio

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// BufferedClient layers a single replaceable read-ahead window over a
// Source. A caller asking for a range already covered by the current
// window gets served from memory; a range outside the window triggers
// one fetch of max(length, minReqLength) bytes, which becomes the new
// window.
//
// A mutex guards every method, so concurrent calls are safe, but
// concurrent callers replace each other's window and so lose the
// benefit of buffering. SelectConcurrent therefore gives each worker
// its own BufferedClient, layered over the Reader's shared one.
type BufferedClient struct {
	source Source
	log    *zap.Logger

	mu sync.Mutex

	buf  []byte
	head int64

	bytesEverUsed    int64
	bytesEverFetched int64
}

// NewBufferedClient creates a BufferedClient over source. A nil
// logger is replaced with zap.NewNop(), so logging is always safe to
// call.
func NewBufferedClient(source Source, log *zap.Logger) *BufferedClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &BufferedClient{source: source, log: log}
}

// GetRange returns length bytes starting at start, fetching
// max(length, minReqLength) bytes from the underlying Source and
// caching them as the new window if [start, start+length) isn't
// already covered by the current window. purpose labels the call for
// debug logging (e.g. "header", "index", "feature").
func (c *BufferedClient) GetRange(ctx context.Context, start, length, minReqLength int64, purpose string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bytesEverUsed += length

	startI := start - c.head
	endI := startI + length
	if startI >= 0 && endI <= int64(len(c.buf)) {
		c.log.Debug("rangeio: served from buffer", zap.String("purpose", purpose), zap.Int64("start", start), zap.Int64("length", length))
		return c.buf[startI:endI], nil
	}

	lengthToFetch := length
	if minReqLength > lengthToFetch {
		lengthToFetch = minReqLength
	}

	c.log.Debug("rangeio: fetching range",
		zap.String("purpose", purpose),
		zap.Int64("start", start),
		zap.Int64("requested", length),
		zap.Int64("fetched", lengthToFetch),
	)

	buf, err := c.source.FetchRange(ctx, start, lengthToFetch)
	if err != nil {
		return nil, err
	}
	c.bytesEverFetched += int64(len(buf))
	c.buf = buf
	c.head = start

	// The underlying Source is allowed to return fewer bytes than
	// lengthToFetch when the read-ahead hint overshoots the end of the
	// object, but it must still cover what this call actually needs.
	if int64(len(buf)) < length {
		return nil, fmt.Errorf("rangeio: source returned %d bytes for a %d-byte request at offset %d", len(buf), length, start)
	}

	return c.buf[:length], nil
}

// LogUsage emits an info-level summary of how much of what was
// fetched was actually used, labeled by purpose (e.g. "header",
// "index"). It mirrors the upstream reader's per-phase efficiency
// report.
func (c *BufferedClient) LogUsage(purpose string) {
	c.mu.Lock()
	used, fetched := c.bytesEverUsed, c.bytesEverFetched
	c.mu.Unlock()

	var efficiency float64
	if fetched > 0 {
		efficiency = 100 * float64(used) / float64(fetched)
	}
	c.log.Info("rangeio: byte usage",
		zap.String("purpose", purpose),
		zap.String("used", humanize.Bytes(uint64(used))),
		zap.String("fetched", humanize.Bytes(uint64(fetched))),
		zap.Float64("efficiencyPct", efficiency),
	)
}

// BytesEverUsed returns the cumulative number of bytes callers have
// requested from GetRange.
func (c *BufferedClient) BytesEverUsed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesEverUsed
}

// BytesEverFetched returns the cumulative number of bytes actually
// pulled from the underlying Source, including read-ahead bytes never
// requested by a caller.
func (c *BufferedClient) BytesEverFetched() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesEverFetched
}

// Close closes the underlying Source.
func (c *BufferedClient) Close() error {
	return c.source.Close()
}
