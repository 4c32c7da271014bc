// Copyright 2023 The flatgeobuf (Go) Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package packedrtree

import (
	"encoding/binary"
	"math"
)

// A StreamResult is a single match yielded by StreamSearch.
type StreamResult struct {
	// Offset is the result feature's byte offset into the data
	// section.
	Offset int64
	// RefIndex is the index of the feature reference in Hilbert-sorted
	// order, as in Result.RefIndex.
	RefIndex int
	// Length is the feature's byte length as inferred from the start
	// offset of the next leaf node, or -1 if it could not be inferred
	// because this is the last feature in the file.
	Length int64
}

// ReadNodesFunc fetches raw little-endian index node bytes from the
// closed/open node index range [i, j), expressed as a byte range
// relative to the start of the index section. It is called by
// StreamSearch to lazily pull in only the parts of the index a search
// actually visits.
type ReadNodesFunc func(byteOffset, byteLength int64) ([]byte, error)

// A nodeRange is a pending, possibly-coalesced unit of search work: a
// contiguous run of sibling node indices at a given tree level that
// will be fetched together.
type nodeRange struct {
	level      int
	start, end int // closed/open interval of node indices
}

// StreamSearch searches a packed Hilbert R-Tree index for matches
// intersecting box, fetching index bytes on demand through read rather
// than requiring the whole index to be resident or seekable in one
// piece. It is the range-aware counterpart to PackedRTree.Search and
// Seek, intended for sources where every read incurs latency (e.g. an
// HTTP range request) and where adjacent fetches are worth merging.
//
// extraRequestThreshold is the number of excess bytes StreamSearch is
// willing to fetch-and-discard in order to merge two adjacent,
// same-level node ranges into a single read call instead of issuing two
// separate ones. A value of 0 disables coalescing; negative values
// panic.
//
// The returned iterator must be fully drained, or exited early via the
// standard range-over-func break, for any resources captured by read to
// be released in the expected order; StreamSearch itself holds no
// resources of its own. Match order follows tree traversal order, not
// ascending Offset.
func StreamSearch(numRefs int, nodeSize uint16, box Box, extraRequestThreshold int64, read ReadNodesFunc) func(func(StreamResult, error) bool) {
	if extraRequestThreshold < 0 {
		textPanic("extra request threshold must not be negative")
	}
	return func(yield func(StreamResult, error) bool) {
		validateParams(numRefs, nodeSize)
		levels, err := levelify(numRefs, int(nodeSize))
		if err != nil {
			yield(StreamResult{}, err)
			return
		}
		firstLeaf := levels[0].start
		extraNodes := int(extraRequestThreshold / int64(numNodeBytes))

		queue := []nodeRange{{level: len(levels) - 1, start: 0, end: 1}}

		for len(queue) > 0 {
			nr := queue[0]
			queue = queue[1:]

			isLeaf := nr.start >= firstLeaf
			levelBound := levels[nr.level].end
			nodeIdx := nr.end + int(nodeSize)
			if nodeIdx > levelBound {
				nodeIdx = levelBound
			}
			// Only [nr.start, visitEnd) belongs to the parents that
			// queued this range: nr.end is one past the last such
			// parent's first child, and a parent has at most nodeSize
			// children. Later nodes in the fetched window belong to other
			// ranges and are not searched here.
			visitEnd := nr.end - 1 + int(nodeSize)
			if visitEnd > levelBound {
				visitEnd = levelBound
			}
			var rangeEnd int
			if isLeaf && nodeIdx < levelBound {
				// Grab one extra leaf so the next feature's offset can
				// be used to infer this range's feature lengths.
				rangeEnd = nodeIdx + 1
			} else {
				rangeEnd = nodeIdx
			}

			buf, err := read(int64(nr.start)*int64(numNodeBytes), int64(rangeEnd-nr.start)*int64(numNodeBytes))
			if err != nil {
				yield(StreamResult{}, err)
				return
			}

			for idx := nr.start; idx < visitEnd; idx++ {
				off := (idx - nr.start) * numNodeBytes
				nodeBox := Box{
					XMin: math.Float64frombits(binary.LittleEndian.Uint64(buf[off+0:])),
					YMin: math.Float64frombits(binary.LittleEndian.Uint64(buf[off+8:])),
					XMax: math.Float64frombits(binary.LittleEndian.Uint64(buf[off+16:])),
					YMax: math.Float64frombits(binary.LittleEndian.Uint64(buf[off+24:])),
				}
				if !box.intersects(&nodeBox) {
					continue
				}
				childOffset := int64(binary.LittleEndian.Uint64(buf[off+32:]))

				if isLeaf {
					refIdx := idx - firstLeaf
					length := int64(-1)
					if refIdx < numRefs-1 && idx+1 < rangeEnd {
						nextOff := off + numNodeBytes
						nextOffset := int64(binary.LittleEndian.Uint64(buf[nextOff+32:]))
						length = nextOffset - childOffset
					}
					if !yield(StreamResult{Offset: childOffset, RefIndex: refIdx, Length: length}, nil) {
						return
					}
					continue
				}

				firstChild := int(childOffset)

				if len(queue) > 0 {
					tail := &queue[len(queue)-1]
					if tail.level == nr.level-1 && firstChild < tail.end+extraNodes {
						// Extend the tail so that firstChild is its last
						// first child; its children are then covered by
						// the nodeSize widening at pop time (see above).
						tail.end = firstChild + 1
						continue
					}
				}

				queue = append(queue, nodeRange{level: nr.level - 1, start: firstChild, end: firstChild + 1})
			}
		}
	}
}
