// Copyright 2023 The flatgeobuf (Go) Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package packedrtree

import (
	"bytes"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hilbertSortedWithOffsets Hilbert-sorts refs and then assigns
// sequentially increasing Offset values in that order, mimicking how a
// real FlatGeobuf data section is laid out: features are stored in the
// same order their references appear in the index.
func hilbertSortedWithOffsets(refs []Ref, featureLen int64) []Ref {
	sorted := make([]Ref, len(refs))
	copy(sorted, refs)
	bounds := EmptyBox
	for i := range sorted {
		bounds.Expand(&sorted[i].Box)
	}
	HilbertSort(sorted, bounds)
	for i := range sorted {
		sorted[i].Offset = int64(i) * featureLen
	}
	return sorted
}

// marshalTree builds a PackedRTree from already Hilbert-sorted refs and
// returns its raw little-endian node bytes, the same layout a
// FlatGeobuf index section would have on disk.
func marshalTree(t *testing.T, sorted []Ref, nodeSize uint16) []byte {
	t.Helper()
	prt, err := New(sorted, nodeSize)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = prt.Marshal(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func randomRefs(n int, seed int64) []Ref {
	r := rand.New(rand.NewSource(seed))
	refs := make([]Ref, n)
	for i := range refs {
		x := r.Float64() * 100
		y := r.Float64() * 100
		refs[i] = Ref{
			Box: Box{XMin: x, YMin: y, XMax: x + 1, YMax: y + 1},
		}
	}
	return refs
}

func collectStream(t *testing.T, numRefs int, nodeSize uint16, box Box, threshold int64, raw []byte) Results {
	t.Helper()
	var calls int
	reader := func(byteOffset, byteLength int64) ([]byte, error) {
		calls++
		require.Less(t, calls, 10000, "runaway StreamSearch loop")
		require.GreaterOrEqual(t, len(raw), int(byteOffset+byteLength))
		return raw[byteOffset : byteOffset+byteLength], nil
	}
	var out Results
	for res, err := range StreamSearch(numRefs, nodeSize, box, threshold, reader) {
		require.NoError(t, err)
		out = append(out, Result{Offset: res.Offset, RefIndex: res.RefIndex})
	}
	return out
}

func TestStreamSearch_AgreesWithSearch(t *testing.T) {
	sorted := hilbertSortedWithOffsets(randomRefs(500, 42), 100)
	nodeSize := uint16(16)
	raw := marshalTree(t, sorted, nodeSize)

	prt, err := New(sorted, nodeSize)
	require.NoError(t, err)

	queries := []Box{
		{XMin: 10, YMin: 10, XMax: 20, YMax: 20},
		{XMin: 0, YMin: 0, XMax: 100, YMax: 100},
		{XMin: 99, YMin: 99, XMax: 200, YMax: 200},
		{XMin: -5, YMin: -5, XMax: -1, YMax: -1},
	}

	for _, q := range queries {
		want := prt.Search(q)
		sort.Sort(want)

		for _, threshold := range []int64{0, 40, 4096} {
			got := collectStream(t, len(sorted), nodeSize, q, threshold, raw)
			sort.Sort(got)
			assert.Equal(t, want, got, "threshold=%d", threshold)
		}
	}
}

func TestStreamSearch_FewerFetchesWithCoalescing(t *testing.T) {
	sorted := hilbertSortedWithOffsets(randomRefs(2000, 7), 100)
	nodeSize := uint16(16)
	raw := marshalTree(t, sorted, nodeSize)

	box := Box{XMin: 0, YMin: 0, XMax: 100, YMax: 100} // whole-tree query

	count := func(threshold int64) int {
		var calls int
		reader := func(byteOffset, byteLength int64) ([]byte, error) {
			calls++
			return raw[byteOffset : byteOffset+byteLength], nil
		}
		for _, err := range StreamSearch(len(sorted), nodeSize, box, threshold, reader) {
			require.NoError(t, err)
		}
		return calls
	}

	noCoalesce := count(0)
	coalesced := count(1 << 20)
	assert.Less(t, coalesced, noCoalesce)
}

func TestStreamSearch_LengthInference(t *testing.T) {
	sorted := hilbertSortedWithOffsets(randomRefs(50, 11), 37)
	nodeSize := uint16(8)
	raw := marshalTree(t, sorted, nodeSize)

	box := Box{XMin: -1000, YMin: -1000, XMax: 1000, YMax: 1000} // matches everything
	var results []StreamResult
	reader := func(byteOffset, byteLength int64) ([]byte, error) {
		return raw[byteOffset : byteOffset+byteLength], nil
	}
	for res, err := range StreamSearch(len(sorted), nodeSize, box, 0, reader) {
		require.NoError(t, err)
		results = append(results, res)
	}
	require.Len(t, results, len(sorted))

	var sawUnknown int
	for _, res := range results {
		if res.Length == -1 {
			sawUnknown++
			continue
		}
		assert.Equal(t, int64(37), res.Length)
	}
	assert.Equal(t, 1, sawUnknown, "exactly the last feature in Hilbert order should have unknown length")
}

func TestStreamSearch_PanicsOnNegativeThreshold(t *testing.T) {
	sorted := hilbertSortedWithOffsets(randomRefs(4, 1), 10)
	raw := marshalTree(t, sorted, 4)
	assert.Panics(t, func() {
		for range StreamSearch(len(sorted), 4, EmptyBox, -1, func(int64, int64) ([]byte, error) {
			return raw, nil
		}) {
		}
	})
}
