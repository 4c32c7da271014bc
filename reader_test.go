package flatgeobuf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatgeobuf-go/rangereader/packedrtree"
)

var fixturePoints = [][2]float64{
	{-122.42, 37.77}, // San Francisco
	{-87.65, 41.85},  // Chicago
	{2.35, 48.86},    // Paris
	{139.69, 35.69},  // Tokyo
	{151.21, -33.87}, // Sydney
	{-0.13, 51.51},   // London
}

type memSource struct {
	buf []byte
}

func (s *memSource) FetchRange(_ context.Context, offset, length int64) ([]byte, error) {
	if offset < 0 || offset >= int64(len(s.buf)) {
		return nil, fmt.Errorf("memSource: range out of bounds: %w", io.EOF)
	}
	end := offset + length
	if end > int64(len(s.buf)) {
		end = int64(len(s.buf))
	}
	return s.buf[offset:end], nil
}

func (s *memSource) Close() error { return nil }

func openFixture(t *testing.T, points [][2]float64, nodeSize uint16, cfg Config) *Reader {
	t.Helper()
	buf := buildFGB(t, points, nodeSize)
	r, err := Open(context.Background(), &memSource{buf: buf}, cfg)
	require.NoError(t, err)
	return r
}

func TestOpen_HeaderMetadata(t *testing.T) {
	r := openFixture(t, fixturePoints, 4, DefaultConfig())
	defer r.Close()

	hdr := r.Header()
	assert.Equal(t, uint64(len(fixturePoints)), hdr.FeaturesCount)
	assert.Equal(t, uint16(4), hdr.IndexNodeSize)
	assert.Equal(t, "fixture", hdr.Title)
}

func TestSelect_WorldBox_ReturnsEveryFeature(t *testing.T) {
	r := openFixture(t, fixturePoints, 4, DefaultConfig())
	defer r.Close()

	world := packedrtree.Box{XMin: -180, YMin: -90, XMax: 180, YMax: 90}
	var got int
	for feat, err := range r.Select(context.Background(), world) {
		require.NoError(t, err)
		require.NotNil(t, feat)
		got++
	}
	assert.Equal(t, len(fixturePoints), got)
}

func TestSelect_NarrowBox_ReturnsOnlyMatches(t *testing.T) {
	r := openFixture(t, fixturePoints, 4, DefaultConfig())
	defer r.Close()

	// Only London is near this box.
	box := packedrtree.Box{XMin: -1, YMin: 51, XMax: 1, YMax: 52}
	var bounds []packedrtree.Box
	for feat, err := range r.Select(context.Background(), box) {
		require.NoError(t, err)
		geom := feat.Geometry(nil)
		require.NotNil(t, geom)
		bounds = append(bounds, geom.Bounds())
	}
	require.Len(t, bounds, 1)
	assert.InDelta(t, -0.13, bounds[0].XMin, 1e-9)
	assert.InDelta(t, 51.51, bounds[0].YMin, 1e-9)
}

func TestSelect_EmptyBox_ReturnsNothing(t *testing.T) {
	r := openFixture(t, fixturePoints, 4, DefaultConfig())
	defer r.Close()

	var got int
	for _, err := range r.Select(context.Background(), packedrtree.EmptyBox) {
		require.NoError(t, err)
		got++
	}
	assert.Equal(t, 0, got)
}

func TestSelectConcurrent_MatchesSelect(t *testing.T) {
	r := openFixture(t, fixturePoints, 2, DefaultConfig())
	defer r.Close()

	world := packedrtree.Box{XMin: math.Inf(-1), YMin: math.Inf(-1), XMax: math.Inf(1), YMax: math.Inf(1)}
	var got int
	for feat, err := range r.SelectConcurrent(context.Background(), world) {
		require.NoError(t, err)
		require.NotNil(t, feat)
		got++
	}
	assert.Equal(t, len(fixturePoints), got)
}

func TestSelect_NoIndex_LinearScan(t *testing.T) {
	buf := buildFGBNoIndex(t, fixturePoints)
	r, err := Open(context.Background(), &memSource{buf: buf}, DefaultConfig())
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint16(0), r.Header().IndexNodeSize)

	world := packedrtree.Box{XMin: -180, YMin: -90, XMax: 180, YMax: 90}
	var got int
	for feat, err := range r.Select(context.Background(), world) {
		require.NoError(t, err)
		require.NotNil(t, feat)
		got++
	}
	assert.Equal(t, len(fixturePoints), got)
}

func TestOpen_RejectsBadMagic(t *testing.T) {
	buf := buildFGB(t, fixturePoints, 4)
	buf[0] = 0x00
	_, err := Open(context.Background(), &memSource{buf: buf}, DefaultConfig())
	require.Error(t, err)
	var fgbErr *Error
	require.ErrorAs(t, err, &fgbErr)
	assert.Equal(t, NotAFlatGeobuf, fgbErr.Kind)
}

func TestOpen_OverHTTP(t *testing.T) {
	buf := buildFGB(t, fixturePoints, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.ServeContent(w, req, "fixture.fgb", time.Time{}, bytes.NewReader(buf))
	}))
	defer srv.Close()

	r, err := OpenHTTP(context.Background(), srv.URL, srv.Client(), DefaultConfig())
	require.NoError(t, err)
	defer r.Close()

	world := packedrtree.Box{XMin: -180, YMin: -90, XMax: 180, YMax: 90}
	var got int
	for feat, err := range r.Select(context.Background(), world) {
		require.NoError(t, err)
		require.NotNil(t, feat)
		got++
	}
	assert.Equal(t, len(fixturePoints), got)
}

func TestConfig_ValidateRejectsNegativeThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtraRequestThreshold = -1
	err := cfg.Validate()
	require.Error(t, err)
	var fgbErr *Error
	assert.False(t, errors.As(err, &fgbErr), "Validate's error must be a plain error, not a Kind-tagged Error")
}

func TestReader_SelectAfterClose(t *testing.T) {
	r := openFixture(t, fixturePoints, 4, DefaultConfig())
	require.NoError(t, r.Close())

	for _, err := range r.Select(context.Background(), packedrtree.EmptyBox) {
		require.Error(t, err)
		return
	}
	t.Fatal("expected at least one yielded error after Close")
}
