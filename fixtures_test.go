package flatgeobuf

import (
	"encoding/binary"
	"testing"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/stretchr/testify/require"

	"github.com/flatgeobuf-go/rangereader/flat"
	"github.com/flatgeobuf-go/rangereader/packedrtree"
)

// buildPointFeature encodes a single Point-geometry feature with no
// properties, returning the raw (non-size-prefixed) FlatBuffers bytes
// that go after a feature's 4-byte length prefix in the data section.
func buildPointFeature(t *testing.T, x, y float64) []byte {
	t.Helper()
	b := flatbuffers.NewBuilder(64)

	xy := flat.GeometryStartXyVector(b, 2)
	b.PrependFloat64(y)
	b.PrependFloat64(x)
	xyOff := b.EndVector(2)

	flat.GeometryStart(b)
	flat.GeometryAddXy(b, xyOff)
	flat.GeometryAddType(b, flat.GeometryTypePoint)
	geomOff := flat.GeometryEnd(b)

	flat.FeatureStart(b)
	flat.FeatureAddGeometry(b, geomOff)
	featOff := flat.FeatureEnd(b)

	b.Finish(featOff)
	return b.FinishedBytes()
}

// buildHeader encodes a Header table declaring featuresCount Point
// features indexed with the given node size.
func buildHeader(t *testing.T, featuresCount uint64, nodeSize uint16) []byte {
	t.Helper()
	b := flatbuffers.NewBuilder(64)

	title := b.CreateString("fixture")

	flat.HeaderStart(b)
	flat.HeaderAddTitle(b, title)
	flat.HeaderAddGeometryType(b, flat.GeometryTypePoint)
	flat.HeaderAddFeaturesCount(b, featuresCount)
	flat.HeaderAddIndexNodeSize(b, nodeSize)
	hdrOff := flat.HeaderEnd(b)

	b.Finish(hdrOff)
	return b.FinishedBytes()
}

// buildFGB synthesizes a complete, valid FlatGeobuf byte stream
// containing one Point feature per coordinate pair in points, indexed
// with a packed Hilbert R-tree of the given node size. Features are
// physically stored in Hilbert order, as the format requires.
func buildFGB(t *testing.T, points [][2]float64, nodeSize uint16) []byte {
	t.Helper()
	require.NotEmpty(t, points)

	featureBytes := make([][]byte, len(points))
	refs := make([]packedrtree.Ref, len(points))
	for i, p := range points {
		featureBytes[i] = buildPointFeature(t, p[0], p[1])
		refs[i] = packedrtree.Ref{
			Box:    packedrtree.Box{XMin: p[0], YMin: p[1], XMax: p[0], YMax: p[1]},
			Offset: int64(i), // provisional: original index, fixed up below
		}
	}

	bounds := packedrtree.EmptyBox
	for i := range refs {
		bounds.Expand(&refs[i].Box)
	}
	packedrtree.HilbertSort(refs, bounds)

	var data []byte
	for i := range refs {
		origIdx := refs[i].Offset
		fb := featureBytes[origIdx]
		refs[i].Offset = int64(len(data))

		var lengthPrefix [4]byte
		binary.LittleEndian.PutUint32(lengthPrefix[:], uint32(len(fb)))
		data = append(data, lengthPrefix[:]...)
		data = append(data, fb...)
	}

	tree, err := packedrtree.New(refs, nodeSize)
	require.NoError(t, err)
	var treeBuf []byte
	{
		w := &byteSliceWriter{}
		_, err := tree.Marshal(w)
		require.NoError(t, err)
		treeBuf = w.buf
	}

	header := buildHeader(t, uint64(len(points)), nodeSize)

	var out []byte
	out = append(out, magic[:]...)
	var headerLength [4]byte
	binary.LittleEndian.PutUint32(headerLength[:], uint32(len(header)))
	out = append(out, headerLength[:]...)
	out = append(out, header...)
	out = append(out, treeBuf...)
	out = append(out, data...)
	return out
}

// buildFGBNoIndex synthesizes a FlatGeobuf byte stream with
// IndexNodeSize 0: no packed R-tree, features stored in the given
// order with no Hilbert-sort requirement.
func buildFGBNoIndex(t *testing.T, points [][2]float64) []byte {
	t.Helper()
	require.NotEmpty(t, points)

	var data []byte
	for _, p := range points {
		fb := buildPointFeature(t, p[0], p[1])
		var lengthPrefix [4]byte
		binary.LittleEndian.PutUint32(lengthPrefix[:], uint32(len(fb)))
		data = append(data, lengthPrefix[:]...)
		data = append(data, fb...)
	}

	header := buildHeader(t, uint64(len(points)), 0)

	var out []byte
	out = append(out, magic[:]...)
	var headerLength [4]byte
	binary.LittleEndian.PutUint32(headerLength[:], uint32(len(header)))
	out = append(out, headerLength[:]...)
	out = append(out, header...)
	out = append(out, data...)
	return out
}

// byteSliceWriter is a minimal io.Writer collecting bytes in memory,
// used only to capture PackedRTree.Marshal's output into a fixture.
type byteSliceWriter struct {
	buf []byte
}

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
