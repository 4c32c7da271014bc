package flatgeobuf

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/flatgeobuf-go/rangereader/flat"
	"github.com/flatgeobuf-go/rangereader/packedrtree"
	"github.com/flatgeobuf-go/rangereader/rangeio"
)

const (
	// assumedHeaderLength is a generous over-estimate of header_length
	// used only to size the very first read-ahead window, so Open
	// usually needs just one round trip to see magic, header_length,
	// the whole header, and the first few index levels.
	assumedHeaderLength = 2024
	// assumedBranchingFactor mirrors the default index_node_size, used
	// only for sizing the same read-ahead window above.
	assumedBranchingFactor = 16
	// assumedIndexLevels is how many top levels of the index the
	// initial window tries to cover.
	assumedIndexLevels = 3
	// nodeItemByteLen is the wire size of one packed R-tree node: four
	// float64 envelope coordinates plus one int64 offset/child index.
	nodeItemByteLen = 8*4 + 8
)

func assumedIndexLength() int64 {
	var n int64
	w := int64(1)
	for i := 0; i < assumedIndexLevels; i++ {
		n += w * nodeItemByteLen
		w *= assumedBranchingFactor
	}
	return n
}

// Reader reads features out of a FlatGeobuf source: a local seekable
// file or a remote HTTP endpoint that honors byte-range requests.
// A Reader is read-only; it never writes or rewrites the header,
// index, or feature sections.
//
// A Reader's Header and index geometry are safe for concurrent use
// once Open returns. Select is not safe to call concurrently with
// itself on the same Reader; use SelectConcurrent, or construct one
// Reader per goroutine, for concurrent queries.
type Reader struct {
	cfg    Config
	client *rangeio.BufferedClient

	header       HeaderMeta
	headerBytes  []byte
	headerLength int64
	indexLength  int64

	mu     sync.Mutex
	closed bool
}

// Open opens a FlatGeobuf source, reading and validating the magic
// number, header, and index metadata (but not the index itself, which
// Select reads lazily). The returned Reader owns source and closes it
// when Close is called.
func Open(ctx context.Context, source rangeio.Source, cfg Config) (*Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := rangeio.NewBufferedClient(source, cfg.logger())

	minReqLength := int64(assumedHeaderLength) + assumedIndexLength()

	magicAndLength, err := client.GetRange(ctx, 0, magicLen+4, minReqLength, "header")
	if err != nil {
		return nil, newErr("Open", TransportError, err)
	}

	m := magicAndLength[:magicLen]
	if m[0] != magic[0] || m[1] != magic[1] || m[2] != magic[2] {
		return nil, newErr("Open", NotAFlatGeobuf, textErr("magic prefix mismatch"))
	}

	headerLength := int64(binary.LittleEndian.Uint32(magicAndLength[magicLen:]))
	if headerLength < headerMinLen || headerLength > headerMaxLen {
		return nil, newErr("Open", InvalidHeaderSize, fmtErr("header_length %d out of range [%d, %d]", headerLength, headerMinLen, headerMaxLen))
	}

	headerBytes, err := client.GetRange(ctx, magicLen+4, headerLength, minReqLength, "header")
	if err != nil {
		return nil, newErr("Open", TransportError, err)
	}
	meta, err := decodeHeader(headerBytes)
	if err != nil {
		return nil, newErr("Open", CorruptIndex, err)
	}

	var indexLength int64
	switch {
	case meta.IndexNodeSize > 0 && meta.FeaturesCount > 0:
		indexLength, err = packedrtree.Size(int(meta.FeaturesCount), meta.IndexNodeSize)
		if err != nil {
			return nil, newErr("Open", CorruptIndex, err)
		}
	case meta.IndexNodeSize > 0 && meta.FeaturesCount == 0:
		// An index is declared but there are no features for it to
		// index: there is no valid tree this could describe.
		return nil, newErr("Open", CorruptIndex, textErr("index_node_size > 0 but features_count == 0"))
	}

	client.LogUsage("header+index")

	return &Reader{
		cfg:          cfg,
		client:       client,
		header:       meta,
		headerBytes:  headerBytes,
		headerLength: headerLength,
		indexLength:  indexLength,
	}, nil
}

// OpenFile opens path as a local, seekable FlatGeobuf source.
func OpenFile(ctx context.Context, path string, cfg Config) (*Reader, error) {
	src, err := rangeio.OpenFileSource(path)
	if err != nil {
		return nil, newErr("OpenFile", TransportError, err)
	}
	r, err := Open(ctx, src, cfg)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return r, nil
}

// OpenHTTP opens url as a remote FlatGeobuf source. If client is nil,
// http.DefaultClient is used.
func OpenHTTP(ctx context.Context, url string, client rangeio.HTTPClient, cfg Config) (*Reader, error) {
	src := rangeio.NewHTTPSource(url, client)
	return Open(ctx, src, cfg)
}

// Header returns the file's decoded header metadata.
func (r *Reader) Header() HeaderMeta {
	return r.header
}

// Schema returns the file-wide column schema declared by the Header,
// for callers (e.g. package geojson) decoding property bytes from a
// feature that has no columns of its own. The returned value aliases
// r's retained header bytes and is valid for the lifetime of r; its
// underlying table was already validated once by Open, so unlike
// readFeature this accessor does not re-guard against a panic.
func (r *Reader) Schema() flat.Schema {
	return flat.GetRootAsHeader(r.headerBytes, 0)
}

// lengthBeforeTree is the byte offset of the start of the index
// section (or, if there is no index, the feature data section)
// relative to the start of the source.
func (r *Reader) lengthBeforeTree() int64 {
	return magicLen + 4 + r.headerLength
}

// lengthBeforeFeatures is the byte offset of the start of the feature
// data section relative to the start of the source.
func (r *Reader) lengthBeforeFeatures() int64 {
	return r.lengthBeforeTree() + r.indexLength
}

// Close closes the underlying source. Calling Select or
// SelectConcurrent after Close returns an error.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}

func (r *Reader) checkOpen(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return newErr(op, TransportError, textErr("reader is closed"))
	}
	return nil
}

// Select returns a lazy sequence of every feature whose index entry
// intersects box, in the order the underlying index traversal and
// batched range fetches produce them (tree order, not ascending
// offset). packedrtree.EmptyBox never matches; to scan
// every feature regardless of geometry, construct a Box spanning
// ±math.Inf.
//
// If the file has no index (IndexNodeSize == 0),
// Select instead scans every feature linearly, in storage order,
// filtering by box at the geometry-decode stage. Select is not safe to
// call concurrently with itself or with another Select/SelectConcurrent
// call on the same Reader.
func (r *Reader) Select(ctx context.Context, box packedrtree.Box) func(func(*flat.Feature, error) bool) {
	return func(yield func(*flat.Feature, error) bool) {
		if err := r.checkOpen("Select"); err != nil {
			yield(nil, err)
			return
		}
		if r.indexLength == 0 {
			r.selectLinear(ctx, box, yield)
			return
		}
		r.selectIndexed(ctx, box, yield)
	}
}

func (r *Reader) selectLinear(ctx context.Context, box packedrtree.Box, yield func(*flat.Feature, error) bool) {
	offset := int64(0)
	for {
		feat, consumed, err := readFeature(ctx, r.client, r.lengthBeforeFeatures(), offset, 0)
		if err != nil {
			// Running out of room while fetching a length prefix means
			// there simply are no more features; any other failure,
			// including running out of room partway through a feature's
			// body (a truncated record), must be surfaced.
			var fgbErr *Error
			if errors.As(err, &fgbErr) && fgbErr.Kind == TransportError && errors.Is(err, io.EOF) {
				return
			}
			yield(nil, err)
			return
		}
		offset += consumed

		if geom := feat.Geometry(nil); geom != nil {
			b := geom.Bounds()
			if !b.Intersects(&box) {
				continue
			}
		}
		if !yield(feat, nil) {
			return
		}
	}
}

// searchIndex drives StreamSearch to completion and returns every
// matching leaf, grouped into fetch batches by gap-coalescing.
func (r *Reader) searchIndex(ctx context.Context, op string, box packedrtree.Box) ([][]featureRef, error) {
	lengthBeforeTree := r.lengthBeforeTree()
	readNode := func(byteOffset, byteLength int64) ([]byte, error) {
		return r.client.GetRange(ctx, lengthBeforeTree+byteOffset, byteLength, r.cfg.NodeReadMinLength, "index")
	}

	var results []packedrtree.StreamResult
	for res, err := range packedrtree.StreamSearch(int(r.header.FeaturesCount), r.header.IndexNodeSize, box, r.cfg.ExtraRequestThreshold, readNode) {
		if err != nil {
			return nil, newErr(op, CorruptIndex, err)
		}
		results = append(results, res)
	}
	r.client.LogUsage("header+index")

	return buildBatches(results, r.cfg.ExtraRequestThreshold), nil
}

func (r *Reader) selectIndexed(ctx context.Context, box packedrtree.Box, yield func(*flat.Feature, error) bool) {
	batches, err := r.searchIndex(ctx, "Select", box)
	if err != nil {
		yield(nil, err)
		return
	}
	lengthBeforeFeatures := r.lengthBeforeFeatures()

	for _, batch := range batches {
		batchClient := rangeio.NewBufferedClient(noCloseSource{r.client}, r.cfg.logger())
		features, err := readFeatureBatch(ctx, batchClient, lengthBeforeFeatures, batch)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, feat := range features {
			if !yield(feat, nil) {
				return
			}
		}
	}
}

// SelectConcurrent is like Select, but fetches every batch of
// features concurrently, one BufferedClient per worker sharing the
// same underlying Source. It waits for every batch to finish decoding
// before yielding anything, then yields in the same order Select
// would have; use Select instead if results are needed as they
// stream in rather than all the fetching done up front.
func (r *Reader) SelectConcurrent(ctx context.Context, box packedrtree.Box) func(func(*flat.Feature, error) bool) {
	return func(yield func(*flat.Feature, error) bool) {
		if err := r.checkOpen("SelectConcurrent"); err != nil {
			yield(nil, err)
			return
		}
		if r.indexLength == 0 {
			r.selectLinear(ctx, box, yield)
			return
		}

		batches, err := r.searchIndex(ctx, "SelectConcurrent", box)
		if err != nil {
			yield(nil, err)
			return
		}
		lengthBeforeFeatures := r.lengthBeforeFeatures()

		out := make([][]*flat.Feature, len(batches))

		g, gctx := errgroup.WithContext(ctx)
		for i, batch := range batches {
			i, batch := i, batch
			g.Go(func() error {
				batchClient := rangeio.NewBufferedClient(noCloseSource{r.client}, r.cfg.logger())
				features, err := readFeatureBatch(gctx, batchClient, lengthBeforeFeatures, batch)
				if err != nil {
					return err
				}
				out[i] = features
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			yield(nil, err)
			return
		}

		for _, features := range out {
			for _, feat := range features {
				if !yield(feat, nil) {
					return
				}
			}
		}
	}
}

// noCloseSource adapts the Reader's shared BufferedClient into a
// Source for a per-batch/per-worker BufferedClient. Its Close is a
// no-op, so closing that client doesn't close the Reader's shared
// underlying Source.
type noCloseSource struct {
	*rangeio.BufferedClient
}

func (s noCloseSource) FetchRange(ctx context.Context, offset, length int64) ([]byte, error) {
	buf, err := s.GetRange(ctx, offset, length, 0, "feature")
	return buf, err
}

func (s noCloseSource) Close() error {
	return nil
}
