package flatgeobuf

import (
	"context"
	"encoding/binary"
	"errors"
	"io"

	"github.com/flatgeobuf-go/rangereader/flat"
	"github.com/flatgeobuf-go/rangereader/packedrtree"
	"github.com/flatgeobuf-go/rangereader/rangeio"
)

// featureRef is one feature's position in the data section, known
// either from the index (an exact length, computed as the gap to the
// next leaf) or as a placeholder (length 4) for a feature whose true
// length can only be discovered by reading its own length prefix,
// which happens for the final feature in the file since there is no
// following leaf to diff against.
type featureRef struct {
	offset int64
	length int64
}

// buildBatches groups a stream of index search results into runs of
// features close enough together, in byte-offset order, that fetching
// the whole run in one range request is cheaper than fetching each
// feature individually. Two consecutive features are placed in the
// same batch as long as the gap between them is within threshold;
// a larger gap starts a new batch.
func buildBatches(results []packedrtree.StreamResult, threshold int64) [][]featureRef {
	var batches [][]featureRef
	var current []featureRef

	for _, r := range results {
		length := r.Length
		if length <= 0 {
			// Last feature in the file: its length can't be inferred
			// from the index, so fetch just its length prefix first.
			length = 4
		}

		if len(current) == 0 {
			current = append(current, featureRef{offset: r.Offset, length: length})
			continue
		}

		prev := current[len(current)-1]
		gap := r.Offset - (prev.offset + prev.length)
		if gap > threshold {
			batches = append(batches, current)
			current = nil
		}
		current = append(current, featureRef{offset: r.Offset, length: length})
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// readFeatureBatch fetches and decodes every feature in batch using a
// single BufferedClient. The first feature's read primes the client's
// window with the whole batch's byte span, so every subsequent read
// in the batch is served from memory; the first read's min-length hint
// is zeroed out after use for that reason.
func readFeatureBatch(ctx context.Context, client *rangeio.BufferedClient, lengthBeforeFeatures int64, batch []featureRef) ([]*flat.Feature, error) {
	batchStart := batch[0].offset
	last := batch[len(batch)-1]
	batchSize := last.offset + last.length - batchStart

	minReqLength := batchSize
	features := make([]*flat.Feature, 0, len(batch))
	for _, ref := range batch {
		feat, _, err := readFeature(ctx, client, lengthBeforeFeatures, ref.offset, minReqLength)
		if err != nil {
			return nil, err
		}
		features = append(features, feat)
		minReqLength = 0
	}
	client.LogUsage("feature")
	return features, nil
}

// readFeature fetches and decodes a single feature record at
// featureOffset, a byte offset relative to the start of the data
// section, and also returns its byte length (4-byte prefix plus body)
// so a linear scan can advance past it. minReqLength hints how many
// bytes to prefetch beyond what this one call strictly needs, letting
// a caller prime the buffer for the reads that will immediately follow.
func readFeature(ctx context.Context, client *rangeio.BufferedClient, lengthBeforeFeatures, featureOffset, minReqLength int64) (*flat.Feature, int64, error) {
	offset := featureOffset + lengthBeforeFeatures

	lengthBytes, err := client.GetRange(ctx, offset, 4, minReqLength, "feature length")
	if err != nil {
		return nil, 0, newErr("readFeature", TransportError, err)
	}
	featureLength := int64(binary.LittleEndian.Uint32(lengthBytes))

	data, err := client.GetRange(ctx, offset+4, featureLength, minReqLength, "feature data")
	if err != nil {
		if errors.Is(err, io.EOF) {
			// The length prefix promised featureLength more bytes; running
			// out before that is a truncated record, not a clean end of
			// data, so this is not the same condition a linear scan treats
			// as "no more features".
			return nil, 0, newErr("readFeature", CorruptFeature, fmtErr("feature body truncated at offset %d: %w", offset+4, err))
		}
		return nil, 0, newErr("readFeature", TransportError, err)
	}

	var feat *flat.Feature
	if err := flat.Safe(func() error {
		feat = flat.GetRootAsFeature(data, 0)
		return nil
	}); err != nil {
		return nil, 0, newErr("readFeature", CorruptFeature, err)
	}
	return feat, 4 + featureLength, nil
}
