package flatgeobuf

import "github.com/flatgeobuf-go/rangereader/flat"

// ColumnMeta is a plain-value snapshot of one property column
// declared by a file's Header, decoupled from the FlatBuffers table
// it was decoded from.
type ColumnMeta struct {
	Name        string
	Type        flat.ColumnType
	Title       string
	Description string
	Width       int32
	Precision   int32
	Scale       int32
	Nullable    bool
	Unique      bool
	PrimaryKey  bool
}

// CrsMeta is a plain-value snapshot of a file's coordinate reference
// system declaration.
type CrsMeta struct {
	Org         string
	Code        int32
	Name        string
	Description string
	Wkt         string
	CodeString  string
}

// HeaderMeta is a plain-value snapshot of a file's Header, decoded
// once at Open time and retained for the lifetime of the Reader. Go
// strings copy out of the underlying buffer, so HeaderMeta stays
// valid after the header's FlatBuffers bytes are discarded.
type HeaderMeta struct {
	GeometryType  flat.GeometryType
	Columns       []ColumnMeta
	Envelope      []float64
	FeaturesCount uint64
	IndexNodeSize uint16
	Crs           *CrsMeta
	Title         string
	Description   string
	Metadata      string
}

// decodeHeader parses the FlatBuffers-encoded header section (the
// bytes between the header-length prefix and the index section) into
// a HeaderMeta.
func decodeHeader(buf []byte) (meta HeaderMeta, err error) {
	err = flat.Safe(func() error {
		h := flat.GetRootAsHeader(buf, 0)

		meta.FeaturesCount = h.FeaturesCount()
		meta.IndexNodeSize = h.IndexNodeSize()
		meta.GeometryType = h.GeometryType()
		meta.Title = string(h.Title())
		meta.Description = string(h.Description())
		meta.Metadata = string(h.Metadata())

		if n := h.EnvelopeLength(); n > 0 {
			meta.Envelope = make([]float64, n)
			for i := 0; i < n; i++ {
				meta.Envelope[i] = h.Envelope(i)
			}
		}

		if n := h.ColumnsLength(); n > 0 {
			meta.Columns = make([]ColumnMeta, n)
			var col flat.Column
			for i := 0; i < n; i++ {
				if !h.Columns(&col, i) {
					return fmtErr("column %d unexpectedly missing", i)
				}
				meta.Columns[i] = ColumnMeta{
					Name:        string(col.Name()),
					Type:        col.Type(),
					Title:       string(col.Title()),
					Description: string(col.Description()),
					Width:       col.Width(),
					Precision:   col.Precision(),
					Scale:       col.Scale(),
					Nullable:    col.Nullable(),
					Unique:      col.Unique(),
					PrimaryKey:  col.PrimaryKey(),
				}
			}
		}

		var crs flat.Crs
		if h.Crs(&crs) != nil {
			meta.Crs = &CrsMeta{
				Org:         string(crs.Org()),
				Code:        crs.Code(),
				Name:        string(crs.Name()),
				Description: string(crs.Description()),
				Wkt:         string(crs.Wkt()),
				CodeString:  string(crs.CodeString()),
			}
		}

		return nil
	})
	return
}
