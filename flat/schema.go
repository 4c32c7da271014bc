// Copyright 2023 The flatgeobuf (Go) Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package flat

// Schema describes a property column list, as satisfied by both
// *Header and *Feature. Code that formats or decodes feature
// properties accepts a Schema so it can work against either a
// Feature's own embedded columns or a Header's file-wide columns.
type Schema interface {
	ColumnsLength() int
	Columns(obj *Column, j int) bool
}
