// Copyright 2025 The cssm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/wothmag07/cssm/core"
)

// StoredDocument is a document as persisted by embedded backends.
type StoredDocument struct {
	ID       core.ID
	Content  string
	Metadata map[string]any
	Vector   []float32
}

// Metadata value kinds on the wire.
const (
	kindString = iota
	kindFloat
	kindInt
	kindBool
	kindJSON
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(id), nil
}

// MarshalDocument serializes a StoredDocument to bytes.
// Metadata keys are written in sorted order so equal documents encode identically.
func MarshalDocument(doc *StoredDocument) ([]byte, error) {
	keys := make([]string, 0, len(doc.Metadata))
	for k := range doc.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	values := make([]metaValue, len(keys))
	for i, k := range keys {
		v, err := encodeMetaValue(doc.Metadata[k])
		if err != nil {
			return nil, fmt.Errorf("%w: metadata %q: %w", ErrSerializationFailed, k, err)
		}
		values[i] = v
	}

	size := varint.Uint64.Size(uint64(doc.ID)) +
		ord.String.Size(doc.Content) +
		varint.Int.Size(len(keys))
	for i, k := range keys {
		size += ord.String.Size(k) + values[i].size()
	}
	size += varint.Int.Size(len(doc.Vector))
	for _, f := range doc.Vector {
		size += raw.Float32.Size(f)
	}

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(doc.ID), buf)
	n += ord.String.Marshal(doc.Content, buf[n:])
	n += varint.Int.Marshal(len(keys), buf[n:])
	for i, k := range keys {
		n += ord.String.Marshal(k, buf[n:])
		n += values[i].marshal(buf[n:])
	}
	n += varint.Int.Marshal(len(doc.Vector), buf[n:])
	for _, f := range doc.Vector {
		n += raw.Float32.Marshal(f, buf[n:])
	}
	return buf[:n], nil
}

// UnmarshalDocument deserializes a StoredDocument from bytes.
func UnmarshalDocument(data []byte) (*StoredDocument, error) {
	d := decoder{data: data}

	doc := &StoredDocument{}
	doc.ID = core.ID(decode(&d, varint.Uint64.Unmarshal))
	doc.Content = decode(&d, ord.String.Unmarshal)

	count := d.length()
	if count > 0 {
		doc.Metadata = make(map[string]any, count)
	}
	for i := 0; i < count && d.err == nil; i++ {
		key := decode(&d, ord.String.Unmarshal)
		doc.Metadata[key] = d.metaValue()
	}

	dim := d.length()
	if dim > 0 {
		doc.Vector = make([]float32, dim)
	}
	for i := 0; i < dim && d.err == nil; i++ {
		doc.Vector[i] = decode(&d, raw.Float32.Unmarshal)
	}

	if d.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, d.err)
	}
	return doc, nil
}

// metaValue is a metadata value ready to be written.
type metaValue struct {
	kind int
	s    string
	f    float64
	i    int64
	b    bool
}

func encodeMetaValue(v any) (metaValue, error) {
	switch x := v.(type) {
	case string:
		return metaValue{kind: kindString, s: x}, nil
	case float64:
		return metaValue{kind: kindFloat, f: x}, nil
	case float32:
		return metaValue{kind: kindFloat, f: float64(x)}, nil
	case int:
		return metaValue{kind: kindInt, i: int64(x)}, nil
	case int64:
		return metaValue{kind: kindInt, i: x}, nil
	case bool:
		return metaValue{kind: kindBool, b: x}, nil
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return metaValue{}, err
		}
		return metaValue{kind: kindJSON, s: string(data)}, nil
	}
}

func (m metaValue) size() int {
	n := varint.Int.Size(m.kind)
	switch m.kind {
	case kindString, kindJSON:
		n += ord.String.Size(m.s)
	case kindFloat:
		n += raw.Float64.Size(m.f)
	case kindInt:
		n += varint.Int64.Size(m.i)
	case kindBool:
		n += ord.Bool.Size(m.b)
	}
	return n
}

func (m metaValue) marshal(buf []byte) int {
	n := varint.Int.Marshal(m.kind, buf)
	switch m.kind {
	case kindString, kindJSON:
		n += ord.String.Marshal(m.s, buf[n:])
	case kindFloat:
		n += raw.Float64.Marshal(m.f, buf[n:])
	case kindInt:
		n += varint.Int64.Marshal(m.i, buf[n:])
	case kindBool:
		n += ord.Bool.Marshal(m.b, buf[n:])
	}
	return n
}

// decoder walks a buffer and keeps the first error.
type decoder struct {
	data []byte
	off  int
	err  error
}

func decode[T any](d *decoder, unmarshal func([]byte) (T, int, error)) T {
	var zero T
	if d.err != nil {
		return zero
	}
	v, n, err := unmarshal(d.data[d.off:])
	if err != nil {
		d.err = err
		return zero
	}
	d.off += n
	return v
}

// length reads a collection length and rejects values the buffer cannot hold.
func (d *decoder) length() int {
	n := decode(d, varint.Int.Unmarshal)
	if d.err == nil && (n < 0 || n > len(d.data)-d.off) {
		d.err = ErrTruncatedData
		return 0
	}
	return n
}

func (d *decoder) metaValue() any {
	kind := decode(d, varint.Int.Unmarshal)
	switch kind {
	case kindString:
		return decode(d, ord.String.Unmarshal)
	case kindFloat:
		return decode(d, raw.Float64.Unmarshal)
	case kindInt:
		return decode(d, varint.Int64.Unmarshal)
	case kindBool:
		return decode(d, ord.Bool.Unmarshal)
	case kindJSON:
		var v any
		s := decode(d, ord.String.Unmarshal)
		if d.err == nil {
			if err := json.Unmarshal([]byte(s), &v); err != nil {
				d.err = err
			}
		}
		return v
	}
	if d.err == nil {
		d.err = fmt.Errorf("unknown metadata kind %d", kind)
	}
	return nil
}
