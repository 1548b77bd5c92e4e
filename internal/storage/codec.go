package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"minidb/pkg/types"
)

// EncodeRow serializes a row against schema using the on-disk row encoding:
// a leading null bitmap of ceil(C/8) bytes (bit i, LSB-first within byte
// i/8, set iff column i is null), followed by one payload per non-null
// column in schema order.
func EncodeRow(schema *types.Schema, row types.Row) ([]byte, error) {
	if len(row.Values) != len(schema.Columns) {
		return nil, fmt.Errorf("row has %d values, schema has %d columns", len(row.Values), len(schema.Columns))
	}

	bitmapLen := (len(schema.Columns) + 7) / 8
	bitmap := make([]byte, bitmapLen)
	payload := make([]byte, 0, 64)

	for i, col := range schema.Columns {
		v := row.Values[i]
		if v.IsNull {
			bitmap[i/8] |= 1 << uint(i%8)
			continue
		}
		buf, err := encodeValue(col, v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		payload = append(payload, buf...)
	}

	out := make([]byte, 0, bitmapLen+len(payload))
	out = append(out, bitmap...)
	out = append(out, payload...)
	return out, nil
}

func encodeValue(col types.Column, v types.Value) ([]byte, error) {
	switch col.Type {
	case types.Int64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v.IntVal))
		return buf, nil
	case types.Float64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.AsFloat()))
		return buf, nil
	case types.Bool:
		if v.BoolVal {
			return []byte{0x01}, nil
		}
		return []byte{0x00}, nil
	case types.Text, types.VarChar:
		str := v.StrVal
		if col.Type == types.VarChar && col.MaxBytes > 0 && uint32(len(str)) > col.MaxBytes {
			return nil, fmt.Errorf("value length %d exceeds VARCHAR(%d)", len(str), col.MaxBytes)
		}
		buf := make([]byte, 4+len(str))
		binary.LittleEndian.PutUint32(buf[0:4], uint32(len(str)))
		copy(buf[4:], str)
		return buf, nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", col.Type)
	}
}

// DecodeRow deserializes a row against schema from its encoded byte form.
// It is total on valid input and fails with a descriptive error on
// truncation or invalid UTF-8.
func DecodeRow(schema *types.Schema, data []byte) (types.Row, error) {
	bitmapLen := (len(schema.Columns) + 7) / 8
	if len(data) < bitmapLen {
		return types.Row{}, fmt.Errorf("row data truncated: need %d bitmap bytes, have %d", bitmapLen, len(data))
	}
	bitmap := data[:bitmapLen]
	pos := bitmapLen

	values := make([]types.Value, len(schema.Columns))
	for i, col := range schema.Columns {
		if bitmap[i/8]&(1<<uint(i%8)) != 0 {
			values[i] = types.NullValue(col.Type)
			continue
		}
		v, n, err := decodeValue(col, data[pos:])
		if err != nil {
			return types.Row{}, fmt.Errorf("column %q: %w", col.Name, err)
		}
		values[i] = v
		pos += n
	}
	return types.Row{Values: values}, nil
}

func decodeValue(col types.Column, data []byte) (types.Value, int, error) {
	switch col.Type {
	case types.Int64:
		if len(data) < 8 {
			return types.Value{}, 0, fmt.Errorf("truncated int64")
		}
		return types.Value{Type: types.Int64, IntVal: int64(binary.LittleEndian.Uint64(data[:8]))}, 8, nil
	case types.Float64:
		if len(data) < 8 {
			return types.Value{}, 0, fmt.Errorf("truncated float64")
		}
		return types.Value{Type: types.Float64, FltVal: math.Float64frombits(binary.LittleEndian.Uint64(data[:8]))}, 8, nil
	case types.Bool:
		if len(data) < 1 {
			return types.Value{}, 0, fmt.Errorf("truncated bool")
		}
		return types.Value{Type: types.Bool, BoolVal: data[0] != 0}, 1, nil
	case types.Text, types.VarChar:
		if len(data) < 4 {
			return types.Value{}, 0, fmt.Errorf("truncated string length prefix")
		}
		strLen := binary.LittleEndian.Uint32(data[0:4])
		if len(data) < 4+int(strLen) {
			return types.Value{}, 0, fmt.Errorf("truncated string payload")
		}
		raw := data[4 : 4+int(strLen)]
		if !utf8.Valid(raw) {
			return types.Value{}, 0, fmt.Errorf("invalid UTF-8 in string payload")
		}
		return types.Value{Type: col.Type, StrVal: string(raw)}, 4 + int(strLen), nil
	default:
		return types.Value{}, 0, fmt.Errorf("unsupported column type %s", col.Type)
	}
}
