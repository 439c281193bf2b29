package videostats

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// decodeOrdered parses a JSON document into plain Go values, except that
// objects become OrderedObject so key order is available to the caller.
// Numbers that do not fit a float64 stay json.Number leaves instead of
// failing the document.
func decodeOrdered(body []byte) (any, error) {
	iter := jsoniter.ConfigCompatibleWithStandardLibrary.BorrowIterator(body)
	defer jsoniter.ConfigCompatibleWithStandardLibrary.ReturnIterator(iter)

	value := readOrdered(iter, 0)
	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return nil, fmt.Errorf("decode json: %w", iter.Error)
	}
	// Only whitespace may follow the document.
	if iter.WhatIsNext() != jsoniter.InvalidValue || !errors.Is(iter.Error, io.EOF) {
		return nil, errInvalidJSON
	}
	return value, nil
}

const maxDecodeDepth = 256

var errInvalidJSON = errors.New("invalid json document")

func readOrdered(iter *jsoniter.Iterator, depth int) any {
	if depth > maxDecodeDepth {
		iter.ReportError("readOrdered", "document nested too deeply")
		return nil
	}

	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		obj := OrderedObject{Values: map[string]any{}}
		iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			if _, seen := obj.Values[key]; !seen {
				obj.Keys = append(obj.Keys, key)
			}
			obj.Values[key] = readOrdered(it, depth+1)
			return it.Error == nil
		})
		return obj
	case jsoniter.ArrayValue:
		items := []any{}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			items = append(items, readOrdered(it, depth+1))
			return it.Error == nil
		})
		return items
	case jsoniter.StringValue:
		return iter.ReadString()
	case jsoniter.NumberValue:
		raw := iter.ReadNumber()
		if value, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return value
		}
		return raw
	case jsoniter.BoolValue:
		return iter.ReadBool()
	case jsoniter.NilValue:
		iter.ReadNil()
		return nil
	default:
		iter.Skip()
		return nil
	}
}
