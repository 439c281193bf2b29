package videostats

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
)

type Metric struct {
	Name  string
	Value float64
}

// StatLine is an ordered name to number mapping. It encodes as a JSON object
// whose keys appear in insertion order.
type StatLine []Metric

func (s StatLine) MarshalJSON() ([]byte, error) {
	stream := jsoniter.ConfigCompatibleWithStandardLibrary.BorrowStream(nil)
	defer jsoniter.ConfigCompatibleWithStandardLibrary.ReturnStream(stream)

	stream.WriteObjectStart()
	for idx, metric := range s {
		if idx > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(metric.Name)
		stream.WriteFloat64(metric.Value)
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func (s *StatLine) UnmarshalJSON(data []byte) error {
	decoded, err := decodeOrdered(data)
	if err != nil {
		return err
	}
	if decoded == nil {
		*s = StatLine{}
		return nil
	}
	if record(decoded) == nil {
		return errors.New("stat line must be a JSON object")
	}
	*s = statLineFrom(decoded)
	return nil
}

func statLineFrom(raw any) StatLine {
	values := record(raw)
	out := make(StatLine, 0, len(values))
	for _, key := range recordKeys(raw) {
		out = append(out, Metric{Name: key, Value: metricValueOr(values[key], 0)})
	}
	return out
}
