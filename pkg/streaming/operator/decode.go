package operator

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/backflow/pkg/streaming/bridge"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// Decoder unmarshals data into v.
type Decoder interface {
	Decode(data []byte, v any) error
}

// DecoderFunc adapts a function such as json.Unmarshal to Decoder.
type DecoderFunc func(data []byte, v any) error

// Decode calls f.
func (f DecoderFunc) Decode(data []byte, v any) error {
	return f(data, v)
}

var (
	// JSONDecoder decodes JSON documents.
	JSONDecoder Decoder = DecoderFunc(json.Unmarshal)

	// YAMLDecoder decodes YAML documents.
	YAMLDecoder Decoder = DecoderFunc(yaml.Unmarshal)
)

// Decode decodes every payload into a T. A payload that fails to decode
// yields fallback instead of failing the stream.
func Decode[T any](pub reactive.Publisher[[]byte], decoder Decoder, fallback T) reactive.Publisher[T] {
	return bridge.Lift(pub, bridge.Config[[]byte, T]{
		Name: "decode",
		Transform: func(data []byte) (T, bool) {
			var v T
			if err := decoder.Decode(data, &v); err != nil {
				return fallback, true
			}
			return v, true
		},
		TransformError: bridge.PassError,
	})
}
