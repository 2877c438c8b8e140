package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/backflow/pkg/streaming/source"
)

type reading struct {
	Sensor string  `json:"sensor" yaml:"sensor"`
	Value  float64 `json:"value" yaml:"value"`
}

func TestDecode_JSONFallsBackOnBadPayload(t *testing.T) {
	payloads := source.Just(
		[]byte(`{"sensor":"a","value":1.5}`),
		[]byte(`{not json`),
		[]byte(`{"sensor":"b","value":2}`),
	)
	fallback := reading{Sensor: "unknown"}

	values, err := collect(t, Decode(payloads, JSONDecoder, fallback), 1)
	require.NoError(t, err)
	assert.Equal(t, []reading{
		{Sensor: "a", Value: 1.5},
		fallback,
		{Sensor: "b", Value: 2},
	}, values)
}

func TestDecode_YAML(t *testing.T) {
	payloads := source.Just(
		[]byte("sensor: c\nvalue: 3\n"),
		[]byte("sensor: [unterminated\n"),
	)

	values, err := collect(t, Decode(payloads, YAMLDecoder, reading{}), 2)
	require.NoError(t, err)
	assert.Equal(t, []reading{{Sensor: "c", Value: 3}, {}}, values)
}
