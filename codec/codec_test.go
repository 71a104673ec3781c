package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsAgree(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(benchDoc)
			require.NoError(t, err)

			var got benchDocument
			require.NoError(t, JSON{}.Unmarshal(data, &got))
			assert.Equal(t, benchDoc, got)

			var fields map[string]json.RawMessage
			require.NoError(t, c.Unmarshal(MustMarshal(JSON{}, benchDoc), &fields))
			assert.Len(t, fields, 6)
			assert.JSONEq(t, `{"street":"12 St James's Square","zip":10001}`, string(fields["address"]))

			var n json.Number
			require.NoError(t, c.Unmarshal(fields["id"], &n))
			assert.Equal(t, "123456789", n.String())
		})
	}
}

func TestCodec_InvalidInput(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		var v map[string]json.RawMessage
		assert.Error(t, c.Unmarshal([]byte("not json"), &v), c.Name())
	}
}

func TestGoJSON_MarshalIndent(t *testing.T) {
	data, err := GoJSON{}.MarshalIndent(map[string]int{"a": 1}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(data))
}
