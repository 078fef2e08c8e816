package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	ID    string `json:"_id"`
	Count int    `json:"count"`
}

func TestDecodeMap(t *testing.T) {
	req := require.New(t)

	p, err := DecodeMap[samplePayload](map[string]any{"_id": "u1", "count": 3.0})
	req.NoError(err)
	req.Equal("u1", p.ID)
	req.Equal(3, p.Count)

	_, err = DecodeMap[samplePayload](nil)
	req.Error(err)
}

func TestReadString(t *testing.T) {
	req := require.New(t)

	m := map[string]any{"_id": "u1", "count": 3}

	v, err := ReadString(m, "_id")
	req.NoError(err)
	req.Equal("u1", v)

	_, err = ReadString(m, "missing")
	req.Error(err)

	// 类型不对不做隐式转换
	_, err = ReadString(m, "count")
	req.Error(err)

	_, err = ReadString(nil, "_id")
	req.Error(err)
}
