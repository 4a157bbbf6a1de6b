package cache

import "encoding/json"

// Codec converts between stored bytes and the payload type T.
type Codec[T any] interface {
	Decode(data []byte) (T, error)
	Encode(v T) ([]byte, error)
}

// JSONCodec encodes payloads with encoding/json.
type JSONCodec[T any] struct{}

// Decode implements Codec.
func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// Encode implements Codec.
func (JSONCodec[T]) Encode(v T) ([]byte, error) {
	return json.Marshal(v)
}
