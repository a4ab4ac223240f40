// Package transport is the gRPC-backed implementation of the consensus
// core's Transport interface (spec section 6: transport, like persistence
// and the client-facing router, is an external collaborator the core only
// ever reaches through an interface). There is no protoc-generated client
// here — the reference implementation's generated bindings were never
// available to build against — so this package registers a gob-based
// grpc/encoding.Codec and hands the raft package's own request/response
// structs straight to it, and dispatches through a hand-written
// grpc.ServiceDesc instead of a generated one.
package transport

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

const codecName = "raftwire"

// gobCodec satisfies encoding.Codec. gob handles the raft package's plain
// exported-field structs directly, so no intermediate wire type is needed.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(gobCodec{})
}
