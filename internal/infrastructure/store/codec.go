// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec selects the wire encoding for one KV bucket. Meetings and
// exceptions are JSON so operators can inspect buckets directly; the
// high-churn AI job bucket uses msgpack.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string                           { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)          { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error     { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                        { return "msgpack" }
func (msgpackCodec) Marshal(v any) ([]byte, error)       { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error  { return msgpack.Unmarshal(data, v) }

// JSONCodec returns the default bucket encoding.
func JSONCodec() Codec { return jsonCodec{} }

// MsgpackCodec returns the compact binary encoding.
func MsgpackCodec() Codec { return msgpackCodec{} }
