// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package rpc implements the signed request/response protocol agents
// use to call one another, and the verification gate on the receiving
// side.
package rpc

import "encoding/json"

// Payload is the signed unit of an RPC call: the sender's identifier,
// an opaque structured body, and a Unix timestamp in seconds.
type Payload struct {
	SenderID  string          `json:"sender_id"`
	Body      json.RawMessage `json:"body"`
	Timestamp float64         `json:"timestamp"`
}

// Envelope is the wire shape of a signed RPC call: base64 payload
// bytes and base64 signature bytes.
type Envelope struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}
