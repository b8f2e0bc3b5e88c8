// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2024 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package wayland

import (
	"encoding/binary"
	"fmt"
	"io"
)

// wayland messages are in the host byte order
var order = binary.NativeEndian

const headerSize = 8

// maxMessageSize is the largest message libwayland will send.
const maxMessageSize = 4096

// Message is a single request or event being built for the wire.
type Message struct {
	sender uint32
	opcode uint16
	body   []byte
}

// NewMessage starts a message from the object sender with the given
// opcode.
func NewMessage(sender uint32, opcode uint16) *Message {
	return &Message{sender: sender, opcode: opcode}
}

// PutUint32 appends a uint, object or new_id argument.
func (m *Message) PutUint32(v uint32) *Message {
	m.body = order.AppendUint32(m.body, v)
	return m
}

// PutInt32 appends an int argument.
func (m *Message) PutInt32(v int32) *Message {
	return m.PutUint32(uint32(v))
}

// PutString appends a string argument, NUL terminated and padded to
// 32 bits.
func (m *Message) PutString(s string) *Message {
	m.PutUint32(uint32(len(s) + 1))
	m.body = append(m.body, s...)
	m.body = append(m.body, 0)
	for len(m.body)%4 != 0 {
		m.body = append(m.body, 0)
	}
	return m
}

// MarshalBinary returns the wire form of the message.
func (m *Message) MarshalBinary() ([]byte, error) {
	size := headerSize + len(m.body)
	if size > maxMessageSize {
		return nil, fmt.Errorf("cannot marshal message for object %d: size %d exceeds %d", m.sender, size, maxMessageSize)
	}
	data := make([]byte, 0, size)
	data = order.AppendUint32(data, m.sender)
	data = order.AppendUint32(data, uint32(size)<<16|uint32(m.opcode))
	return append(data, m.body...), nil
}

// Args decodes the arguments of a received message in order. The
// first decoding error sticks and is reported by Err.
type Args struct {
	Sender uint32
	Opcode uint16

	data []byte
	err  error
}

func (a *Args) take(n int) []byte {
	if a.err != nil {
		return nil
	}
	if len(a.data) < n {
		a.err = fmt.Errorf("message from object %d opcode %d is too short", a.Sender, a.Opcode)
		return nil
	}
	b := a.data[:n]
	a.data = a.data[n:]
	return b
}

// Uint32 decodes a uint, object or new_id argument.
func (a *Args) Uint32() uint32 {
	b := a.take(4)
	if b == nil {
		return 0
	}
	return order.Uint32(b)
}

// Int32 decodes an int argument.
func (a *Args) Int32() int32 {
	return int32(a.Uint32())
}

// Str decodes a string argument. A null string decodes as "".
func (a *Args) Str() string {
	n := a.Uint32()
	if n == 0 {
		return ""
	}
	padded := (int(n) + 3) &^ 3
	b := a.take(padded)
	if b == nil {
		return ""
	}
	if b[n-1] != 0 {
		a.err = fmt.Errorf("string argument from object %d is not NUL terminated", a.Sender)
		return ""
	}
	return string(b[:n-1])
}

// Err returns the first decoding error, if any.
func (a *Args) Err() error {
	return a.err
}

// ReadMessage reads one message from r.
func ReadMessage(r io.Reader) (*Args, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	sender := order.Uint32(hdr[0:4])
	word := order.Uint32(hdr[4:8])
	size := int(word >> 16)
	if size < headerSize {
		return nil, fmt.Errorf("cannot read message from object %d: invalid size %d", sender, size)
	}
	body := make([]byte, size-headerSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return &Args{
		Sender: sender,
		Opcode: uint16(word & 0xffff),
		data:   body,
	}, nil
}
