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

package portal

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ResponseCode is the first element of every portal reply.
type ResponseCode uint32

const (
	// ResponseSuccess means the interaction ended successfully.
	ResponseSuccess ResponseCode = 0
	// ResponseCancelled means the user (or the caller, through the
	// request handle) cancelled the interaction.
	ResponseCancelled ResponseCode = 1
	// ResponseOther means the interaction ended in some other way.
	ResponseOther ResponseCode = 2
)

func (c ResponseCode) String() string {
	switch c {
	case ResponseSuccess:
		return "success"
	case ResponseCancelled:
		return "cancelled"
	case ResponseOther:
		return "other"
	}
	return fmt.Sprintf("ResponseCode(%d)", uint32(c))
}

// Results is the a{sv} dictionary carried by successful portal replies.
type Results = map[string]dbus.Variant

// Response is the outcome of a portal operation. Only successful
// responses carry a payload; cancelled and other responses always
// encode an empty a{sv} instead, whatever T is.
//
// T must be a type godbus knows how to marshal.
type Response[T any] struct {
	code    ResponseCode
	payload T
}

// Success returns a successful response carrying v.
func Success[T any](v T) Response[T] {
	return Response[T]{code: ResponseSuccess, payload: v}
}

// Cancelled returns a response for an aborted operation.
func Cancelled[T any]() Response[T] {
	return Response[T]{code: ResponseCancelled}
}

// Other returns a response for an operation that failed or ended for a
// reason other than cancellation.
func Other[T any]() Response[T] {
	return Response[T]{code: ResponseOther}
}

// Code returns the numeric response code.
func (r Response[T]) Code() ResponseCode {
	return r.code
}

// Payload returns the payload of a successful response.
func (r Response[T]) Payload() (v T, ok bool) {
	if r.code != ResponseSuccess {
		return v, false
	}
	return r.payload, true
}

type wireResponse[T any] struct {
	Code    uint32
	Payload T
}

// Values returns the response as the ordered (code, payload) pair, the
// form used for the out arguments of a portal method.
func (r Response[T]) Values() []interface{} {
	if r.code != ResponseSuccess {
		return []interface{}{uint32(r.code), Results{}}
	}
	return []interface{}{uint32(r.code), r.payload}
}

// Wire returns the response as a single value that marshals to the
// D-Bus struct (u<payload>).
func (r Response[T]) Wire() interface{} {
	if r.code != ResponseSuccess {
		return wireResponse[Results]{Code: uint32(r.code), Payload: Results{}}
	}
	return wireResponse[T]{Code: uint32(r.code), Payload: r.payload}
}

// Signature returns the D-Bus signature of Wire.
func (r Response[T]) Signature() dbus.Signature {
	return dbus.SignatureOf(r.Wire())
}

func (r Response[T]) String() string {
	return r.code.String()
}

// Reply adapts a response to the (u response, a{sv} results) out
// arguments shared by the portal backend methods.
func Reply(r Response[Results]) (uint32, Results, *dbus.Error) {
	results, ok := r.Payload()
	if !ok || results == nil {
		results = Results{}
	}
	return uint32(r.Code()), results, nil
}
