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

import "context"

// Helper is a handle on a shared compositor connection. Copies made
// with Clone, or by plain assignment, all use the same connection.
type Helper struct {
	conn *Conn
}

// NewHelper returns a handle on conn.
func NewHelper(conn *Conn) Helper {
	return Helper{conn: conn}
}

// Clone returns another handle on the same connection.
func (h Helper) Clone() Helper {
	return h
}

// Conn returns the underlying connection.
func (h Helper) Conn() *Conn {
	return h.conn
}

// Outputs returns the outputs of the compositor.
func (h Helper) Outputs() []Output {
	return h.conn.Outputs()
}

// Roundtrip syncs with the compositor, see Conn.Roundtrip.
func (h Helper) Roundtrip(ctx context.Context) error {
	return h.conn.Roundtrip(ctx)
}

// Err returns the error that ended the connection, or nil.
func (h Helper) Err() error {
	return h.conn.Err()
}

// Dead returns a channel closed once the connection is gone.
func (h Helper) Dead() <-chan struct{} {
	return h.conn.Dead()
}
