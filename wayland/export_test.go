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
	"golang.org/x/sys/unix"
)

func MockGetUcred(f func(fd, level, opt int) (*unix.Ucred, error)) (restore func()) {
	old := getUcred
	getUcred = f
	return func() {
		getUcred = old
	}
}

// Kill marks the connection as dying without closing the socket.
func (c *Conn) Kill() {
	c.tomb.Kill(nil)
}
