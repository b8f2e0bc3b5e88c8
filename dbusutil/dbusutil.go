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

package dbusutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/godbus/dbus/v5"

	"github.com/snapcore/desktop-portal/dirs"
	"github.com/snapcore/desktop-portal/osutil"
)

// ErrNoSessionBus is returned when the session bus is not available.
var ErrNoSessionBus = errors.New("cannot find session bus")

func isSessionBusLikelyPresent() bool {
	if addr := os.Getenv("DBUS_SESSION_BUS_ADDRESS"); addr != "" {
		return true
	}
	return osutil.IsUnixSocket(filepath.Join(dirs.XdgRuntimeDir, "bus"))
}

var sessionBusPrivate = sessionBusPrivateImpl

func sessionBusPrivateImpl() (*dbus.Conn, error) {
	if !isSessionBusLikelyPresent() {
		return nil, ErrNoSessionBus
	}
	// dbus.SessionBusPrivate finds $XDG_RUNTIME_DIR/bus on its own
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, err
	}
	if err = conn.Auth(nil); err != nil {
		conn.Close()
		return nil, err
	}
	if err = conn.Hello(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// SessionBusPrivate returns a new, private connection to the session bus.
//
// The caller owns the connection and must close it when done.
func SessionBusPrivate() (*dbus.Conn, error) {
	return sessionBusPrivate()
}

// MockSessionBusPrivate replaces the function used to open private session
// bus connections.
func MockSessionBusPrivate(f func() (*dbus.Conn, error)) (restore func()) {
	old := sessionBusPrivate
	sessionBusPrivate = f
	return func() {
		sessionBusPrivate = old
	}
}

// RequestName acquires the given well-known name. Without replace the
// request fails when another connection already owns the name; with it
// an existing owner that allows replacement is displaced.
func RequestName(conn *dbus.Conn, name string, replace bool) error {
	flags := dbus.NameFlagDoNotQueue
	if replace {
		flags |= dbus.NameFlagReplaceExisting
	}
	// allow a later --replace instance to take over from us
	flags |= dbus.NameFlagAllowReplacement

	reply, err := conn.RequestName(name, flags)
	if err != nil {
		return fmt.Errorf("cannot request bus name %q: %v", name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("cannot obtain bus name %q", name)
	}
	return nil
}
