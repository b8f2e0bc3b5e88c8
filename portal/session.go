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
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/snapcore/desktop-portal/logger"
)

// SessionInterface is the D-Bus interface of session handles.
const SessionInterface = "org.freedesktop.impl.portal.Session"

const sessionVersion uint32 = 1

const sessionIntrospectionXML = `
<interface name="org.freedesktop.impl.portal.Session">
	<method name="Close">
	</method>
	<signal name="Closed">
	</signal>
	<property name="version" type="u" access="read"/>
</interface>`

// Session represents a standing grant, such as a running screen cast.
// The session owns a teardown callback that runs exactly once, on the
// first Close.
type Session struct {
	server *Server
	path   dbus.ObjectPath

	mu      sync.Mutex
	closed  bool
	closeCb func()
}

// NewSession serves a session handle at path. onClose is invoked once
// the session has been closed, either by the caller or by the backend.
func NewSession(server *Server, path dbus.ObjectPath, onClose func()) (*Session, error) {
	s := &Session{
		server:  server,
		path:    path,
		closeCb: onClose,
	}
	if err := server.ServeAt(path, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Interface returns the name of the interface this object implements
func (s *Session) Interface() string {
	return SessionInterface
}

// IntrospectionData gives the XML formatted introspection description
// of the interface.
func (s *Session) IntrospectionData() string {
	return sessionIntrospectionXML
}

// Methods returns the D-Bus method table of the session.
func (s *Session) Methods() map[string]interface{} {
	return map[string]interface{}{
		"Close": s.Close,
	}
}

// Properties returns the read-only properties of the session.
func (s *Session) Properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"version": dbus.MakeVariant(s.Version()),
	}
}

// Version implements the 'version' property.
func (s *Session) Version() uint32 {
	return sessionVersion
}

// Path returns the object path of the session handle.
func (s *Session) Path() dbus.ObjectPath {
	return s.path
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements the 'Close' method of the
// 'org.freedesktop.impl.portal.Session' interface. The Closed signal
// is emitted while the session can still be addressed, then the session
// is unregistered and finally the teardown callback runs.
//
// Failing to emit the signal or to unregister is logged and never stops
// the callback from running; the method itself never fails.
func (s *Session) Close() *dbus.Error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	if err := s.server.Emit(s.path, SessionInterface, "Closed"); err != nil {
		logger.Noticef("cannot emit Closed for session %s: %v", s.path, err)
	}
	if _, err := s.server.Remove(s.path, SessionInterface); err != nil {
		logger.Noticef("cannot unregister session %s: %v", s.path, err)
	}
	cb := s.closeCb
	s.closeCb = nil
	s.mu.Unlock()

	// the callback may close other objects, so it runs unlocked
	if cb != nil {
		cb()
	}
	logger.Debugf("session %s closed", s.path)
	return nil
}
