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

// RequestInterface is the D-Bus interface of request handles.
const RequestInterface = "org.freedesktop.impl.portal.Request"

const requestIntrospectionXML = `
<interface name="org.freedesktop.impl.portal.Request">
	<method name="Close">
	</method>
</interface>`

// Request is the handle of one in-flight portal operation. Callers close
// it to ask for the operation to be cancelled.
type Request struct {
	server *Server
	path   dbus.ObjectPath
	cancel func()

	mu     sync.Mutex
	closed bool
	done   bool
}

// NewRequest serves a request handle at path. The cancel function, if
// any, is called when the caller closes the request; the backend owning
// the operation must call Done once it is finished.
func NewRequest(server *Server, path dbus.ObjectPath, cancel func()) (*Request, error) {
	r := &Request{
		server: server,
		path:   path,
		cancel: cancel,
	}
	if err := server.ServeAt(path, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Interface returns the name of the interface this object implements
func (r *Request) Interface() string {
	return RequestInterface
}

// IntrospectionData gives the XML formatted introspection description
// of the interface.
func (r *Request) IntrospectionData() string {
	return requestIntrospectionXML
}

// Methods returns the D-Bus method table of the request.
func (r *Request) Methods() map[string]interface{} {
	return map[string]interface{}{
		"Close": r.Close,
	}
}

// Path returns the object path of the request handle.
func (r *Request) Path() dbus.ObjectPath {
	return r.path
}

// Close implements the 'Close' method of the
// 'org.freedesktop.impl.portal.Request' interface. It can be called any
// number of times and never fails.
func (r *Request) Close() *dbus.Error {
	r.mu.Lock()
	first := !r.closed
	r.closed = true
	r.mu.Unlock()

	if !first {
		logger.Debugf("request %s already closed", r.path)
		return nil
	}
	logger.Debugf("closing request %s", r.path)
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

// Closed reports whether the caller closed the request.
func (r *Request) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Done unregisters the request handle. It is safe to call more than once.
func (r *Request) Done() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.mu.Unlock()

	if _, err := r.server.Remove(r.path, RequestInterface); err != nil {
		logger.Noticef("cannot unregister request %s: %v", r.path, err)
	}
}
