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
	"sort"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

const (
	introspectableInterface = "org.freedesktop.DBus.Introspectable"
	propertiesInterface     = "org.freedesktop.DBus.Properties"
)

// Conn is the part of a *dbus.Conn the object server needs.
type Conn interface {
	ExportMethodTable(methods map[string]interface{}, path dbus.ObjectPath, iface string) error
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// Object is a D-Bus interface implementation that can be served at an
// object path.
type Object interface {
	// Interface returns the name of the interface this object implements
	Interface() string
	// IntrospectionData gives the XML formatted introspection
	// description of the interface.
	IntrospectionData() string
	// Methods returns the method table, keyed by D-Bus member name.
	Methods() map[string]interface{}
}

// PropertyHolder is implemented by objects exposing read-only
// properties.
type PropertyHolder interface {
	Properties() map[string]dbus.Variant
}

// Server keeps track of which interfaces are served at which object
// path. Several interfaces can share a path; calls are dispatched by
// interface name, and each path gets Introspectable and Properties
// implementations covering everything served there.
//
// Server is safe for concurrent use.
type Server struct {
	conn Conn

	mu      sync.Mutex
	objects map[dbus.ObjectPath]map[string]Object
}

// NewServer returns a server exporting objects on the given connection.
func NewServer(conn Conn) *Server {
	return &Server{
		conn:    conn,
		objects: make(map[dbus.ObjectPath]map[string]Object),
	}
}

// ServeAt exports obj at path. It is an error to serve the same
// interface twice at one path.
func (s *Server) ServeAt(path dbus.ObjectPath, obj Object) error {
	if !path.IsValid() {
		return fmt.Errorf("cannot serve %s: invalid object path %q", obj.Interface(), path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := obj.Interface()
	ifaces := s.objects[path]
	if _, ok := ifaces[name]; ok {
		return fmt.Errorf("cannot serve %s at %s: already served", name, path)
	}
	if ifaces == nil {
		if err := s.exportStandardInterfaces(path); err != nil {
			return err
		}
		ifaces = make(map[string]Object)
		s.objects[path] = ifaces
	}

	methods := obj.Methods()
	if methods == nil {
		// a nil table unexports
		methods = map[string]interface{}{}
	}
	if err := s.conn.ExportMethodTable(methods, path, name); err != nil {
		if len(ifaces) == 0 {
			s.unexportStandardInterfaces(path)
			delete(s.objects, path)
		}
		return fmt.Errorf("cannot serve %s at %s: %v", name, path, err)
	}
	ifaces[name] = obj
	return nil
}

// Remove stops serving the named interface at path. It reports whether
// the interface was served. Once the last interface at a path is gone
// the path itself disappears from the bus.
func (s *Server) Remove(path dbus.ObjectPath, iface string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ifaces := s.objects[path]
	if _, ok := ifaces[iface]; !ok {
		return false, nil
	}
	delete(ifaces, iface)
	err := s.conn.ExportMethodTable(nil, path, iface)
	if len(ifaces) == 0 {
		delete(s.objects, path)
		if err1 := s.unexportStandardInterfaces(path); err == nil {
			err = err1
		}
	}
	if err != nil {
		return true, fmt.Errorf("cannot remove %s from %s: %v", iface, path, err)
	}
	return true, nil
}

// Lookup returns the object serving iface at path.
func (s *Server) Lookup(path dbus.ObjectPath, iface string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[path][iface]
	return obj, ok
}

// Emit sends the signal iface.member from path.
func (s *Server) Emit(path dbus.ObjectPath, iface, member string, values ...interface{}) error {
	return s.conn.Emit(path, iface+"."+member, values...)
}

func (s *Server) exportStandardInterfaces(path dbus.ObjectPath) error {
	if err := s.conn.ExportMethodTable(s.introspectTable(path), path, introspectableInterface); err != nil {
		return fmt.Errorf("cannot export introspection data at %s: %v", path, err)
	}
	if err := s.conn.ExportMethodTable(s.propertiesTable(path), path, propertiesInterface); err != nil {
		s.conn.ExportMethodTable(nil, path, introspectableInterface)
		return fmt.Errorf("cannot export properties at %s: %v", path, err)
	}
	return nil
}

func (s *Server) unexportStandardInterfaces(path dbus.ObjectPath) error {
	err1 := s.conn.ExportMethodTable(nil, path, propertiesInterface)
	err2 := s.conn.ExportMethodTable(nil, path, introspectableInterface)
	if err1 != nil {
		return err1
	}
	return err2
}

// objectsAt returns the objects at path sorted by interface name.
func (s *Server) objectsAt(path dbus.ObjectPath) []Object {
	s.mu.Lock()
	defer s.mu.Unlock()

	ifaces := s.objects[path]
	objs := make([]Object, 0, len(ifaces))
	for _, obj := range ifaces {
		objs = append(objs, obj)
	}
	sort.Slice(objs, func(i, j int) bool {
		return objs[i].Interface() < objs[j].Interface()
	})
	return objs
}

// Introspect returns the introspection XML for path.
func (s *Server) Introspect(path dbus.ObjectPath) string {
	var b strings.Builder
	b.WriteString(introspect.IntrospectDeclarationString)
	b.WriteString("<node>")
	for _, obj := range s.objectsAt(path) {
		b.WriteString(obj.IntrospectionData())
	}
	b.WriteString(introspect.IntrospectDataString)
	b.WriteString(prop.IntrospectDataString)
	b.WriteString("</node>")
	return b.String()
}

func (s *Server) introspectTable(path dbus.ObjectPath) map[string]interface{} {
	return map[string]interface{}{
		"Introspect": func() (string, *dbus.Error) {
			return s.Introspect(path), nil
		},
	}
}

func (s *Server) properties(path dbus.ObjectPath, iface string) (map[string]dbus.Variant, *dbus.Error) {
	obj, ok := s.Lookup(path, iface)
	if !ok {
		return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface",
			[]interface{}{fmt.Sprintf("No such interface %q at %s", iface, path)})
	}
	holder, ok := obj.(PropertyHolder)
	if !ok {
		return map[string]dbus.Variant{}, nil
	}
	props := holder.Properties()
	if props == nil {
		props = map[string]dbus.Variant{}
	}
	return props, nil
}

func (s *Server) propertiesTable(path dbus.ObjectPath) map[string]interface{} {
	return map[string]interface{}{
		"Get": func(iface, name string) (dbus.Variant, *dbus.Error) {
			props, err := s.properties(path, iface)
			if err != nil {
				return dbus.Variant{}, err
			}
			v, ok := props[name]
			if !ok {
				return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.UnknownProperty",
					[]interface{}{fmt.Sprintf("No such property %q on %s", name, iface)})
			}
			return v, nil
		},
		"GetAll": func(iface string) (map[string]dbus.Variant, *dbus.Error) {
			return s.properties(path, iface)
		},
		"Set": func(iface, name string, value dbus.Variant) *dbus.Error {
			props, err := s.properties(path, iface)
			if err != nil {
				return err
			}
			if _, ok := props[name]; !ok {
				return dbus.NewError("org.freedesktop.DBus.Error.UnknownProperty",
					[]interface{}{fmt.Sprintf("No such property %q on %s", name, iface)})
			}
			return dbus.NewError("org.freedesktop.DBus.Error.PropertyReadOnly",
				[]interface{}{fmt.Sprintf("Property %q on %s is read-only", name, iface)})
		},
	}
}
