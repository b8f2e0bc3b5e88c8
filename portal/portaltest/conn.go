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

// Package portaltest provides an in-memory stand-in for a D-Bus
// connection so that portal objects can be exercised without a bus.
package portaltest

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/godbus/dbus/v5"
)

// ErrUnknownObject is the error name returned when calling a path that
// has nothing exported.
const ErrUnknownObject = "org.freedesktop.DBus.Error.UnknownObject"

// Signal is a signal recorded by Conn.Emit.
type Signal struct {
	Path dbus.ObjectPath
	Name string
	Body []interface{}
}

// Conn records exported method tables and emitted signals.
type Conn struct {
	mu     sync.Mutex
	tables map[dbus.ObjectPath]map[string]map[string]interface{}
	events []string

	signals []Signal

	// EmitError, if set, is returned by Emit.
	EmitError error
	// UnexportError, if set, is returned when removing a method table.
	UnexportError error
}

// NewConn returns an empty connection.
func NewConn() *Conn {
	return &Conn{
		tables: make(map[dbus.ObjectPath]map[string]map[string]interface{}),
	}
}

// ExportMethodTable mimics (*dbus.Conn).ExportMethodTable.
func (c *Conn) ExportMethodTable(methods map[string]interface{}, path dbus.ObjectPath, iface string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if methods == nil {
		if c.UnexportError != nil {
			return c.UnexportError
		}
		if ifaces, ok := c.tables[path]; ok {
			delete(ifaces, iface)
			if len(ifaces) == 0 {
				delete(c.tables, path)
			}
		}
		c.events = append(c.events, fmt.Sprintf("unexport %s %s", path, iface))
		return nil
	}

	ifaces := c.tables[path]
	if ifaces == nil {
		ifaces = make(map[string]map[string]interface{})
		c.tables[path] = ifaces
	}
	ifaces[iface] = methods
	c.events = append(c.events, fmt.Sprintf("export %s %s", path, iface))
	return nil
}

// Emit mimics (*dbus.Conn).Emit.
func (c *Conn) Emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.EmitError != nil {
		return c.EmitError
	}
	c.signals = append(c.signals, Signal{Path: path, Name: name, Body: values})
	c.events = append(c.events, fmt.Sprintf("emit %s %s", path, name))
	return nil
}

// Events returns everything that happened on the connection, in order.
func (c *Conn) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

// Signals returns the emitted signals, in order.
func (c *Conn) Signals() []Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Signal(nil), c.signals...)
}

// Exported reports whether iface has a method table at path.
func (c *Conn) Exported(path dbus.ObjectPath, iface string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tables[path][iface]
	return ok
}

// Paths returns the number of object paths with anything exported.
func (c *Conn) Paths() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables)
}

// Call invokes method on iface at path the way the bus would, returning
// the out arguments. A non-nil *dbus.Error returned by the method is
// returned as the error.
func (c *Conn) Call(path dbus.ObjectPath, iface, method string, args ...interface{}) ([]interface{}, error) {
	c.mu.Lock()
	ifaces, ok := c.tables[path]
	if !ok {
		c.mu.Unlock()
		return nil, dbus.NewError(ErrUnknownObject, []interface{}{fmt.Sprintf("No such object %s", path)})
	}
	methods, ok := ifaces[iface]
	if !ok {
		c.mu.Unlock()
		return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", []interface{}{fmt.Sprintf("No such interface %s", iface)})
	}
	fn, ok := methods[method]
	c.mu.Unlock()
	if !ok {
		return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownMethod", []interface{}{fmt.Sprintf("No such method %s", method)})
	}

	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.NumIn() != len(args) {
		return nil, dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs",
			[]interface{}{fmt.Sprintf("%s takes %d arguments, got %d", method, ft.NumIn(), len(args))})
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(ft.In(i))
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(ft.In(i)) {
			if !v.Type().ConvertibleTo(ft.In(i)) {
				return nil, dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs",
					[]interface{}{fmt.Sprintf("argument %d of %s: cannot use %T as %s", i, method, arg, ft.In(i))})
			}
			v = v.Convert(ft.In(i))
		}
		in[i] = v
	}

	out := fv.Call(in)
	var ret []interface{}
	for i, v := range out {
		if i == len(out)-1 && ft.Out(i) == reflect.TypeOf((*dbus.Error)(nil)) {
			if dberr := v.Interface().(*dbus.Error); dberr != nil {
				return nil, dberr
			}
			continue
		}
		ret = append(ret, v.Interface())
	}
	return ret, nil
}
