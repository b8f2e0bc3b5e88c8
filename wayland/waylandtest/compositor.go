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

// Package waylandtest provides a fake compositor speaking enough of the
// Wayland protocol to exercise the wayland package.
package waylandtest

import (
	"fmt"
	"net"
	"sync"

	"gopkg.in/tomb.v2"

	"github.com/snapcore/desktop-portal/wayland"
)

// Output is an output announced by the fake compositor.
type Output struct {
	Name        string
	Description string
	Make        string
	Model       string

	X, Y    int32
	Width   int32
	Height  int32
	Refresh int32
	Scale   int32
}

type global struct {
	name    uint32
	iface   string
	version uint32
	output  *Output
}

type client struct {
	conn net.Conn

	wmu        sync.Mutex
	registries []uint32
}

func (cl *client) send(msgs ...*wayland.Message) error {
	cl.wmu.Lock()
	defer cl.wmu.Unlock()
	for _, m := range msgs {
		data, err := m.MarshalBinary()
		if err != nil {
			return err
		}
		if _, err := cl.conn.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// Compositor listens on a unix socket and serves wl_display,
// wl_registry and wl_output to its clients.
type Compositor struct {
	listener net.Listener
	path     string
	tomb     tomb.Tomb

	mu       sync.Mutex
	serial   uint32
	nextName uint32
	globals  []*global
	clients  map[*client]bool
	requests []string
}

// New starts a compositor listening at path announcing the given
// outputs along with a couple of unrelated globals.
func New(path string, outputs ...Output) (*Compositor, error) {
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	c := &Compositor{
		listener: l,
		path:     path,
		nextName: 1,
		clients:  make(map[*client]bool),
	}
	c.addGlobalLocked("wl_compositor", 5, nil)
	c.addGlobalLocked("wl_shm", 1, nil)
	for i := range outputs {
		o := outputs[i]
		c.addGlobalLocked(wayland.OutputInterface, 4, &o)
	}
	c.tomb.Go(c.accept)
	return c, nil
}

// Path returns the socket path.
func (c *Compositor) Path() string {
	return c.path
}

func (c *Compositor) addGlobalLocked(iface string, version uint32, o *Output) *global {
	g := &global{name: c.nextName, iface: iface, version: version, output: o}
	c.nextName++
	c.globals = append(c.globals, g)
	return g
}

func (c *Compositor) accept() error {
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			select {
			case <-c.tomb.Dying():
				return nil
			default:
			}
			return err
		}
		cl := &client{conn: conn}
		c.mu.Lock()
		c.clients[cl] = true
		c.mu.Unlock()
		c.tomb.Go(func() error {
			c.serve(cl)
			return nil
		})
	}
}

func (c *Compositor) serve(cl *client) {
	defer func() {
		c.mu.Lock()
		delete(c.clients, cl)
		c.mu.Unlock()
		cl.conn.Close()
	}()
	for {
		args, err := wayland.ReadMessage(cl.conn)
		if err != nil {
			return
		}
		if err := c.handle(cl, args); err != nil {
			return
		}
	}
}

func (c *Compositor) record(req string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
}

func (c *Compositor) isRegistry(cl *client, id uint32) bool {
	cl.wmu.Lock()
	defer cl.wmu.Unlock()
	for _, r := range cl.registries {
		if r == id {
			return true
		}
	}
	return false
}

func (c *Compositor) handle(cl *client, args *wayland.Args) error {
	switch {
	case args.Sender == 1 && args.Opcode == 0:
		id := args.Uint32()
		c.record("sync")
		c.mu.Lock()
		c.serial++
		serial := c.serial
		c.mu.Unlock()
		return cl.send(
			wayland.NewMessage(id, 0).PutUint32(serial),
			wayland.NewMessage(1, 1).PutUint32(id),
		)
	case args.Sender == 1 && args.Opcode == 1:
		id := args.Uint32()
		c.record("get_registry")
		c.mu.Lock()
		var msgs []*wayland.Message
		for _, g := range c.globals {
			msgs = append(msgs, globalEvent(id, g))
		}
		c.mu.Unlock()
		cl.wmu.Lock()
		cl.registries = append(cl.registries, id)
		cl.wmu.Unlock()
		return cl.send(msgs...)
	case c.isRegistry(cl, args.Sender) && args.Opcode == 0:
		name := args.Uint32()
		iface := args.Str()
		version := args.Uint32()
		id := args.Uint32()
		if err := args.Err(); err != nil {
			return err
		}
		c.record(fmt.Sprintf("bind %s %d", iface, version))
		c.mu.Lock()
		var o *Output
		for _, g := range c.globals {
			if g.name == name {
				o = g.output
			}
		}
		c.mu.Unlock()
		if o != nil {
			return cl.send(outputEvents(id, version, o)...)
		}
	}
	return nil
}

func globalEvent(registry uint32, g *global) *wayland.Message {
	return wayland.NewMessage(registry, 0).
		PutUint32(g.name).
		PutString(g.iface).
		PutUint32(g.version)
}

func outputEvents(id, version uint32, o *Output) []*wayland.Message {
	msgs := []*wayland.Message{
		wayland.NewMessage(id, 0).
			PutInt32(o.X).PutInt32(o.Y).
			PutInt32(0).PutInt32(0).
			PutInt32(0).
			PutString(o.Make).PutString(o.Model).
			PutInt32(0),
		// a stale mode first, the current one last
		wayland.NewMessage(id, 1).PutUint32(0).PutInt32(640).PutInt32(480).PutInt32(60000),
		wayland.NewMessage(id, 1).PutUint32(0x1 | 0x2).PutInt32(o.Width).PutInt32(o.Height).PutInt32(o.Refresh),
	}
	if version >= 2 && o.Scale != 0 {
		msgs = append(msgs, wayland.NewMessage(id, 3).PutInt32(o.Scale))
	}
	if version >= 4 {
		msgs = append(msgs,
			wayland.NewMessage(id, 4).PutString(o.Name),
			wayland.NewMessage(id, 5).PutString(o.Description))
	}
	if version >= 2 {
		msgs = append(msgs, wayland.NewMessage(id, 2))
	}
	return msgs
}

func (c *Compositor) broadcast(event func(registry uint32) *wayland.Message) {
	for _, cl := range c.clientList() {
		cl.wmu.Lock()
		registries := append([]uint32(nil), cl.registries...)
		cl.wmu.Unlock()
		for _, r := range registries {
			cl.send(event(r))
		}
	}
}

// AddOutput announces a new output to every client and returns its
// registry name.
func (c *Compositor) AddOutput(o Output) uint32 {
	c.mu.Lock()
	g := c.addGlobalLocked(wayland.OutputInterface, 4, &o)
	c.mu.Unlock()
	c.broadcast(func(r uint32) *wayland.Message { return globalEvent(r, g) })
	return g.name
}

// RemoveGlobal withdraws the global with the given registry name.
func (c *Compositor) RemoveGlobal(name uint32) {
	c.mu.Lock()
	for i, g := range c.globals {
		if g.name == name {
			c.globals = append(c.globals[:i], c.globals[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.broadcast(func(r uint32) *wayland.Message {
		return wayland.NewMessage(r, 1).PutUint32(name)
	})
}

// SendError sends a fatal protocol error to every client and
// disconnects them.
func (c *Compositor) SendError(objectID, code uint32, message string) {
	for _, cl := range c.clientList() {
		cl.send(wayland.NewMessage(1, 0).PutUint32(objectID).PutUint32(code).PutString(message))
		cl.conn.Close()
	}
}

// Disconnect drops every client connection.
func (c *Compositor) Disconnect() {
	for _, cl := range c.clientList() {
		cl.conn.Close()
	}
}

func (c *Compositor) clientList() []*client {
	c.mu.Lock()
	defer c.mu.Unlock()
	clients := make([]*client, 0, len(c.clients))
	for cl := range c.clients {
		clients = append(clients, cl)
	}
	return clients
}

// Requests returns the requests received so far, in order.
func (c *Compositor) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requests...)
}

// Close stops the compositor and drops its clients.
func (c *Compositor) Close() error {
	c.tomb.Kill(nil)
	err := c.listener.Close()
	c.Disconnect()
	c.tomb.Wait()
	return err
}
