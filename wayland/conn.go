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

// Package wayland implements the small part of the Wayland client
// protocol the portal needs: the registry and the outputs advertised by
// the compositor.
package wayland

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
	"gopkg.in/tomb.v2"

	"github.com/snapcore/desktop-portal/dirs"
	"github.com/snapcore/desktop-portal/logger"
	"github.com/snapcore/desktop-portal/osutil"
)

const displayID = 1

const (
	displaySync        = 0
	displayGetRegistry = 1

	displayEventError    = 0
	displayEventDeleteID = 1

	registryBind = 0

	registryEventGlobal       = 0
	registryEventGlobalRemove = 1

	callbackEventDone = 0

	outputEventGeometry    = 0
	outputEventMode        = 1
	outputEventDone        = 2
	outputEventScale       = 3
	outputEventName        = 4
	outputEventDescription = 5

	outputModeCurrent = 0x1
)

// OutputInterface is the name of the wl_output global.
const OutputInterface = "wl_output"

// newest wl_output version whose events we understand
const maxOutputVersion = 4

var (
	// ErrNoDisplay is returned when there is no compositor socket.
	ErrNoDisplay = errors.New("no wayland display")
	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("wayland connection closed")
)

// ProtocolError is a fatal error sent by the compositor.
type ProtocolError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wayland protocol error on object %d (code %d): %s", e.ObjectID, e.Code, e.Message)
}

// Global is an object advertised by the compositor registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Output describes a wl_output as last announced by the compositor.
type Output struct {
	// Global is the registry name of the output.
	Global uint32

	Name        string
	Description string
	Make        string
	Model       string

	X, Y           int32
	PhysicalWidth  int32
	PhysicalHeight int32
	Transform      int32

	Width   int32
	Height  int32
	Refresh int32
	Scale   int32
}

type output struct {
	id      uint32
	current Output
	pending Output
}

type handler func(args *Args) error

// Conn is a connection to a Wayland compositor. It is safe for
// concurrent use; events are read on a single goroutine.
type Conn struct {
	sock *net.UnixConn
	tomb tomb.Tomb

	wmu sync.Mutex

	mu         sync.RWMutex
	nextID     uint32
	registryID uint32
	handlers   map[uint32]handler
	globals    map[uint32]Global
	outputs    map[uint32]*output
}

var getUcred = unix.GetsockoptUcred

// SocketPath returns the path of the compositor socket named by
// WAYLAND_DISPLAY, which defaults to wayland-0 and is relative to
// XDG_RUNTIME_DIR unless absolute.
func SocketPath() string {
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	if filepath.IsAbs(display) {
		return display
	}
	return filepath.Join(dirs.XdgRuntimeDir, display)
}

// Connect opens a connection to the compositor and waits for its
// globals and outputs to be announced.
func Connect(ctx context.Context) (*Conn, error) {
	path := SocketPath()
	if !osutil.IsUnixSocket(path) {
		return nil, xerrors.Errorf("cannot connect to compositor at %q: %w", path, ErrNoDisplay)
	}
	sock, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, xerrors.Errorf("cannot connect to compositor at %q: %w", path, err)
	}
	if err := checkPeer(sock); err != nil {
		sock.Close()
		return nil, xerrors.Errorf("cannot connect to compositor at %q: %w", path, err)
	}
	c := newConn(sock)
	if err := c.init(ctx); err != nil {
		c.Close()
		return nil, err
	}
	logger.Debugf("connected to compositor at %s with %d outputs", path, len(c.Outputs()))
	return c, nil
}

func checkPeer(sock *net.UnixConn) error {
	raw, err := sock.SyscallConn()
	if err != nil {
		return err
	}
	var ucred *unix.Ucred
	var credErr error
	err = raw.Control(func(fd uintptr) {
		ucred, credErr = getUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return err
	}
	if credErr != nil {
		return credErr
	}
	if ucred.Uid != 0 && ucred.Uid != uint32(os.Geteuid()) {
		return fmt.Errorf("compositor is owned by user %d", ucred.Uid)
	}
	return nil
}

func newConn(sock *net.UnixConn) *Conn {
	c := &Conn{
		sock:     sock,
		nextID:   displayID + 1,
		handlers: make(map[uint32]handler),
		globals:  make(map[uint32]Global),
		outputs:  make(map[uint32]*output),
	}
	c.handlers[displayID] = c.handleDisplay
	c.tomb.Go(c.readLoop)
	return c
}

func (c *Conn) init(ctx context.Context) error {
	c.mu.Lock()
	c.registryID = c.newIDLocked(c.handleRegistry)
	registryID := c.registryID
	c.mu.Unlock()

	if err := c.send(NewMessage(displayID, displayGetRegistry).PutUint32(registryID)); err != nil {
		return err
	}
	// the first roundtrip delivers the globals, the second the events
	// of the outputs bound while handling them
	for i := 0; i < 2; i++ {
		if err := c.Roundtrip(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) newIDLocked(h handler) uint32 {
	id := c.nextID
	c.nextID++
	c.handlers[id] = h
	return id
}

func (c *Conn) send(m *Message) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if !c.tomb.Alive() {
		// send also runs on the reader goroutine, so it must not wait
		// for the tomb to die
		return c.dyingErr()
	}
	if _, err := c.sock.Write(data); err != nil {
		return xerrors.Errorf("cannot send wayland request: %w", err)
	}
	return nil
}

// Roundtrip blocks until the compositor has processed every request
// sent so far and all resulting events have been handled.
func (c *Conn) Roundtrip(ctx context.Context) error {
	done := make(chan struct{})
	c.mu.Lock()
	id := c.newIDLocked(func(args *Args) error {
		if args.Opcode != callbackEventDone {
			return nil
		}
		select {
		case <-done:
		default:
			close(done)
		}
		return nil
	})
	c.mu.Unlock()

	if err := c.send(NewMessage(displayID, displaySync).PutUint32(id)); err != nil {
		c.forget(id)
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.tomb.Dying():
		return c.deadErr()
	case <-ctx.Done():
		// the handler stays until the compositor deletes the id
		return ctx.Err()
	}
}

func (c *Conn) forget(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, id)
}

func (c *Conn) deadErr() error {
	<-c.tomb.Dead()
	if err := c.tomb.Err(); err != nil {
		return err
	}
	return ErrClosed
}

func (c *Conn) dyingErr() error {
	if err := c.tomb.Err(); err != nil && err != tomb.ErrStillAlive {
		return err
	}
	return ErrClosed
}

func (c *Conn) readLoop() error {
	for {
		args, err := ReadMessage(c.sock)
		if err != nil {
			select {
			case <-c.tomb.Dying():
				return nil
			default:
			}
			return xerrors.Errorf("cannot read from compositor: %w", err)
		}
		c.mu.RLock()
		h := c.handlers[args.Sender]
		c.mu.RUnlock()
		if h == nil {
			logger.Debugf("ignoring event %d for unknown wayland object %d", args.Opcode, args.Sender)
			continue
		}
		if err := h(args); err != nil {
			return err
		}
		if err := args.Err(); err != nil {
			return xerrors.Errorf("cannot decode wayland event: %w", err)
		}
	}
}

func (c *Conn) handleDisplay(args *Args) error {
	switch args.Opcode {
	case displayEventError:
		perr := &ProtocolError{
			ObjectID: args.Uint32(),
			Code:     args.Uint32(),
			Message:  args.Str(),
		}
		if err := args.Err(); err != nil {
			return err
		}
		return perr
	case displayEventDeleteID:
		id := args.Uint32()
		c.forget(id)
	}
	return nil
}

func (c *Conn) handleRegistry(args *Args) error {
	switch args.Opcode {
	case registryEventGlobal:
		g := Global{
			Name:      args.Uint32(),
			Interface: args.Str(),
			Version:   args.Uint32(),
		}
		if args.Err() != nil {
			return nil
		}
		c.mu.Lock()
		c.globals[g.Name] = g
		c.mu.Unlock()
		if g.Interface == OutputInterface {
			return c.bindOutput(g)
		}
	case registryEventGlobalRemove:
		name := args.Uint32()
		c.mu.Lock()
		delete(c.globals, name)
		if o, ok := c.outputs[name]; ok {
			// the object stays valid until we release it, but its
			// events are no longer interesting
			c.handlers[o.id] = func(*Args) error { return nil }
			delete(c.outputs, name)
		}
		c.mu.Unlock()
	}
	return nil
}

func (c *Conn) bindOutput(g Global) error {
	version := g.Version
	if version > maxOutputVersion {
		version = maxOutputVersion
	}
	c.mu.Lock()
	o := &output{current: Output{Global: g.Name, Scale: 1}}
	o.pending = o.current
	o.id = c.newIDLocked(func(args *Args) error {
		c.handleOutput(o, args)
		return nil
	})
	c.outputs[g.Name] = o
	registryID := c.registryID
	c.mu.Unlock()

	m := NewMessage(registryID, registryBind).
		PutUint32(g.Name).
		PutString(g.Interface).
		PutUint32(version).
		PutUint32(o.id)
	return c.send(m)
}

func (c *Conn) handleOutput(o *output, args *Args) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &o.pending
	switch args.Opcode {
	case outputEventGeometry:
		p.X = args.Int32()
		p.Y = args.Int32()
		p.PhysicalWidth = args.Int32()
		p.PhysicalHeight = args.Int32()
		args.Int32() // subpixel
		p.Make = args.Str()
		p.Model = args.Str()
		p.Transform = args.Int32()
	case outputEventMode:
		flags := args.Uint32()
		width, height, refresh := args.Int32(), args.Int32(), args.Int32()
		if flags&outputModeCurrent != 0 {
			p.Width, p.Height, p.Refresh = width, height, refresh
		}
	case outputEventScale:
		p.Scale = args.Int32()
	case outputEventName:
		p.Name = args.Str()
	case outputEventDescription:
		p.Description = args.Str()
	case outputEventDone:
		o.current = o.pending
	}
}

// Globals returns the globals currently advertised, ordered by name.
func (c *Conn) Globals() []Global {
	c.mu.RLock()
	defer c.mu.RUnlock()
	globals := make([]Global, 0, len(c.globals))
	for _, g := range c.globals {
		globals = append(globals, g)
	}
	sort.Slice(globals, func(i, j int) bool { return globals[i].Name < globals[j].Name })
	return globals
}

// Outputs returns the outputs currently known, ordered by registry
// name. Only state confirmed by a done event is reported.
func (c *Conn) Outputs() []Output {
	c.mu.RLock()
	defer c.mu.RUnlock()
	outputs := make([]Output, 0, len(c.outputs))
	for _, o := range c.outputs {
		outputs = append(outputs, o.current)
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Global < outputs[j].Global })
	return outputs
}

// Err returns the error that ended the connection, ErrClosed if it was
// closed locally, or nil while it is alive.
func (c *Conn) Err() error {
	if c.tomb.Alive() {
		return nil
	}
	return c.deadErr()
}

// Dead returns a channel that is closed once the connection is gone.
func (c *Conn) Dead() <-chan struct{} {
	return c.tomb.Dead()
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.tomb.Kill(nil)
	err := c.sock.Close()
	c.tomb.Wait()
	return err
}
