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

package portald_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	. "gopkg.in/check.v1"

	"github.com/snapcore/desktop-portal/dbusutil"
	"github.com/snapcore/desktop-portal/desktop/ui"
	"github.com/snapcore/desktop-portal/portal"
	"github.com/snapcore/desktop-portal/portalconf"
	"github.com/snapcore/desktop-portal/portald"
	"github.com/snapcore/desktop-portal/testutil"
	"github.com/snapcore/desktop-portal/wayland"
)

type portaldSuite struct {
	backendSuite
}

var _ = Suite(&portaldSuite{})

func (s *portaldSuite) SetUpTest(c *C) {
	s.backendSuite.SetUpTest(c)
	s.AddCleanup(portald.MockLoadConfig(func() (*portalconf.Config, error) {
		return s.conf, nil
	}))
}

func (s *portaldSuite) TestInitConfigError(c *C) {
	s.AddCleanup(portald.MockLoadConfig(func() (*portalconf.Config, error) {
		return nil, errors.New("bad config")
	}))
	connected := false
	s.AddCleanup(portald.MockWaylandConnect(func(ctx context.Context) (*wayland.Conn, error) {
		connected = true
		return nil, errors.New("unexpected")
	}))

	pd := &portald.Portald{}
	c.Check(pd.Init(), ErrorMatches, "cannot load configuration: bad config")
	c.Check(connected, Equals, false)
}

func (s *portaldSuite) TestInitNoCompositor(c *C) {
	s.AddCleanup(portald.MockWaylandConnect(func(ctx context.Context) (*wayland.Conn, error) {
		_, ok := ctx.Deadline()
		c.Check(ok, Equals, true)
		return nil, wayland.ErrNoDisplay
	}))
	busCalled := false
	s.AddCleanup(dbusutil.MockSessionBusPrivate(func() (*dbus.Conn, error) {
		busCalled = true
		return nil, errors.New("unexpected")
	}))

	pd := &portald.Portald{}
	err := pd.Init()
	c.Check(errors.Is(err, wayland.ErrNoDisplay), Equals, true)
	c.Check(busCalled, Equals, false)
}

func (s *portaldSuite) TestInitNoSessionBus(c *C) {
	var wl *wayland.Conn
	s.AddCleanup(portald.MockWaylandConnect(func(ctx context.Context) (*wayland.Conn, error) {
		var err error
		wl, err = wayland.Connect(ctx)
		return wl, err
	}))
	s.AddCleanup(dbusutil.MockSessionBusPrivate(func() (*dbus.Conn, error) {
		return nil, errors.New("no bus")
	}))

	pd := &portald.Portald{}
	c.Check(pd.Init(), ErrorMatches, "cannot connect to the session bus: no bus")
	// the compositor connection does not leak
	c.Assert(wl, NotNil)
	c.Check(wl.Err(), Equals, wayland.ErrClosed)
}

type portaldBusSuite struct {
	backendSuite
	testutil.DBusTest

	dialogs *fakeUI
}

var _ = Suite(&portaldBusSuite{})

func (s *portaldBusSuite) SetUpTest(c *C) {
	s.backendSuite.SetUpTest(c)
	s.DBusTest.SetUpTest(c)

	s.dialogs = &fakeUI{answer: true}
	s.AddCleanup(portald.MockNewUI(func() (ui.UI, error) {
		return s.dialogs, nil
	}))
	s.AddCleanup(portald.MockLoadConfig(func() (*portalconf.Config, error) {
		return s.conf, nil
	}))
}

func (s *portaldBusSuite) TearDownTest(c *C) {
	s.DBusTest.TearDownTest(c)
	s.backendSuite.TearDownTest(c)
}

func (s *portaldBusSuite) start(c *C, replace bool) *portald.Portald {
	pd := &portald.Portald{Replace: replace}
	c.Assert(pd.Init(), IsNil)
	pd.Start()
	return pd
}

func (s *portaldBusSuite) object() dbus.BusObject {
	return s.SessionBus.Object(portald.BusName, portald.ObjectPath)
}

func (s *portaldBusSuite) TestServesAllInterfaces(c *C) {
	pd := s.start(c, false)
	defer pd.Stop()

	c.Assert(testutil.DBusWaitForName(s.SessionBus, portald.BusName, 5*time.Second), IsNil)

	var xml string
	err := s.object().Call("org.freedesktop.DBus.Introspectable.Introspect", 0).Store(&xml)
	c.Assert(err, IsNil)
	for _, iface := range []string{portald.AccessInterface, portald.ScreenshotInterface, portald.ScreenCastInterface} {
		c.Check(strings.Contains(xml, `<interface name="`+iface+`">`), Equals, true, Commentf(iface))
	}

	var version uint32
	c.Assert(s.object().StoreProperty(portald.ScreenshotInterface+".version", &version), IsNil)
	c.Check(version, Equals, uint32(2))
	c.Assert(s.object().StoreProperty(portald.ScreenCastInterface+".version", &version), IsNil)
	c.Check(version, Equals, uint32(4))
	var modes uint32
	c.Assert(s.object().StoreProperty(portald.ScreenCastInterface+".AvailableCursorModes", &modes), IsNil)
	c.Check(modes, Equals, uint32(3))

	var code uint32
	var results map[string]dbus.Variant
	err = s.object().Call(portald.AccessInterface+".AccessDialog", 0,
		handle, "org.example.Foo", "", "Allow?", "", "", map[string]dbus.Variant{}).Store(&code, &results)
	c.Assert(err, IsNil)
	c.Check(portal.ResponseCode(code), Equals, portal.ResponseSuccess)
	c.Check(results, HasLen, 1)
	c.Check(s.dialogs.Calls(), Equals, 1)

	c.Check(pd.Stop(), IsNil)
}

func (s *portaldBusSuite) TestScreenCastSessionOverTheBus(c *C) {
	s.mockCommand(c, "desktop-portal-screencast", "echo 11\nexec sleep 9999")

	pd := s.start(c, false)
	defer pd.Stop()

	call := func(method string, args ...interface{}) portal.ResponseCode {
		var code uint32
		var results map[string]dbus.Variant
		err := s.object().Call(portald.ScreenCastInterface+"."+method, 0, args...).Store(&code, &results)
		c.Assert(err, IsNil)
		return portal.ResponseCode(code)
	}
	opts := map[string]dbus.Variant{"multiple": dbus.MakeVariant(true)}
	c.Assert(call("CreateSession", handle, sessionHandle, "org.example.Foo", map[string]dbus.Variant{}), Equals, portal.ResponseSuccess)
	c.Assert(call("SelectSources", handle2, sessionHandle, "org.example.Foo", opts), Equals, portal.ResponseSuccess)
	c.Assert(call("Start", handle3, sessionHandle, "org.example.Foo", "", map[string]dbus.Variant{}), Equals, portal.ResponseSuccess)
	c.Check(pd.ScreenCast().Sessions(), Equals, 1)

	// shutting down closes running sessions
	c.Check(pd.Stop(), IsNil)
	c.Check(pd.ScreenCast().Sessions(), Equals, 0)
}

func (s *portaldBusSuite) TestCompositorGone(c *C) {
	pd := s.start(c, false)

	s.compositor.Disconnect()
	select {
	case <-pd.Dying():
	case <-time.After(5 * time.Second):
		c.Fatal("daemon still running")
	}
	c.Check(pd.Stop(), ErrorMatches, "compositor connection lost: .*")
}

func (s *portaldBusSuite) TestNameTaken(c *C) {
	pd1 := s.start(c, false)
	defer pd1.Stop()

	pd2 := &portald.Portald{}
	c.Check(pd2.Init(), ErrorMatches, `cannot obtain bus name "org.freedesktop.impl.portal.desktop.snapd"`)

	pd3 := s.start(c, true)
	c.Check(pd3.Stop(), IsNil)
}
