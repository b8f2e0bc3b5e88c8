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

package portal_test

import (
	"time"

	"github.com/godbus/dbus/v5"
	. "gopkg.in/check.v1"

	"github.com/snapcore/desktop-portal/dbusutil"
	"github.com/snapcore/desktop-portal/portal"
	"github.com/snapcore/desktop-portal/testutil"
)

type busSuite struct {
	testutil.BaseTest
	testutil.DBusTest

	conn   *dbus.Conn
	server *portal.Server
}

var _ = Suite(&busSuite{})

func (s *busSuite) SetUpTest(c *C) {
	s.BaseTest.SetUpTest(c)
	s.DBusTest.SetUpTest(c)

	conn, err := dbusutil.SessionBusPrivate()
	c.Assert(err, IsNil)
	s.conn = conn
	s.AddCleanup(func() { conn.Close() })
	s.server = portal.NewServer(conn)
}

func (s *busSuite) TearDownTest(c *C) {
	s.DBusTest.TearDownTest(c)
	s.BaseTest.TearDownTest(c)
}

func (s *busSuite) object(path dbus.ObjectPath) dbus.BusObject {
	return s.SessionBus.Object(s.conn.Names()[0], path)
}

func (s *busSuite) TestSessionClosedOverTheBus(c *C) {
	called := make(chan struct{}, 2)
	_, err := portal.NewSession(s.server, sessionPath, func() { called <- struct{}{} })
	c.Assert(err, IsNil)

	err = s.SessionBus.AddMatchSignal(
		dbus.WithMatchObjectPath(sessionPath),
		dbus.WithMatchInterface(portal.SessionInterface),
		dbus.WithMatchMember("Closed"),
	)
	c.Assert(err, IsNil)
	signals := make(chan *dbus.Signal, 10)
	s.SessionBus.Signal(signals)
	defer s.SessionBus.RemoveSignal(signals)

	var version uint32
	err = s.object(sessionPath).StoreProperty(portal.SessionInterface+".version", &version)
	c.Assert(err, IsNil)
	c.Check(version, Equals, uint32(1))

	err = s.object(sessionPath).Call(portal.SessionInterface+".Close", 0).Err
	c.Assert(err, IsNil)

	select {
	case sig := <-signals:
		c.Check(sig.Path, Equals, sessionPath)
		c.Check(sig.Name, Equals, portal.SessionInterface+".Closed")
	case <-time.After(5 * time.Second):
		c.Fatal("timeout waiting for Closed")
	}
	select {
	case <-called:
	case <-time.After(5 * time.Second):
		c.Fatal("close callback not invoked")
	}

	// the session is gone from the bus
	err = s.object(sessionPath).Call(portal.SessionInterface+".Close", 0).Err
	c.Check(err, NotNil)

	select {
	case <-called:
		c.Fatal("close callback invoked twice")
	case sig := <-signals:
		c.Fatalf("unexpected signal %v", sig)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *busSuite) TestRequestCloseOverTheBus(c *C) {
	cancelled := make(chan struct{}, 2)
	req, err := portal.NewRequest(s.server, "/org/freedesktop/portal/desktop/request/1_1/t", func() {
		cancelled <- struct{}{}
	})
	c.Assert(err, IsNil)

	for i := 0; i < 2; i++ {
		err = s.object(req.Path()).Call(portal.RequestInterface+".Close", 0).Err
		c.Assert(err, IsNil)
	}
	c.Check(len(cancelled), Equals, 1)

	req.Done()
	err = s.object(req.Path()).Call(portal.RequestInterface+".Close", 0).Err
	c.Check(err, NotNil)
}

func (s *busSuite) TestIntrospectOverTheBus(c *C) {
	_, err := portal.NewSession(s.server, sessionPath, nil)
	c.Assert(err, IsNil)

	var xml string
	err = s.object(sessionPath).Call("org.freedesktop.DBus.Introspectable.Introspect", 0).Store(&xml)
	c.Assert(err, IsNil)
	c.Check(xml, Matches, `(?s).*<interface name="org.freedesktop.impl.portal.Session">.*<signal name="Closed">.*`)
}
