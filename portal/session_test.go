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
	"bytes"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	. "gopkg.in/check.v1"

	"github.com/snapcore/desktop-portal/logger"
	"github.com/snapcore/desktop-portal/portal"
	"github.com/snapcore/desktop-portal/portal/portaltest"
)

type portalPath = dbus.ObjectPath

const sessionPath = portalPath("/org/freedesktop/portal/desktop/session/1_42/s")

type sessionSuite struct {
	conn   *portaltest.Conn
	server *portal.Server

	logbuf        *bytes.Buffer
	restoreLogger func()
}

var _ = Suite(&sessionSuite{})

func (s *sessionSuite) SetUpTest(c *C) {
	s.conn = portaltest.NewConn()
	s.server = portal.NewServer(s.conn)
	s.logbuf, s.restoreLogger = logger.MockLogger()
}

func (s *sessionSuite) TearDownTest(c *C) {
	s.restoreLogger()
}

func (s *sessionSuite) TestCloseSequence(c *C) {
	var events []string
	sess, err := portal.NewSession(s.server, sessionPath, func() {
		// the session is already gone when the callback runs
		events = append(events, fmt.Sprintf("callback exported:%v", s.conn.Exported(sessionPath, portal.SessionInterface)))
	})
	c.Assert(err, IsNil)
	c.Check(sess.Path(), Equals, sessionPath)
	c.Check(sess.Closed(), Equals, false)

	out, err := s.conn.Call(sessionPath, portal.SessionInterface, "Close")
	c.Assert(err, IsNil)
	c.Check(out, HasLen, 0)
	c.Check(sess.Closed(), Equals, true)

	c.Check(s.conn.Events(), DeepEquals, []string{
		"export " + string(sessionPath) + " org.freedesktop.DBus.Introspectable",
		"export " + string(sessionPath) + " org.freedesktop.DBus.Properties",
		"export " + string(sessionPath) + " org.freedesktop.impl.portal.Session",
		// Closed goes out before the object disappears
		"emit " + string(sessionPath) + " org.freedesktop.impl.portal.Session.Closed",
		"unexport " + string(sessionPath) + " org.freedesktop.impl.portal.Session",
		"unexport " + string(sessionPath) + " org.freedesktop.DBus.Properties",
		"unexport " + string(sessionPath) + " org.freedesktop.DBus.Introspectable",
	})
	c.Check(events, DeepEquals, []string{"callback exported:false"})
	c.Check(s.conn.Signals(), HasLen, 1)

	// further calls fail
	_, err = s.conn.Call(sessionPath, portal.SessionInterface, "Close")
	c.Assert(err, NotNil)
	c.Check(err.(*dbus.Error).Name, Equals, portaltest.ErrUnknownObject)
	_, err = s.conn.Call(sessionPath, "org.freedesktop.DBus.Properties", "Get", portal.SessionInterface, "version")
	c.Check(err.(*dbus.Error).Name, Equals, portaltest.ErrUnknownObject)
}

func (s *sessionSuite) TestCloseTwiceRunsCallbackOnce(c *C) {
	n := 0
	sess, err := portal.NewSession(s.server, sessionPath, func() { n++ })
	c.Assert(err, IsNil)

	c.Check(sess.Close(), IsNil)
	c.Check(sess.Close(), IsNil)
	c.Check(n, Equals, 1)
	c.Check(s.conn.Signals(), HasLen, 1)
}

func (s *sessionSuite) TestConcurrentClose(c *C) {
	var mu sync.Mutex
	n := 0
	sess, err := portal.NewSession(s.server, sessionPath, func() {
		mu.Lock()
		defer mu.Unlock()
		n++
	})
	c.Assert(err, IsNil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Close()
		}()
	}
	wg.Wait()

	c.Check(n, Equals, 1)
	c.Check(s.conn.Signals(), HasLen, 1)
}

func (s *sessionSuite) TestCallbackMayCloseSession(c *C) {
	var sess *portal.Session
	n := 0
	sess, err := portal.NewSession(s.server, sessionPath, func() {
		n++
		// backend-initiated teardown re-entering Close is harmless
		sess.Close()
	})
	c.Assert(err, IsNil)

	c.Check(sess.Close(), IsNil)
	c.Check(n, Equals, 1)
}

func (s *sessionSuite) TestCloseErrorsAreLoggedNotReturned(c *C) {
	n := 0
	_, err := portal.NewSession(s.server, sessionPath, func() { n++ })
	c.Assert(err, IsNil)

	s.conn.EmitError = fmt.Errorf("cannot emit")
	s.conn.UnexportError = fmt.Errorf("cannot unexport")

	_, err = s.conn.Call(sessionPath, portal.SessionInterface, "Close")
	c.Assert(err, IsNil)
	c.Check(n, Equals, 1)
	c.Check(s.logbuf.String(), Matches, `(?s).*cannot emit Closed for session /org/freedesktop/portal/desktop/session/1_42/s: cannot emit.*`)
	c.Check(s.logbuf.String(), Matches, `(?s).*cannot unregister session /org/freedesktop/portal/desktop/session/1_42/s: .*cannot unexport.*`)
}

func (s *sessionSuite) TestNilCallback(c *C) {
	sess, err := portal.NewSession(s.server, sessionPath, nil)
	c.Assert(err, IsNil)
	c.Check(sess.Close(), IsNil)
	c.Check(sess.Closed(), Equals, true)
}

func (s *sessionSuite) TestVersion(c *C) {
	sess, err := portal.NewSession(s.server, sessionPath, nil)
	c.Assert(err, IsNil)
	c.Check(sess.Version(), Equals, uint32(1))

	out, err := s.conn.Call(sessionPath, "org.freedesktop.DBus.Properties", "Get", portal.SessionInterface, "version")
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, []interface{}{dbus.MakeVariant(uint32(1))})
}
