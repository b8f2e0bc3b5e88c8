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

package testutil

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/godbus/dbus/v5"
	"gopkg.in/check.v1"
	"gopkg.in/retry.v1"
)

const sessionBusConfigTemplate = `<busconfig>
  <type>session</type>
  <listen>unix:path=%s/user_bus_socket</listen>
  <auth>EXTERNAL</auth>
  <policy context="default">
    <!-- Allow everything to be sent -->
    <allow send_destination="*" eavesdrop="true"/>
    <!-- Allow everything to be received -->
    <allow eavesdrop="true"/>
    <!-- Allow anyone to own anything -->
    <allow own="*"/>
  </policy>
</busconfig>
`

// DBusTest provides a separate dbus session bus for running tests
type DBusTest struct {
	tmpdir           string
	dbusDaemon       *exec.Cmd
	oldSessionBusEnv string

	// the dbus.Conn to the session bus that tests can use
	SessionBus *dbus.Conn
}

func (s *DBusTest) SetUpSuite(c *check.C) {
	if _, err := exec.LookPath("dbus-daemon"); err != nil {
		c.Skip(fmt.Sprintf("cannot run test without dbus-daemon: %s", err))
		return
	}

	s.tmpdir = c.MkDir()
	busConfig := filepath.Join(s.tmpdir, "session-bus.conf")
	err := os.WriteFile(busConfig, []byte(fmt.Sprintf(sessionBusConfigTemplate, s.tmpdir)), 0644)
	c.Assert(err, check.IsNil)
	s.dbusDaemon = exec.Command("dbus-daemon", "--print-address", fmt.Sprintf("--config-file=%s", busConfig))
	s.dbusDaemon.Stderr = os.Stderr
	pout, err := s.dbusDaemon.StdoutPipe()
	c.Assert(err, check.IsNil)
	err = s.dbusDaemon.Start()
	c.Assert(err, check.IsNil)

	scanner := bufio.NewScanner(pout)
	scanner.Scan()
	c.Assert(scanner.Err(), check.IsNil)
	s.oldSessionBusEnv = os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	os.Setenv("DBUS_SESSION_BUS_ADDRESS", scanner.Text())

	s.SessionBus, err = dbus.SessionBusPrivate()
	c.Assert(err, check.IsNil)
	err = s.SessionBus.Auth(nil)
	c.Assert(err, check.IsNil)
	err = s.SessionBus.Hello()
	c.Assert(err, check.IsNil)
}

func (s *DBusTest) TearDownSuite(c *check.C) {
	if s.SessionBus != nil {
		s.SessionBus.Close()
	}

	os.Setenv("DBUS_SESSION_BUS_ADDRESS", s.oldSessionBusEnv)
	if s.dbusDaemon != nil && s.dbusDaemon.Process != nil {
		err := s.dbusDaemon.Process.Kill()
		c.Assert(err, check.IsNil)
		err = s.dbusDaemon.Wait() // do cleanup
		c.Assert(err, check.ErrorMatches, `(?i)signal: killed`)
	}
}

func (s *DBusTest) SetUpTest(c *check.C)    {}
func (s *DBusTest) TearDownTest(c *check.C) {}

// DBusGetConnectionUnixProcessID returns the pid of the process owning
// the given bus name.
func DBusGetConnectionUnixProcessID(conn *dbus.Conn, name string) (pid int, err error) {
	obj := conn.Object("org.freedesktop.DBus", "/org/freedesktop/DBus")

	var upid uint32
	if err := obj.Call("org.freedesktop.DBus.GetConnectionUnixProcessID", 0, name).Store(&upid); err != nil {
		return 0, err
	}
	return int(upid), nil
}

var busNameRetryStrategy = retry.Exponential{
	Initial:  10 * time.Millisecond,
	Factor:   1.5,
	MaxDelay: 250 * time.Millisecond,
}

// DBusWaitForName polls the bus until the given well-known name has an
// owner or the timeout expires.
func DBusWaitForName(conn *dbus.Conn, name string, timeout time.Duration) error {
	for a := retry.Start(retry.LimitTime(timeout, busNameRetryStrategy), nil); a.Next(); {
		var hasOwner bool
		err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, name).Store(&hasOwner)
		if err != nil {
			return err
		}
		if hasOwner {
			return nil
		}
	}
	return fmt.Errorf("name %q has not appeared on the bus after %v", name, timeout)
}
