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

// Package portald implements the desktop portal backend daemon: it
// serves the Access, Screenshot and ScreenCast backend interfaces on
// the session bus for a wlroots-style Wayland compositor.
package portald

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"gopkg.in/tomb.v2"

	"github.com/snapcore/desktop-portal/dbusutil"
	"github.com/snapcore/desktop-portal/desktop/notification"
	"github.com/snapcore/desktop-portal/desktop/ui"
	"github.com/snapcore/desktop-portal/logger"
	"github.com/snapcore/desktop-portal/portal"
	"github.com/snapcore/desktop-portal/portalconf"
	"github.com/snapcore/desktop-portal/systemd"
	"github.com/snapcore/desktop-portal/wayland"
)

const (
	// BusName is the well-known name the backend owns on the session
	// bus.
	BusName = "org.freedesktop.impl.portal.desktop.snapd"
	// ObjectPath is where all backend interfaces are served.
	ObjectPath dbus.ObjectPath = "/org/freedesktop/portal/desktop"
)

var connectTimeout = 10 * time.Second

var (
	waylandConnect = wayland.Connect
	newUI          = ui.New
	loadConfig     = portalconf.Load
)

// Portald is the portal backend daemon.
type Portald struct {
	// Replace takes the bus name over from a running instance.
	Replace bool

	tomb   tomb.Tomb
	conn   *dbus.Conn
	wl     *wayland.Conn
	server *portal.Server

	access     *Access
	screenshot *Screenshot
	screenCast *ScreenCast
}

// Init connects to the compositor and the session bus, exports the
// backend interfaces and finally acquires the bus name. Any failure is
// fatal.
func (pd *Portald) Init() (err error) {
	conf, err := loadConfig()
	if err != nil {
		return fmt.Errorf("cannot load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	pd.wl, err = waylandConnect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			pd.wl.Close()
			pd.wl = nil
		}
	}()
	helper := wayland.NewHelper(pd.wl)

	pd.conn, err = dbusutil.SessionBusPrivate()
	if err != nil {
		return fmt.Errorf("cannot connect to the session bus: %v", err)
	}
	defer func() {
		if err != nil {
			pd.conn.Close()
			pd.conn = nil
		}
	}()
	pd.server = portal.NewServer(pd.conn)

	dialogs, uiErr := newUI()
	if uiErr != nil {
		logger.Noticef("access dialogs are not available: %v", uiErr)
		dialogs = nil
	}

	var notes Notifier
	if conf.Notifications {
		notes = notification.New(pd.conn)
	}

	pd.access = NewAccess(pd.server, helper.Clone(), dialogs, conf.DialogTimeout)
	pd.screenshot = NewScreenshot(pd.server, helper.Clone(), conf, notes)
	pd.screenCast = NewScreenCast(pd.server, helper.Clone(), conf, notes)

	// export the interfaces before acquiring the name so that no call
	// can arrive at a path without a handler
	for _, obj := range []portal.Object{pd.access, pd.screenshot, pd.screenCast} {
		if err := pd.server.ServeAt(ObjectPath, obj); err != nil {
			return err
		}
	}

	// beyond this point the name is available and all handlers must
	// have been set up
	if err := dbusutil.RequestName(pd.conn, BusName, pd.Replace); err != nil {
		return err
	}
	return nil
}

// Start runs the daemon until it is stopped, the session bus goes away
// or the compositor connection is lost.
func (pd *Portald) Start() {
	logger.Noticef("Starting desktop portal backend")

	pd.tomb.Go(func() error {
		systemd.NotifyReady()
		if _, err := systemd.RunWatchdog(pd.tomb.Dying()); err != nil {
			logger.Noticef("cannot run systemd watchdog: %v", err)
		}

		var err error
		select {
		case <-pd.tomb.Dying():
		case <-pd.wl.Dead():
			err = fmt.Errorf("compositor connection lost: %v", pd.wl.Err())
		case <-pd.conn.Context().Done():
			err = errors.New("session bus connection lost")
		}

		pd.screenCast.CloseAll()
		pd.conn.Close()
		if err := pd.wl.Close(); err != nil {
			logger.Debugf("cannot close compositor connection: %v", err)
		}
		return err
	})
}

// Stop stops the daemon and returns why it stopped.
func (pd *Portald) Stop() error {
	pd.tomb.Kill(nil)
	return pd.tomb.Wait()
}

// Dying is closed once the daemon starts shutting down.
func (pd *Portald) Dying() <-chan struct{} {
	return pd.tomb.Dying()
}
