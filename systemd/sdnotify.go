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

package systemd

import (
	"errors"
	"time"

	"github.com/coreos/go-systemd/daemon"

	"github.com/snapcore/desktop-portal/logger"
)

var (
	sdNotify          = daemon.SdNotify
	sdWatchdogEnabled = daemon.SdWatchdogEnabled
)

// ErrNoNotifySocket is returned by SdNotify when the process was not
// started by systemd with a notification socket.
var ErrNoNotifySocket = errors.New("cannot find NOTIFY_SOCKET environment")

// SdNotify sends the given state string notification to systemd.
//
// inspired by libsystemd/sd-daemon/sd-daemon.c from the systemd source
func SdNotify(notifyState string) error {
	if notifyState == "" {
		return errors.New("cannot use empty notify state")
	}
	sent, err := sdNotify(false, notifyState)
	if err != nil {
		return err
	}
	if !sent {
		return ErrNoNotifySocket
	}
	return nil
}

// NotifyReady tells systemd that the service finished its start up. It is
// a no-op when not running under systemd.
func NotifyReady() {
	if err := SdNotify(daemon.SdNotifyReady); err != nil && err != ErrNoNotifySocket {
		logger.Noticef("cannot notify systemd of readiness: %v", err)
	}
}

// RunWatchdog pings the systemd software watchdog at half the interval
// configured via WATCHDOG_USEC until dying is closed. It returns a nil
// ticker when the watchdog is not enabled for the service.
func RunWatchdog(dying <-chan struct{}) (*time.Ticker, error) {
	interval, err := sdWatchdogEnabled(false)
	if err != nil {
		return nil, err
	}
	// not running under systemd or no watchdog configured
	if interval == 0 {
		return nil, nil
	}
	dur := interval / 2
	logger.Debugf("Setting up sd_notify() watchdog timer every %s", dur)
	wt := time.NewTicker(dur)

	go func() {
		for {
			select {
			case <-wt.C:
				if err := SdNotify(daemon.SdNotifyWatchdog); err != nil {
					logger.Debugf("cannot ping watchdog: %v", err)
				}
			case <-dying:
				return
			}
		}
	}()

	return wt, nil
}
