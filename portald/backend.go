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

package portald

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/snapcore/desktop-portal/capture"
	"github.com/snapcore/desktop-portal/desktop/notification"
	"github.com/snapcore/desktop-portal/logger"
	"github.com/snapcore/desktop-portal/portal"
	"github.com/snapcore/desktop-portal/wayland"
)

// errCancelled is returned by operations the user declined or aborted.
var errCancelled = errors.New("cancelled by the user")

const notificationAppName = "desktop-portal"

var notifyTimeout = 5 * time.Second

// Notifier shows desktop notifications.
type Notifier interface {
	Notify(ctx context.Context, replaces notification.ID, msg *notification.Message) (notification.ID, error)
	Close(ctx context.Context, id notification.ID) error
}

// backend holds what every portal interface implementation shares.
type backend struct {
	server   *portal.Server
	helper   wayland.Helper
	notifier Notifier
}

// notify shows msg if notifications are enabled. Failing to do so is
// not an error of the operation.
func (b *backend) notify(msg *notification.Message) notification.ID {
	if b.notifier == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	id, err := b.notifier.Notify(ctx, 0, msg)
	if err != nil {
		logger.Debugf("cannot notify %q: %v", msg.Title, err)
		return 0
	}
	return id
}

func (b *backend) withdraw(id notification.ID) {
	if b.notifier == nil || id == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := b.notifier.Close(ctx, id); err != nil {
		logger.Debugf("cannot withdraw notification %d: %v", id, err)
	}
}

// run performs op on behalf of the request at handle. Closing the
// request cancels the context passed to op. Errors never reach the
// caller: they end up as a cancelled or other response.
func (b *backend) run(handle dbus.ObjectPath, what string, op func(ctx context.Context) (portal.Results, error)) portal.Response[portal.Results] {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := portal.NewRequest(b.server, handle, cancel)
	if err != nil {
		logger.Noticef("cannot %s: %v", what, err)
		return portal.Other[portal.Results]()
	}
	defer req.Done()

	if err := b.helper.Err(); err != nil {
		logger.Noticef("cannot %s: compositor connection lost: %v", what, err)
		return portal.Other[portal.Results]()
	}

	results, err := op(ctx)
	switch {
	case err == nil:
		if results == nil {
			results = portal.Results{}
		}
		return portal.Success(results)
	case isCancelled(err) || req.Closed():
		logger.Debugf("%s cancelled: %v", what, err)
		return portal.Cancelled[portal.Results]()
	default:
		logger.Noticef("cannot %s: %v", what, err)
		return portal.Other[portal.Results]()
	}
}

func isCancelled(err error) bool {
	return errors.Is(err, errCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, capture.ErrSelectionCancelled)
}

func optString(options map[string]dbus.Variant, key string) (string, error) {
	v, ok := options[key]
	if !ok {
		return "", nil
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("invalid option %q: expected string, got %s", key, v.Signature())
	}
	return s, nil
}

func optBool(options map[string]dbus.Variant, key string) (bool, error) {
	v, ok := options[key]
	if !ok {
		return false, nil
	}
	b, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("invalid option %q: expected boolean, got %s", key, v.Signature())
	}
	return b, nil
}

func optUint32(options map[string]dbus.Variant, key string, dflt uint32) (uint32, error) {
	v, ok := options[key]
	if !ok {
		return dflt, nil
	}
	u, ok := v.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("invalid option %q: expected uint32, got %s", key, v.Signature())
	}
	return u, nil
}
