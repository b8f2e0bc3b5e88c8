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

package notification

import "fmt"

// Urgency describes the importance of a notification message.
//
// Specification: https://specifications.freedesktop.org/notification-spec/latest/urgency-levels.html
type Urgency byte

const (
	// LowUrgency indicates that a notification message is below normal priority.
	LowUrgency Urgency = 0
	// NormalUrgency indicates that a notification message has the regular priority.
	NormalUrgency Urgency = 1
	// CriticalUrgency indicates that a notification message is above normal
	// priority. Servers keep such messages until they are dismissed.
	CriticalUrgency Urgency = 2
)

// String implements the Stringer interface.
func (u Urgency) String() string {
	switch u {
	case LowUrgency:
		return "low"
	case NormalUrgency:
		return "normal"
	case CriticalUrgency:
		return "critical"
	default:
		return fmt.Sprintf("Urgency(%d)", byte(u))
	}
}

// WithUrgency returns a hint asking the server to set message urgency.
func WithUrgency(u Urgency) Hint {
	return Hint{Name: "urgency", Value: &u}
}

// Category is a string indicating the category of a notification message.
type Category string

const (
	// DeviceCategory is a generic notification category related to hardware devices.
	DeviceCategory Category = "device"
	// TransferCompleteCategory indicates that a file was written.
	TransferCompleteCategory Category = "transfer.complete"
)

// WithCategory returns a hint asking the server to set message category.
func WithCategory(c Category) Hint {
	return Hint{Name: "category", Value: &c}
}

// WithDesktopEntry returns a hint associating a desktop file with a message.
//
// The desktopEntryName is the name of the desktop file without the ".desktop"
// extension.
func WithDesktopEntry(desktopEntryName string) Hint {
	return Hint{Name: "desktop-entry", Value: &desktopEntryName}
}

// WithTransient returns a hint asking the server to bypass message persistence.
func WithTransient() Hint {
	t := true
	return Hint{Name: "transient", Value: &t}
}

// WithResident returns a hint asking the server to keep the message after an
// action is invoked.
func WithResident() Hint {
	t := true
	return Hint{Name: "resident", Value: &t}
}

// WithImageFile returns a hint asking the server display an image loaded from file.
func WithImageFile(path string) Hint {
	// the hint is called image-path by the notification server
	return Hint{Name: "image-path", Value: &path}
}
