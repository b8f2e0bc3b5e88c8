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

package ui

import (
	"context"
	"fmt"
	"html"
)

// KDialog provides a kdialog based UI interface
type KDialog struct{}

// YesNo asks a yes/no question using kdialog
func (*KDialog) YesNo(ctx context.Context, primary, secondary string, options *DialogOptions) bool {
	if options == nil {
		options = &DialogOptions{}
	}

	txt := fmt.Sprintf(`<p><big><b>%s</b></big></p><p>%s</p>`, html.EscapeString(primary), html.EscapeString(secondary))
	if options.Footer != "" {
		txt += fmt.Sprintf(`<p><small>%s</small></p>`, html.EscapeString(options.Footer))
	}
	args := []string{"--yesno=" + txt}
	if options.Title != "" {
		args = append(args, "--title", options.Title)
	}
	if options.YesLabel != "" {
		args = append(args, "--yes-label", options.YesLabel)
	}
	if options.NoLabel != "" {
		args = append(args, "--no-label", options.NoLabel)
	}
	return runDialog(ctx, options.Timeout, "kdialog", args...)
}
