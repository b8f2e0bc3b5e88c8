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

// Package capture drives the external tools that take screenshots and
// let the user select parts of the screen.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapcore/desktop-portal/logger"
	"github.com/snapcore/desktop-portal/osutil"
)

// ErrSelectionCancelled is returned when the user aborts an interactive
// selection.
var ErrSelectionCancelled = errors.New("selection cancelled")

// Region is a rectangle in global compositor coordinates.
type Region struct {
	X, Y          int32
	Width, Height int32
}

// String returns the region in the geometry format of grim and slurp,
// "X,Y WxH".
func (r Region) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

// ParseRegion parses a region in the "X,Y WxH" geometry format.
func ParseRegion(s string) (Region, error) {
	var r Region
	n, err := fmt.Sscanf(strings.TrimSpace(s), "%d,%d %dx%d", &r.X, &r.Y, &r.Width, &r.Height)
	if err != nil || n != 4 {
		return Region{}, fmt.Errorf("cannot parse region %q", s)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return Region{}, fmt.Errorf("cannot parse region %q: empty", s)
	}
	return r, nil
}

// Capturer runs a screenshot command (grim compatible) and a selection
// command (slurp compatible).
type Capturer struct {
	command       string
	selectCommand string
}

// New returns a capturer using the given commands.
func New(command, selectCommand string) *Capturer {
	return &Capturer{
		command:       command,
		selectCommand: selectCommand,
	}
}

// CommandError is returned when a capture tool exits unsuccessfully.
type CommandError struct {
	Name     string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %v", filepath.Base(e.Name), e.Err)
}

func (c *Capturer) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	logger.Debugf("running %s %s", name, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CommandError{
				Name:     name,
				ExitCode: exitErr.ExitCode(),
				Err:      osutil.OutputErrCombine(stdout.Bytes(), stderr.Bytes(), err),
			}
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (c *Capturer) selectRegion(ctx context.Context, args ...string) (Region, error) {
	out, err := c.run(ctx, c.selectCommand, args...)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			// slurp exits with an error when the selection is aborted
			logger.Debugf("selection aborted: %v", err)
			return Region{}, ErrSelectionCancelled
		}
		return Region{}, err
	}
	return ParseRegion(string(out))
}

// SelectRegion lets the user draw a region.
func (c *Capturer) SelectRegion(ctx context.Context) (Region, error) {
	return c.selectRegion(ctx)
}

// SelectPoint lets the user pick a single pixel.
func (c *Capturer) SelectPoint(ctx context.Context) (Region, error) {
	r, err := c.selectRegion(ctx, "-p")
	if err != nil {
		return Region{}, err
	}
	r.Width, r.Height = 1, 1
	return r, nil
}

// SelectOutput lets the user pick an output, returning its
// rectangle.
func (c *Capturer) SelectOutput(ctx context.Context) (Region, error) {
	return c.selectRegion(ctx, "-o", "-r")
}

// Screenshot saves a PNG of the given region, or of all outputs when
// region is nil, to dest.
func (c *Capturer) Screenshot(ctx context.Context, dest string, region *Region) error {
	var args []string
	if region != nil {
		args = append(args, "-g", region.String())
	}
	args = append(args, "-t", "png", dest)
	if _, err := c.run(ctx, c.command, args...); err != nil {
		return fmt.Errorf("cannot take screenshot: %w", err)
	}
	return nil
}

// PickColor returns the color of the pixel at the origin of pt.
func (c *Capturer) PickColor(ctx context.Context, pt Region) (Color, error) {
	pt.Width, pt.Height = 1, 1
	out, err := c.run(ctx, c.command, "-g", pt.String(), "-t", "ppm", "-")
	if err != nil {
		return Color{}, fmt.Errorf("cannot pick color: %w", err)
	}
	col, err := ParsePPM(out)
	if err != nil {
		return Color{}, fmt.Errorf("cannot pick color: %w", err)
	}
	return col, nil
}

// ScreenshotPath returns the file name for a screenshot taken at t in
// dir.
func ScreenshotPath(dir string, t time.Time) string {
	return filepath.Join(dir, "Screenshot_"+t.Format("20060102_150405")+".png")
}
