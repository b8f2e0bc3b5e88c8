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

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
	"golang.org/x/sys/unix"

	"github.com/snapcore/desktop-portal/i18n"
	"github.com/snapcore/desktop-portal/logger"
	"github.com/snapcore/desktop-portal/portald"
)

// Version is set at build time.
var Version = "unknown"

var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

type options struct {
	Verbose bool `short:"v" long:"verbose"`
	Replace bool `short:"r" long:"replace"`
	Version bool `long:"version"`
}

var optionsHelp = map[string]string{
	// TRANSLATORS: This should not start with a lowercase letter.
	"verbose": i18n.G("Print debug messages"),
	// TRANSLATORS: This should not start with a lowercase letter.
	"replace": i18n.G("Replace a running instance"),
	// TRANSLATORS: This should not start with a lowercase letter.
	"version": i18n.G("Print the version and exit"),
}

var longHelp = i18n.G(`
The desktop-portal command runs the desktop portal backend for wlroots
based compositors. It serves screenshots, screen casts and access
dialogs to xdg-desktop-portal on the session bus.
`)

type daemon interface {
	Init() error
	Start()
	Stop() error
	Dying() <-chan struct{}
}

var newDaemon = func(replace bool) daemon {
	return &portald.Portald{Replace: replace}
}

var signalNotify = signalNotifyImpl

func signalNotifyImpl(sig ...os.Signal) (ch chan os.Signal, stop func()) {
	ch = make(chan os.Signal, len(sig))
	signal.Notify(ch, sig...)
	stop = func() { signal.Stop(ch) }
	return ch, stop
}

func parser(opts *options) *flags.Parser {
	p := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	p.Name = "desktop-portal"
	p.LongDescription = longHelp
	for name, help := range optionsHelp {
		if opt := p.FindOptionByLongName(name); opt != nil {
			opt.Description = help
		}
	}
	return p
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	p := parser(&opts)
	rest, err := p.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(Stdout, e.Message)
			return nil
		}
		return err
	}
	if len(rest) > 0 {
		return errors.New(i18n.G("too many arguments for command"))
	}
	if opts.Version {
		fmt.Fprintf(Stdout, "desktop-portal %s\n", Version)
		return nil
	}

	logger.SimpleSetup(&logger.LoggerOptions{ForceDebug: opts.Verbose})

	d := newDaemon(opts.Replace)
	if err := d.Init(); err != nil {
		return err
	}
	d.Start()

	ch, stop := signalNotify(unix.SIGINT, unix.SIGTERM)
	defer stop()

	select {
	case sig := <-ch:
		logger.Noticef("Exiting on %s.", sig)
	case <-d.Dying():
		// the compositor or the bus went away
	}

	return d.Stop()
}
