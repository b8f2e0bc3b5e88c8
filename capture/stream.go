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

package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"gopkg.in/tomb.v2"

	"github.com/snapcore/desktop-portal/logger"
)

var streamStopTimeout = 5 * time.Second

// StreamOptions selects what a stream captures.
type StreamOptions struct {
	// Output is the name of the output to capture.
	Output string
	// ShowCursor embeds the cursor in the stream.
	ShowCursor bool
}

// Stream is a running screen cast helper. The helper is started with
// the output to capture, prints the id of the PipeWire node carrying
// the stream on its first line and runs until it is told to stop.
type Stream struct {
	NodeID uint32

	cmd  *exec.Cmd
	tomb tomb.Tomb
}

type lineWriter struct {
	mu    sync.Mutex
	buf   []byte
	first chan string
	sent  bool
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := string(w.buf[:i])
		w.buf = w.buf[i+1:]
		if !w.sent {
			w.sent = true
			w.first <- line
			continue
		}
		logger.Debugf("screen cast helper: %s", line)
	}
	return len(p), nil
}

// StartStream runs helper and waits until it reports its node id.
// Cancelling ctx before that stops the helper.
func StartStream(ctx context.Context, helper string, opts StreamOptions) (*Stream, error) {
	args := []string{"--output", opts.Output}
	if opts.ShowCursor {
		args = append(args, "--cursor")
	}
	stdout := &lineWriter{first: make(chan string, 1)}
	cmd := exec.Command(helper, args...)
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	// children of the helper may keep stdout open after it is gone
	cmd.WaitDelay = time.Second
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cannot start screen cast helper: %v", err)
	}

	s := &Stream{cmd: cmd}
	s.tomb.Go(s.wait)

	select {
	case line := <-stdout.first:
		id, err := strconv.ParseUint(strings.TrimSpace(line), 10, 32)
		if err != nil {
			s.Stop()
			return nil, fmt.Errorf("cannot start screen cast: invalid node id %q", line)
		}
		s.NodeID = uint32(id)
	case <-s.tomb.Dying():
		s.tomb.Wait()
		if err := s.tomb.Err(); err != nil {
			return nil, fmt.Errorf("cannot start screen cast: %v", err)
		}
		return nil, fmt.Errorf("cannot start screen cast: helper exited")
	case <-ctx.Done():
		s.Stop()
		return nil, ctx.Err()
	}
	logger.Debugf("screen cast of %s running as node %d", opts.Output, s.NodeID)
	return s, nil
}

func (s *Stream) wait() error {
	exited := make(chan error, 1)
	go func() { exited <- s.cmd.Wait() }()

	select {
	case err := <-exited:
		if err != nil {
			return fmt.Errorf("screen cast helper failed: %v", err)
		}
		return nil
	case <-s.tomb.Dying():
	}

	s.cmd.Process.Signal(unix.SIGTERM)
	select {
	case <-exited:
	case <-time.After(streamStopTimeout):
		logger.Noticef("screen cast helper did not stop, killing it")
		s.cmd.Process.Kill()
		<-exited
	}
	return nil
}

// Dead returns a channel that is closed once the helper is gone.
func (s *Stream) Dead() <-chan struct{} {
	return s.tomb.Dead()
}

// Stop stops the helper and waits for it to exit. Stopping a stream
// more than once is harmless.
func (s *Stream) Stop() error {
	s.tomb.Kill(nil)
	return s.tomb.Wait()
}
