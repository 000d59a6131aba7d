// Package app wires a session together and drives it: one loop that
// alternates between reading backend frames and advancing the command
// source.
package app

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dshills/cedar/internal/logging"
	"github.com/dshills/cedar/internal/session"
	"github.com/dshills/cedar/internal/shell"
)

// maxFrameSize bounds a single backend frame. Whole-buffer payloads
// ride in one line, so the limit is generous.
const maxFrameSize = 16 * 1024 * 1024

// Config assembles a session's collaborators.
type Config struct {
	// Engine correlates requests and replies and owns the projection.
	Engine *session.Engine

	// Shell turns operator commands into requests.
	Shell *shell.Shell

	// Source supplies operator commands.
	Source shell.Source

	// Input is the backend's response stream.
	Input io.Reader

	// CloseOutput closes the backend's request stream. Called once,
	// when the source is done; the backend exits on seeing EOF.
	CloseOutput func() error

	// Logger receives session diagnostics.
	Logger *logging.Logger
}

// Session drives one conversation with the backend.
//
// All engine and shell calls happen on the goroutine running Run, so
// none of the session state needs locking.
type Session struct {
	engine      *session.Engine
	shell       *shell.Shell
	source      shell.Source
	input       io.Reader
	closeOutput func() error
	log         *logging.Logger

	active    bool
	closeOnce sync.Once
	closeErr  error
}

// NewSession validates the configuration and builds a session.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("session: engine is required")
	}
	if cfg.Shell == nil {
		return nil, fmt.Errorf("session: shell is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("session: command source is required")
	}
	if cfg.Input == nil {
		return nil, fmt.Errorf("session: backend input is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Null
	}
	closeOutput := cfg.CloseOutput
	if closeOutput == nil {
		closeOutput = func() error { return nil }
	}
	return &Session{
		engine:      cfg.Engine,
		shell:       cfg.Shell,
		source:      cfg.Source,
		input:       cfg.Input,
		closeOutput: closeOutput,
		log:         log,
		active:      true,
	}, nil
}

// Run reads backend frames until the stream ends, handing each to the
// engine and then advancing the command source as far as the
// correlation state allows. The first command is not pulled until the
// first frame has arrived; the backend opens the conversation.
//
// Cancellation takes effect between frames. A caller that needs to
// interrupt a blocked read closes the backend instead.
func (s *Session) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Blank lines go through the engine too, so they surface as
		// malformed-frame diagnostics instead of vanishing.
		s.engine.Receive(bytes.TrimSpace(scanner.Bytes()))
		s.advance()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read backend: %w", err)
	}
	s.log.Debug("backend stream closed")
	return nil
}

// advance pulls and executes commands while the engine is not
// awaiting a reply. Commands that fail locally never occupy the
// request slot, so the loop keeps pulling until one is sent, the
// source runs out, or the operator quits.
func (s *Session) advance() {
	for s.active && !s.engine.Awaiting() {
		cmd, err := s.source.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("command source exhausted")
			} else {
				s.log.Error("command source: %v", err)
			}
			s.finish()
			return
		}

		quit, execErr := s.shell.Execute(cmd)
		if execErr != nil {
			s.log.Error("%v", execErr)
		}
		if quit {
			s.finish()
			return
		}
	}
}

// finish stops the scheduler and closes the request stream once. The
// session keeps draining backend frames until EOF.
func (s *Session) finish() {
	s.active = false
	s.closeOnce.Do(func() {
		s.closeErr = s.closeOutput()
		if s.closeErr != nil {
			s.log.Error("close backend input: %v", s.closeErr)
		} else {
			s.log.Debug("backend input closed")
		}
	})
}
