// Package shell implements the command scheduler surface: command
// sources, tokenization, the introspection builtins, and the generic
// send fallback.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source yields a lazy, possibly-infinite sequence of command strings.
// Sources are not restartable: a consumed source is exhausted for good.
type Source interface {
	// Next returns the next command, or io.EOF once the source is
	// exhausted.
	Next() (string, error)
}

// ScriptSource replays a fixed command list.
type ScriptSource struct {
	commands []string
	pos      int
}

// NewScriptSource creates a source over the given commands.
func NewScriptSource(commands ...string) *ScriptSource {
	return &ScriptSource{commands: commands}
}

// Next returns the next scripted command.
func (s *ScriptSource) Next() (string, error) {
	if s.pos >= len(s.commands) {
		return "", io.EOF
	}
	cmd := s.commands[s.pos]
	s.pos++
	return cmd, nil
}

// ReaderSource yields lines from a reader, the interactive stdin
// included, until end of stream.
type ReaderSource struct {
	scanner *bufio.Scanner
}

// NewReaderSource creates a source reading one command per line.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{scanner: bufio.NewScanner(r)}
}

// Next returns the next line, stripped of surrounding whitespace.
func (s *ReaderSource) Next() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", fmt.Errorf("read command: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}

// LoadScriptFile reads a plain-text command file into a ScriptSource.
// Blank lines and lines starting with # are skipped.
func LoadScriptFile(path string) (*ScriptSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load script %s: %w", path, err)
	}

	var commands []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		commands = append(commands, line)
	}
	return NewScriptSource(commands...), nil
}
