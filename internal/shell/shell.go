package shell

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dshills/cedar/internal/logging"
	"github.com/dshills/cedar/internal/session"
)

// knownCommands maps the backend's command surface to its exact
// argument count. A wrong count is reported locally and nothing is
// sent. Anything not listed here and not a builtin goes to the backend
// as-is.
var knownCommands = map[string]int{
	"edit":          1,
	"buffer-list":   0,
	"buffer-select": 1,
	"buffer-delete": 1,
	"command-list":  0,
}

// Shell parses command lines and executes them: introspection
// builtins act on the local projection and never send; everything
// else becomes a request through the correlation engine.
type Shell struct {
	engine *session.Engine
	out    io.Writer
	log    *logging.Logger
}

// Option configures a Shell.
type Option func(*Shell)

// WithOutput sets where dump and print write. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Shell) {
		s.out = w
	}
}

// WithLogger sets the shell's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Shell) {
		s.log = l
	}
}

// New creates a shell driving the given engine.
func New(engine *session.Engine, opts ...Option) *Shell {
	s := &Shell{
		engine: engine,
		out:    os.Stdout,
		log:    logging.Null,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute tokenizes and runs one command line. The returned bool is
// true when the command was quit; errors are diagnostics for the
// operator, never fatal to the session.
//
// An empty line is a no-op. The first token selects the command:
// builtins run locally, known backend commands validate their argument
// count, and unrecognized tokens fall through to a generic send with
// the remaining tokens as parameters.
func (s *Shell) Execute(command string) (bool, error) {
	tokens, err := Tokenize(command)
	if err != nil {
		return false, fmt.Errorf("parse command: %w", err)
	}
	if len(tokens) == 0 {
		return false, nil
	}

	name, args := tokens[0], tokens[1:]

	switch name {
	case "dump":
		return false, s.cmdDump(args)
	case "print":
		return false, s.cmdPrint(args)
	case "quit":
		return true, nil
	}

	// The backend speaks hyphens; accept underscores from the operator.
	canonical := strings.ReplaceAll(name, "_", "-")
	if argc, ok := knownCommands[canonical]; ok {
		if len(args) != argc {
			return false, fmt.Errorf("%s: want %d argument(s), got %d", canonical, argc, len(args))
		}
		return false, s.send(canonical, args)
	}

	return false, s.send(name, args)
}

// send forwards a command to the engine. A single argument travels as
// a bare string, matching the backend's command parameters; more
// become a string list; none omits params entirely.
func (s *Shell) send(method string, args []string) error {
	var params any
	switch len(args) {
	case 0:
		params = nil
	case 1:
		params = args[0]
	default:
		params = args
	}
	return s.engine.Send(method, params)
}

// cmdDump prints every buffer name in insertion order, marks the
// current one, and prints each buffer's content.
func (s *Shell) cmdDump(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("dump: want no arguments, got %d", len(args))
	}

	view := s.engine.Projection()
	current := view.Current()

	for _, name := range view.Names() {
		marker := " "
		if name == current {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %s\n", marker, name)

		buf, ok := view.Get(name)
		if ok && buf.Content != "" {
			fmt.Fprint(s.out, buf.Content)
			if !strings.HasSuffix(buf.Content, "\n") {
				fmt.Fprintln(s.out)
			}
		}
	}

	if current != "" {
		if _, ok := view.Get(current); !ok {
			fmt.Fprintf(s.out, "current buffer %q no longer exists\n", current)
		}
	}
	return nil
}

// cmdPrint prints one buffer's content, defaulting to the current
// buffer. Content is written verbatim, without an added newline.
func (s *Shell) cmdPrint(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("print: want at most 1 argument, got %d", len(args))
	}

	view := s.engine.Projection()
	name := view.Current()
	if len(args) == 1 {
		name = args[0]
	}
	if name == "" {
		return fmt.Errorf("print: no current buffer")
	}

	buf, ok := view.Get(name)
	if !ok {
		return fmt.Errorf("print: no buffer %q", name)
	}
	fmt.Fprint(s.out, buf.Content)
	return nil
}
