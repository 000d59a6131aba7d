package shell

import (
	"fmt"
	"io"

	lua "github.com/yuin/gopher-lua"
)

// LuaSource pulls commands from a Lua script. The script defines a
// global `commands` as either a table of strings, replayed in order,
// or a function returning the next command string and nil when the
// source is exhausted:
//
//	local n = 0
//	function commands()
//	  n = n + 1
//	  if n > 3 then return nil end
//	  return "edit file-" .. n .. ".txt"
//	end
//
// Only the base, table, string, and math libraries are opened; scripts
// produce commands, they do not touch the system.
type LuaSource struct {
	state *lua.LState
	fn    *lua.LFunction
	queue []string
	pos   int
	done  bool
}

// NewLuaSource loads and runs the script, then binds the commands
// global. Script errors surface here, before the session starts.
func NewLuaSource(path string) (*LuaSource, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("lua script %s: %w", path, err)
	}

	src := &LuaSource{state: L}

	switch v := L.GetGlobal("commands").(type) {
	case *lua.LTable:
		for i := 1; i <= v.Len(); i++ {
			item := v.RawGetInt(i)
			str, ok := item.(lua.LString)
			if !ok {
				L.Close()
				return nil, fmt.Errorf("lua script %s: commands[%d] is %s, want string", path, i, item.Type())
			}
			src.queue = append(src.queue, string(str))
		}
	case *lua.LFunction:
		src.fn = v
	default:
		L.Close()
		return nil, fmt.Errorf("lua script %s: commands must be a table or function, got %s", path, v.Type())
	}

	return src, nil
}

// Next returns the next command from the table or generator function.
func (s *LuaSource) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	if s.fn == nil {
		if s.pos >= len(s.queue) {
			s.close()
			return "", io.EOF
		}
		cmd := s.queue[s.pos]
		s.pos++
		return cmd, nil
	}

	s.state.Push(s.fn)
	if err := s.state.PCall(0, 1, nil); err != nil {
		s.close()
		return "", fmt.Errorf("lua commands(): %w", err)
	}
	ret := s.state.Get(-1)
	s.state.Pop(1)

	switch v := ret.(type) {
	case lua.LString:
		return string(v), nil
	case *lua.LNilType:
		s.close()
		return "", io.EOF
	default:
		s.close()
		return "", fmt.Errorf("lua commands() returned %s, want string or nil", ret.Type())
	}
}

// close releases the Lua state. The source is exhausted afterwards.
func (s *LuaSource) close() {
	if !s.done {
		s.state.Close()
		s.done = true
	}
}
