package shell

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeLua(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commands.lua")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write lua script: %v", err)
	}
	return path
}

func TestLuaSource_Table(t *testing.T) {
	path := writeLua(t, `commands = { "edit a.txt", "buffer-list", "quit" }`)

	src, err := NewLuaSource(path)
	if err != nil {
		t.Fatalf("NewLuaSource() error = %v", err)
	}

	want := []string{"edit a.txt", "buffer-list", "quit"}
	for i, w := range want {
		cmd, err := src.Next()
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if cmd != w {
			t.Errorf("Next() #%d = %q, want %q", i, cmd, w)
		}
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() at end error = %v, want io.EOF", err)
	}
}

func TestLuaSource_Function(t *testing.T) {
	path := writeLua(t, `
local n = 0
function commands()
  n = n + 1
  if n > 3 then return nil end
  return "edit file-" .. n .. ".txt"
end
`)

	src, err := NewLuaSource(path)
	if err != nil {
		t.Fatalf("NewLuaSource() error = %v", err)
	}

	want := []string{"edit file-1.txt", "edit file-2.txt", "edit file-3.txt"}
	for i, w := range want {
		cmd, err := src.Next()
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if cmd != w {
			t.Errorf("Next() #%d = %q, want %q", i, cmd, w)
		}
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() at end error = %v, want io.EOF", err)
	}
	// A closed source stays exhausted.
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after close error = %v, want io.EOF", err)
	}
}

func TestLuaSource_ScriptError(t *testing.T) {
	path := writeLua(t, `this is not lua`)
	if _, err := NewLuaSource(path); err == nil {
		t.Fatal("NewLuaSource() of an invalid script should fail")
	}
}

func TestLuaSource_MissingGlobal(t *testing.T) {
	path := writeLua(t, `x = 1`)
	if _, err := NewLuaSource(path); err == nil {
		t.Fatal("NewLuaSource() without a commands global should fail")
	}
}

func TestLuaSource_WrongGlobalType(t *testing.T) {
	path := writeLua(t, `commands = 42`)
	if _, err := NewLuaSource(path); err == nil {
		t.Fatal("NewLuaSource() with a number commands global should fail")
	}
}

func TestLuaSource_NonStringTableEntry(t *testing.T) {
	path := writeLua(t, `commands = { "edit a.txt", 42 }`)
	if _, err := NewLuaSource(path); err == nil {
		t.Fatal("NewLuaSource() with a non-string entry should fail")
	}
}

func TestLuaSource_FunctionReturnsWrongType(t *testing.T) {
	path := writeLua(t, `function commands() return 42 end`)

	src, err := NewLuaSource(path)
	if err != nil {
		t.Fatalf("NewLuaSource() error = %v", err)
	}
	if _, err := src.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want a type error", err)
	}
}

func TestLuaSource_FunctionRaises(t *testing.T) {
	path := writeLua(t, `function commands() error("boom") end`)

	src, err := NewLuaSource(path)
	if err != nil {
		t.Fatalf("NewLuaSource() error = %v", err)
	}
	if _, err := src.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want a script error", err)
	}
}
