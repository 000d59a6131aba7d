package shell

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is a YAML batch file: a named list of commands to drive a
// session with.
//
//	name: smoke
//	commands:
//	  - edit a.txt
//	  - buffer-list
//	  - quit
type Manifest struct {
	Name     string   `yaml:"name"`
	Commands []string `yaml:"commands"`
}

// LoadManifest reads and parses a YAML manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Commands) == 0 {
		return nil, fmt.Errorf("manifest %s: no commands", path)
	}
	return &m, nil
}

// Source returns a script source over the manifest's commands.
func (m *Manifest) Source() *ScriptSource {
	return NewScriptSource(m.Commands...)
}
