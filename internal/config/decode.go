package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the on-disk layout shared by every supported format.
type fileConfig struct {
	WorktreeRoot string        `toml:"worktree_root" yaml:"worktree_root" json:"worktree_root"`
	Copy         fileCopy      `toml:"copy" yaml:"copy" json:"copy"`
	PostCommands []fileCommand `toml:"post_commands" yaml:"post_commands" json:"post_commands"`
}

type fileCopy struct {
	Files []string `toml:"files" yaml:"files" json:"files"`
}

type fileCommand struct {
	Run   string            `toml:"run" yaml:"run" json:"run"`
	Dir   string            `toml:"dir" yaml:"dir" json:"dir"`
	Shell *bool             `toml:"shell" yaml:"shell" json:"shell"`
	Env   map[string]string `toml:"env" yaml:"env" json:"env"`
}

// decodeFile parses data according to the extension of path. It returns the
// keys the decoder did not recognise (TOML only) so callers can warn about
// typos such as "post_command".
func decodeFile(path string, data []byte) (*fileConfig, []string, error) {
	var fc fileConfig

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&fc)
		if err != nil {
			return nil, nil, err
		}
		var unknown []string
		for _, key := range md.Undecoded() {
			unknown = append(unknown, key.String())
		}
		return &fc, unknown, nil

	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, nil, err
		}
		return &fc, nil, nil

	case ".json", ".jsonc":
		// JSON config files may carry comments and trailing commas.
		if err := json.Unmarshal(jsonc.ToJSON(data), &fc); err != nil {
			return nil, nil, err
		}
		return &fc, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported config format %q (use .toml, .yaml or .json)", ext)
	}
}
