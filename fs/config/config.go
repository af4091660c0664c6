// Package config loads descriptor files: YAML or JSON documents holding a
// type identifier and its constructor arguments.
//
//	type: pyro.fs.dir.Dir
//	args: ["./build"]
//	kwargs: {}
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/viant/afs"
	afsfile "github.com/viant/afs/file"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/pyro/core/factory"
)

// Type is the identifier of Config in factory.Default.
const Type = factory.Root + ".fs.config.Config"

// Config is a loaded descriptor file.
type Config struct {
	Path string
	k    *koanf.Koanf
}

// Load reads the file at path, choosing the parser by extension.
func Load(path string) (*Config, error) {
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &Config{Path: path, k: k}, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// Map returns the document as a nested map.
func (c *Config) Map() map[string]any {
	return c.k.Raw()
}

// Get returns the value at a dotted key path.
func (c *Config) Get(key string) any {
	return c.k.Get(key)
}

// Descriptor decodes the document into a factory descriptor.
func (c *Config) Descriptor() (factory.Descriptor, error) {
	var d factory.Descriptor
	if err := factory.Decode(c.Map(), &d); err != nil {
		return d, fmt.Errorf("decode %s: %w", c.Path, err)
	}
	if d.Type == "" {
		return d, fmt.Errorf("%s: missing type", c.Path)
	}
	return d, nil
}

// Save writes v to path as YAML or JSON, depending on the extension.
func Save(ctx context.Context, path string, v any) error {
	if _, err := parserFor(path); err != nil {
		return err
	}
	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return afs.New().Upload(ctx, path, afsfile.DefaultFileOsMode, bytes.NewReader(data))
}

// Register adds the config loader to reg as module + ".fs.config.Config".
func Register(reg *factory.Registry, module string) error {
	return factory.RegisterType(reg, factory.Join(module, "fs.config.Config"), newConfig)
}

func init() {
	if err := Register(factory.Default, factory.Root); err != nil {
		panic(err)
	}
}

func newConfig(args []any, kwargs map[string]any) (*Config, error) {
	var c struct {
		Path string `json:"path"`
	}
	if err := factory.Decode(kwargs, &c); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		p, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("config path must be a string, got %T", args[0])
		}
		c.Path = p
	}
	if c.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	return Load(c.Path)
}
