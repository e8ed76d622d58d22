package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Load reads the file at path, choosing the decoder by extension (.json,
// .yaml/.yml or .hcl). Fields the file leaves out keep their Defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(filepath.Base(path), data)
}

// Decode decodes data in the format given by the extension of name.
func Decode(name string, data []byte) (Config, error) {
	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", name, err)
		}
	case ".hcl":
		if err := decodeHCL(name, data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("config %s: unsupported format %q (want .json, .yaml or .hcl)", name, filepath.Ext(name))
	}
	return cfg, nil
}

// hclFile mirrors Config with optional blocks.
type hclFile struct {
	Job         *string        `hcl:"job,optional"`
	DumpPattern *string        `hcl:"dump_pattern,optional"`
	Languages   []string       `hcl:"languages,optional"`
	Encoding    *string        `hcl:"encoding,optional"`
	DecodeMode  *string        `hcl:"decode_mode,optional"`
	Reimport    *bool          `hcl:"reimport,optional"`
	Converter   []string       `hcl:"converter,optional"`
	Storage     *Storage       `hcl:"storage,block"`
	Runtime     *RuntimeConfig `hcl:"runtime,block"`
}

// templateVars make ${language} and friends evaluate to themselves, so
// name templates survive HCL's own interpolation.
func templateVars() *hcl.EvalContext {
	vars := map[string]cty.Value{}
	for _, name := range []string{"language", "date", "table", "filename", "path"} {
		vars[name] = cty.StringVal("${" + name + "}")
	}
	return &hcl.EvalContext{Variables: vars}
}

func decodeHCL(name string, data []byte, cfg *Config) error {
	f, diags := hclparse.NewParser().ParseHCL(data, name)
	if diags.HasErrors() {
		return fmt.Errorf("parse %s: %w", name, diags)
	}
	var hf hclFile
	if diags := gohcl.DecodeBody(f.Body, templateVars(), &hf); diags.HasErrors() {
		return fmt.Errorf("decode %s: %w", name, diags)
	}

	if hf.Job != nil {
		cfg.Job = *hf.Job
	}
	if hf.DumpPattern != nil {
		cfg.DumpPattern = *hf.DumpPattern
	}
	if hf.Languages != nil {
		cfg.Languages = hf.Languages
	}
	if hf.Encoding != nil {
		cfg.Encoding = *hf.Encoding
	}
	if hf.DecodeMode != nil {
		cfg.DecodeMode = *hf.DecodeMode
	}
	if hf.Reimport != nil {
		cfg.Reimport = *hf.Reimport
	}
	if hf.Converter != nil {
		cfg.Converter = hf.Converter
	}
	if s := hf.Storage; s != nil {
		if s.Kind != "" {
			cfg.Storage.Kind = s.Kind
		}
		if s.Database != "" {
			cfg.Storage.Database = s.Database
		}
		cfg.Storage.DSN = s.DSN
		cfg.Storage.CreateDatabase = s.CreateDatabase
		cfg.Storage.PassFile = s.PassFile
	}
	if r := hf.Runtime; r != nil {
		if r.Workers != 0 {
			cfg.Runtime.Workers = r.Workers
		}
		if r.BatchSize != 0 {
			cfg.Runtime.BatchSize = r.BatchSize
		}
	}
	return nil
}
