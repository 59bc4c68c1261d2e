// Package config loads and validates run configuration from .classmerge
// files (HCL or YAML). Validation failures are non-recoverable: a run
// with a bad configuration never starts.
package config

import (
	"bytes"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/walteh/classmerge/pkg/rules"
	"github.com/walteh/classmerge/pkg/session"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Config is the full run configuration supplied by the CLI collaborator.
type Config struct {
	// Rules is the ordered list of rule names to apply.
	Rules []string `hcl:"rules,optional" yaml:"rules,omitempty"`
	// Include are doublestar globs selecting files to process.
	Include []string `hcl:"include,optional" yaml:"include,omitempty"`
	// Exclude are doublestar globs removed from the include set.
	Exclude []string `hcl:"exclude,optional" yaml:"exclude,omitempty"`

	Concurrency   int  `hcl:"concurrency,optional" yaml:"concurrency,omitempty"`
	ChunkSize     int  `hcl:"chunk_size,optional" yaml:"chunk_size,omitempty"`
	MemoryLimitMB int  `hcl:"memory_limit_mb,optional" yaml:"memory_limit_mb,omitempty"`
	Sequential    bool `hcl:"sequential,optional" yaml:"sequential,omitempty"`
}

// Default returns the configuration used when no file is present: every
// rule in catalog order, scheduler defaults.
func Default() *Config {
	return &Config{Rules: append([]string(nil), rules.Names...)}
}

// Load reads a configuration file, choosing the decoder by extension
// (.yaml/.yml, anything else parses as HCL).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, session.New(session.KindConfig, path, errors.Errorf("reading config file: %w", err))
	}
	return Parse(data, path)
}

// Parse decodes configuration bytes; path picks the format and names the
// file in errors.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, session.New(session.KindConfig, path, errors.Errorf("parsing YAML: %w", err))
		}
		return &cfg, nil
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, session.New(session.KindConfig, path, errors.Errorf("parsing HCL: %s", diags.Error()))
	}

	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{}}
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &cfg)
	if diags.HasErrors() {
		return nil, session.New(session.KindConfig, path, errors.Errorf("decoding HCL: %s", diags.Error()))
	}
	return &cfg, nil
}

// Validate checks rule names against the table and scheduler options for
// sanity. Any failure is a configuration-kind (fatal) error.
func (c *Config) Validate(table rules.Table) error {
	if len(c.Rules) == 0 {
		return session.New(session.KindConfig, "", errors.New("no rules configured"))
	}
	for _, name := range c.Rules {
		if _, ok := table[name]; !ok {
			return session.New(session.KindConfig, "",
				errors.Errorf("unknown rule %q (known: %s)", name, strings.Join(rules.Names, ", ")))
		}
	}
	if c.Concurrency < 0 {
		return session.New(session.KindConfig, "", errors.Errorf("concurrency must not be negative, got %d", c.Concurrency))
	}
	if c.ChunkSize < 0 {
		return session.New(session.KindConfig, "", errors.Errorf("chunk_size must not be negative, got %d", c.ChunkSize))
	}
	return nil
}
