package model

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/seqqa/internal/seq2seq"
)

const (
	ConfigFile  = "model.yaml"
	VocabFile   = "vocab.json"
	WeightsFile = "weights.safetensors"
)

const (
	formatName    = "seqqa"
	formatVersion = 1
)

type configFile struct {
	Format  string         `yaml:"format"`
	Version int            `yaml:"version"`
	Model   seq2seq.Config `yaml:"model"`
}

// ReadConfig parses a model.yaml file.  Fields absent from the file keep
// their seq2seq.DefaultConfig values; unknown fields are an error.
func ReadConfig(path string) (seq2seq.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return seq2seq.Config{}, err
	}
	return parseConfig(raw)
}

func parseConfig(raw []byte) (seq2seq.Config, error) {
	f := configFile{Model: seq2seq.DefaultConfig()}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return seq2seq.Config{}, fmt.Errorf("parse model config: %w", err)
	}
	if f.Format != "" && f.Format != formatName {
		return seq2seq.Config{}, fmt.Errorf("model config: unexpected format %q", f.Format)
	}
	if f.Version > formatVersion {
		return seq2seq.Config{}, fmt.Errorf("model config: unsupported version %d", f.Version)
	}
	if err := f.Model.Validate(); err != nil {
		return seq2seq.Config{}, err
	}
	return f.Model, nil
}

// WriteConfig writes cfg as a model.yaml file.
func WriteConfig(path string, cfg seq2seq.Config) error {
	raw, err := yaml.Marshal(configFile{
		Format:  formatName,
		Version: formatVersion,
		Model:   cfg,
	})
	if err != nil {
		return fmt.Errorf("encode model config: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}
