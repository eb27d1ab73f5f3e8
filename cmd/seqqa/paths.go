package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/samcharles93/seqqa/internal/model"
)

const envSeqqaModelDir = "SEQQA_MODEL_DIR"

const defaultModelDir = "model"

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

// resolveModelDir picks the model directory from the flag, then
// $SEQQA_MODEL_DIR, then the config file, then ./model.
func resolveModelDir(flag string, cfg Config) string {
	for _, dir := range []string{flag, os.Getenv(envSeqqaModelDir), cfg.ModelDir} {
		if dir = strings.TrimSpace(dir); dir != "" {
			return filepath.Clean(dir)
		}
	}
	return defaultModelDir
}

// requireModelDir resolves the model directory and checks that it holds a
// saved model.
func requireModelDir(flag string, cfg Config) (string, error) {
	dir := resolveModelDir(flag, cfg)
	_, err := os.Stat(filepath.Join(dir, model.ConfigFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("no model in %s (create one with `seqqa init`)", dir)
	case err != nil:
		return "", err
	}
	return dir, nil
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
