// Package config reads the tool's settings from the environment.
package config

import (
	"fmt"
	"strconv"

	"github.com/xyproto/env/v2"

	"aalower/internal/ir"
)

const (
	EnvTrace      = "AALOWER_TRACE"
	EnvFile       = "AALOWER_FILE"
	EnvTargetWord = "AALOWER_TARGET_WORD"
	EnvCC         = "AALOWER_CC"
)

type Config struct {
	// Trace enables debug logging of runtime call lowering.
	Trace bool
	// File is the source file name recorded for range violations.
	File string
	// WordSize is the target pointer size in bytes.
	WordSize int
	CC       string
}

// Load reads the current environment. Values set after an earlier Load are
// picked up.
func Load() (Config, error) {
	env.Load()
	c := Config{
		Trace:    env.Bool(EnvTrace),
		File:     env.Str(EnvFile, "main.d"),
		WordSize: 8,
		CC:       env.Str(EnvCC, "cc"),
	}
	if s := env.Str(EnvTargetWord); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return c, fmt.Errorf("%s: invalid word size %q", EnvTargetWord, s)
		}
		c.WordSize = n
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.WordSize != 4 && c.WordSize != 8 {
		return fmt.Errorf("%s: unsupported word size %d (want 4 or 8)", EnvTargetWord, c.WordSize)
	}
	if c.File == "" {
		return fmt.Errorf("%s: empty source file name", EnvFile)
	}
	return nil
}

// Layout is the target data layout for the configured word size.
func (c Config) Layout() ir.Layout { return ir.Layout{PtrSize: int64(c.WordSize)} }
