// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads the YAML file configuration of a recall instance.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Branch configures one retrieval branch: a named vector store and the
// weight its matches carry during rank fusion.
type Branch struct {
	Name   string  `yaml:"name"`
	Weight float32 `yaml:"weight"`
}

// Embedding configures the external embedding service.
type Embedding struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// Segmenter configures sentence segmentation of parent documents.
type Segmenter struct {
	MinSentenceLength int    `yaml:"min_sentence_length"`
	MaxSentenceLength int    `yaml:"max_sentence_length"`
	Punctuation       string `yaml:"punctuation"`
	UniformWeight     bool   `yaml:"uniform_weight"`
}

// Config holds the full configuration of a recall instance.
type Config struct {
	// Workspace is the directory holding all persisted store files.
	Workspace string `yaml:"workspace"`

	// TopK is the default number of fused results per query.
	TopK int `yaml:"top_k"`

	// BranchTopK is the per-branch candidate count before fusion. Zero means
	// use the request's top_k; values below the final top_k starve fusion of
	// candidates.
	BranchTopK int `yaml:"branch_top_k"`

	// PoolSize is the worker pool size for branch fan-out and embedding.
	// Zero means half the CPU count.
	PoolSize int `yaml:"pool_size"`

	Branches  []Branch  `yaml:"branches"`
	Embedding Embedding `yaml:"embedding"`
	Segmenter Segmenter `yaml:"segmenter"`
}

// Default returns the configuration used when no file is provided: two
// equally weighted branches (parent documents and sentence chunks) under a
// local workspace directory.
func Default() *Config {
	return &Config{
		Workspace: "spaces",
		TopK:      3,
		Branches: []Branch{
			{Name: "documents", Weight: 1.0},
			{Name: "chunks", Weight: 1.0},
		},
		Embedding: Embedding{
			Host:  "http://localhost:11434/v1",
			Model: "embeddinggemma",
		},
		Segmenter: Segmenter{
			MinSentenceLength: 1,
			MaxSentenceLength: 512,
			UniformWeight:     true,
		},
	}
}

// Load reads a YAML configuration file over the defaults and validates the
// result. Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is complete and internally
// consistent.
func (c *Config) Validate() error {
	if c.Workspace == "" {
		return errors.New("workspace is required")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.BranchTopK < 0 {
		return fmt.Errorf("branch_top_k must not be negative, got %d", c.BranchTopK)
	}
	if len(c.Branches) == 0 {
		return errors.New("at least one branch is required")
	}

	seen := make(map[string]bool, len(c.Branches))
	for _, b := range c.Branches {
		if b.Name == "" {
			return errors.New("branch name is required")
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate branch name %q", b.Name)
		}
		seen[b.Name] = true
		if b.Weight <= 0 {
			return fmt.Errorf("branch %q: weight must be positive, got %v", b.Name, b.Weight)
		}
	}

	if c.Segmenter.MinSentenceLength < 0 {
		return fmt.Errorf("segmenter min_sentence_length must not be negative, got %d",
			c.Segmenter.MinSentenceLength)
	}
	if c.Segmenter.MaxSentenceLength <= 0 {
		return fmt.Errorf("segmenter max_sentence_length must be positive, got %d",
			c.Segmenter.MaxSentenceLength)
	}
	return nil
}
