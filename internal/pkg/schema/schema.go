/*
Copyright 2025 The Kona contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package schema loads kona configuration files from a deploy directory.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kona-ctf/kona/internal/pkg/defaulting"
	"github.com/kona-ctf/kona/internal/pkg/validation"
	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"
)

// alternateExtension is accepted in place of ".yaml" for every config file.
const alternateExtension = ".yml"

// LoadGlobal loads, defaults and validates the kona.yaml at the deploy root.
func LoadGlobal(root string) (*konav1alpha1.GlobalConfig, error) {
	path, ok := find(root, konav1alpha1.GlobalConfigFileName)
	if !ok {
		return nil, fmt.Errorf("no %s found in %s", konav1alpha1.GlobalConfigFileName, root)
	}

	cfg := &konav1alpha1.GlobalConfig{}
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}

	defaulting.DefaultGlobalConfig(cfg)
	if err := validation.ValidateGlobalConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// TryLoadChallenge loads the challenge.yaml in dir. It returns nil, nil when
// the directory has no challenge config.
func TryLoadChallenge(dir string) (*konav1alpha1.ChallengeConfig, error) {
	path, ok := find(dir, konav1alpha1.ChallengeConfigFileName)
	if !ok {
		return nil, nil
	}

	cfg := &konav1alpha1.ChallengeConfig{}
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}

	defaulting.DefaultChallengeConfig(cfg)
	if err := validation.ValidateChallengeConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

func find(dir, name string) (string, bool) {
	candidates := []string{
		filepath.Join(dir, name),
		filepath.Join(dir, name[:len(name)-len(filepath.Ext(name))]+alternateExtension),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

// decodeFile strictly decodes a YAML file. Unknown keys are rejected and an
// empty file decodes into the zero value.
func decodeFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
