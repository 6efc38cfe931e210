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

package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"
)

var (
	// ErrSecretNotFound is returned for references to secrets missing from the global config.
	ErrSecretNotFound = errors.New("secret not found")
)

// Reader reads a single secret field from an external store.
type Reader interface {
	Read(ctx context.Context, path string) (string, error)
}

// Resolver loads secret values declared in the global config. Values are cached
// for the lifetime of the resolver, which is one kona run.
type Resolver struct {
	root    string
	secrets map[string]konav1alpha1.Secret
	vault   Reader

	lookupEnv func(string) (string, bool)
	cache     map[string]string
}

type Option func(*Resolver)

// WithVault overrides the reader used for vault secrets.
func WithVault(r Reader) Option {
	return func(res *Resolver) {
		res.vault = r
	}
}

func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(res *Resolver) {
		res.lookupEnv = fn
	}
}

// NewResolver creates a resolver for the named secrets. root is the deploy
// directory that relative file paths are resolved against.
func NewResolver(root string, secrets map[string]konav1alpha1.Secret, opts ...Option) *Resolver {
	r := &Resolver{
		root:      root,
		secrets:   secrets,
		lookupEnv: os.LookupEnv,
		cache:     map[string]string{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.vault == nil {
		r.vault = &vaultReader{}
	}
	return r
}

// Get returns the value of the named secret.
func (r *Resolver) Get(ctx context.Context, name string) (string, error) {
	if v, ok := r.cache[name]; ok {
		return v, nil
	}

	secret, ok := r.secrets[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSecretNotFound, name)
	}

	value, err := r.Load(ctx, secret)
	if err != nil {
		return "", fmt.Errorf("failed to load secret %q: %w", name, err)
	}

	r.cache[name] = value
	return value, nil
}

// Load reads a single secret from its source. Exactly one source must be set.
func (r *Resolver) Load(ctx context.Context, secret konav1alpha1.Secret) (string, error) {
	if sources := secret.Sources(); len(sources) != 1 {
		return "", fmt.Errorf("exactly one of filePath, value, env, vault must be set, got %v", sources)
	}

	switch {
	case secret.Value != "":
		return secret.Value, nil

	case secret.FilePath != "":
		path := secret.FilePath
		if strings.HasPrefix(path, ".") {
			path = filepath.Join(r.root, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil

	case secret.Env != "":
		value, ok := r.lookupEnv(secret.Env)
		if !ok {
			return "", fmt.Errorf("environment variable %s is not set", secret.Env)
		}
		return value, nil

	default:
		return r.vault.Read(ctx, secret.Vault)
	}
}

// SecretOrValue returns the inline value, or the referenced secret.
func (r *Resolver) SecretOrValue(ctx context.Context, sv *konav1alpha1.SecretOrValue) (string, error) {
	if sv == nil {
		return "", nil
	}
	if (sv.Secret == "") == (sv.Value == "") {
		return "", errors.New("exactly one of secret, value must be set")
	}
	if sv.Value != "" {
		return sv.Value, nil
	}
	return r.Get(ctx, sv.Secret)
}
