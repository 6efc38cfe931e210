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
	"fmt"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"
)

// vaultReader reads KV v2 secrets. The client is configured from the
// standard VAULT_* environment variables on first use.
type vaultReader struct {
	client *vaultapi.Client
}

func (v *vaultReader) Read(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("vault: empty path")
	}

	if v.client == nil {
		client, err := vaultapi.NewClient(vaultapi.DefaultConfig())
		if err != nil {
			return "", fmt.Errorf("vault: failed to create client: %w", err)
		}
		v.client = client
	}

	basePath, field := splitField(path)
	sec, err := v.client.Logical().ReadWithContext(ctx, toKVv2Path(basePath))
	if err != nil {
		return "", fmt.Errorf("vault: failed to read %s: %w", basePath, err)
	}
	if sec == nil || sec.Data == nil {
		return "", fmt.Errorf("vault: no data at %s", basePath)
	}

	data, ok := sec.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("vault: %s is not a KV v2 secret", basePath)
	}
	return pickField(data, field)
}

func splitField(s string) (string, string) {
	base, field, _ := strings.Cut(s, "#")
	return base, field
}

// toKVv2Path inserts "data" after the mount name.
func toKVv2Path(base string) string {
	base = strings.TrimLeft(base, "/")
	mount, rest, found := strings.Cut(base, "/")
	if !found {
		return mount + "/data"
	}
	return mount + "/data/" + rest
}

// pickField returns the requested field. Without a field, "value" is used,
// or the only field of single-field secrets.
func pickField(m map[string]interface{}, field string) (string, error) {
	if field != "" {
		v, ok := m[field]
		if !ok {
			return "", fmt.Errorf("vault: field %q not found", field)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("vault: field %q is not a string", field)
		}
		return s, nil
	}

	if s, ok := m["value"].(string); ok {
		return s, nil
	}
	if len(m) == 1 {
		for _, v := range m {
			if s, ok := v.(string); ok {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("vault: could not choose a field, specify one with #field")
}
