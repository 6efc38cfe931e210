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

package v1alpha1

// Secret is a secret value read from exactly one source.
type Secret struct {
	// FilePath is read from disk. Paths starting with "." are relative to the deploy root.
	FilePath string `yaml:"filePath,omitempty"`

	// Value is an inline secret.
	Value string `yaml:"value,omitempty"`

	// Env names an environment variable.
	Env string `yaml:"env,omitempty"`

	// Vault is a KV path in the form "mount/path#field".
	// The client is configured from VAULT_ADDR and VAULT_TOKEN.
	Vault string `yaml:"vault,omitempty"`
}

// Sources returns the names of the populated source fields.
func (s Secret) Sources() []string {
	var out []string
	if s.FilePath != "" {
		out = append(out, "filePath")
	}
	if s.Value != "" {
		out = append(out, "value")
	}
	if s.Env != "" {
		out = append(out, "env")
	}
	if s.Vault != "" {
		out = append(out, "vault")
	}
	return out
}

// SecretOrValue either names an entry of GlobalConfig.Secrets or carries a value inline.
type SecretOrValue struct {
	Secret string `yaml:"secret,omitempty"`
	Value  string `yaml:"value,omitempty"`
}
