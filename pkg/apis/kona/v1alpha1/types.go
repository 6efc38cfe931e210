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

const (
	// GlobalConfigFileName is the file holding the GlobalConfig at the root of a deploy directory.
	GlobalConfigFileName = "kona.yaml"

	// ChallengeConfigFileName is the file holding a ChallengeConfig inside a challenge directory.
	ChallengeConfigFileName = "challenge.yaml"
)

const (
	// FieldManager is the field manager identity used for every server-side apply.
	FieldManager = "kona"

	// DefaultNamespace is used for namespaced manifests that do not set metadata.namespace.
	DefaultNamespace = "default"

	// DefaultImageTag is used when an image does not declare a tag.
	DefaultImageTag = "latest"

	// DefaultChallengeFolderDepth bounds the discovery walk when not configured.
	DefaultChallengeFolderDepth = 3

	// DefaultPort is the port rendered for TCP endpoints that do not declare one.
	DefaultPort = 1337
)

const (
	// KloddAPIVersion and KloddKind identify klodd Challenge manifests, which expose
	// a per-team instance starter behind the configured klodd domain.
	KloddAPIVersion = "klodd.tjcsec.club/v1"
	KloddKind       = "Challenge"
)
