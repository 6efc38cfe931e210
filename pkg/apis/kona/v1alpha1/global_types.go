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

// GlobalConfig is loaded once from the root of the deploy directory.
type GlobalConfig struct {
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Secrets are named secrets that can be referenced from SecretOrValue fields.
	Secrets map[string]Secret `yaml:"secrets"`

	// RCTF holds the rCTF admin API credentials. Unset disables rCTF sync.
	//
	// +optional
	RCTF *RCTFCredentials `yaml:"rctf,omitempty"`

	// CTFd holds the CTFd admin API credentials. Unset disables CTFd sync.
	//
	// +optional
	CTFd *CTFdCredentials `yaml:"ctfd,omitempty"`

	Templates TemplatesConfig `yaml:"templates"`

	// Registries maps a registry name to a repository prefix, e.g. "ghcr.io/org".
	Registries map[string]string `yaml:"registries"`

	// Clusters maps a cluster name to the way its credentials are obtained.
	Clusters map[string]Cluster `yaml:"clusters"`
}

// RCTFCredentials authenticate against an rCTF instance.
type RCTFCredentials struct {
	BaseURL   string        `yaml:"baseUrl"`
	TeamToken SecretOrValue `yaml:"teamToken"`
}

// CTFdCredentials authenticate against a CTFd instance.
type CTFdCredentials struct {
	BaseURL    string        `yaml:"baseUrl"`
	AdminToken SecretOrValue `yaml:"adminToken"`
}

// DiscoveryConfig configures the directory walk and endpoint discovery.
type DiscoveryConfig struct {
	// ChallengeFolderDepth is the maximum recursion depth below the deploy root.
	ChallengeFolderDepth *int `yaml:"challengeFolderDepth,omitempty"`

	// KloddDomain is the host serving klodd instance starters.
	// Discovered klodd challenges are skipped with a warning when it is empty.
	KloddDomain string `yaml:"kloddDomain,omitempty"`

	// KloddEndpointName is the display name of discovered klodd endpoints.
	KloddEndpointName string `yaml:"kloddEndpointName,omitempty"`
}

// TemplatesConfig holds the text/template sources used to render challenge text.
type TemplatesConfig struct {
	ChallengeDescription string `yaml:"challengeDescription,omitempty"`
	EndpointsText        string `yaml:"endpointsText,omitempty"`
	CTFdAttribution      string `yaml:"ctfdAttribution,omitempty"`
}

// Cluster describes how to obtain credentials for a Kubernetes cluster.
// Sources are tried in order: Kubeconfig, InCluster, UseDefault.
type Cluster struct {
	// Kubeconfig is the kubeconfig document, inline or via a named secret.
	//
	// +optional
	Kubeconfig *SecretOrValue `yaml:"kubeconfig,omitempty"`

	// InCluster uses the service account of the pod kona runs in.
	InCluster bool `yaml:"incluster,omitempty"`

	// UseDefault uses the local kubeconfig ($KUBECONFIG or ~/.kube/config).
	UseDefault bool `yaml:"useDefault,omitempty"`
}

// GetChallengeFolderDepth returns the configured walk depth or the default.
func (d DiscoveryConfig) GetChallengeFolderDepth() int {
	if d.ChallengeFolderDepth == nil {
		return DefaultChallengeFolderDepth
	}
	return *d.ChallengeFolderDepth
}

// SingleCluster returns the name of the only cluster in clusters.
// ok is false unless exactly one cluster is configured.
func SingleCluster(clusters map[string]Cluster) (name string, ok bool) {
	if len(clusters) != 1 {
		return "", false
	}
	for name = range clusters {
		return name, true
	}
	return "", false
}
