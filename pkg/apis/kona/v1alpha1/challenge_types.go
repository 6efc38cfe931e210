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

import (
	"fmt"
	"strconv"
)

// ChallengeConfig is loaded from every challenge directory found by the discovery walk.
// One config describes a group of challenges sharing a deployment.
type ChallengeConfig struct {
	Discovery  ChallengeDiscovery `yaml:"discovery"`
	Challenges []ChallengeItem    `yaml:"challenges"`
	Deployment DeploymentSpec     `yaml:"deployment"`
}

// ChallengeDiscovery controls how the walk treats a challenge directory.
type ChallengeDiscovery struct {
	// Skip bypasses deployment and sync of this directory.
	// Subdirectories are still visited.
	Skip bool `yaml:"skip,omitempty"`
}

// DeploymentSpec lists what has to be built and applied for a challenge group.
// Both lists are processed in order.
type DeploymentSpec struct {
	Images              []DockerImage        `yaml:"images,omitempty"`
	KubernetesManifests []KubernetesManifest `yaml:"kubernetesManifests,omitempty"`
}

// DockerImage is a container image built from a directory of the challenge.
type DockerImage struct {
	// Path is the build context, relative to the challenge directory.
	Path string `yaml:"path"`
	Name string `yaml:"name"`
	Tag  string `yaml:"tag,omitempty"`

	// RegistryName references GlobalConfig.Registries. Images without a
	// registry are built locally and never pushed.
	//
	// +optional
	RegistryName string `yaml:"registryName,omitempty"`

	BuildArgs map[string]string `yaml:"buildArgs,omitempty"`

	// Platform is an OCI platform string such as "linux/amd64".
	//
	// +optional
	Platform string `yaml:"platform,omitempty"`
}

// Reference returns "name:tag" as written in the challenge config.
func (i DockerImage) Reference() string {
	return i.Name + ":" + i.Tag
}

// KubernetesManifest references one or more YAML files applied to a cluster.
type KubernetesManifest struct {
	// Path is a single manifest file. Kept for configs written before Paths existed.
	//
	// +optional
	Path string `yaml:"path,omitempty"`

	// Paths are manifest files relative to the challenge directory.
	Paths []string `yaml:"paths,omitempty"`

	// ClusterName references GlobalConfig.Clusters. Required when more
	// than one cluster is configured.
	//
	// +optional
	ClusterName string `yaml:"clusterName,omitempty"`
}

// GetPaths returns Paths, falling back to the single Path.
func (m KubernetesManifest) GetPaths() []string {
	if len(m.Paths) > 0 {
		return m.Paths
	}
	if m.Path != "" {
		return []string{m.Path}
	}
	return nil
}

// EndpointType is the way players connect to an endpoint.
type EndpointType string

const (
	EndpointTypeHTTP    EndpointType = "http"
	EndpointTypeHTTPS   EndpointType = "https"
	EndpointTypeSocat   EndpointType = "socat"
	EndpointTypeNC      EndpointType = "nc"
	EndpointTypeNcatSSL EndpointType = "ncat-ssl"
)

// Valid reports whether t is a known endpoint type.
func (t EndpointType) Valid() bool {
	switch t {
	case EndpointTypeHTTP, EndpointTypeHTTPS, EndpointTypeSocat, EndpointTypeNC, EndpointTypeNcatSSL:
		return true
	}
	return false
}

// Endpoint is a network location players use to reach a challenge.
type Endpoint struct {
	Name     string       `yaml:"name,omitempty"`
	Type     EndpointType `yaml:"type"`
	Endpoint string       `yaml:"endpoint"`
	Port     int          `yaml:"port,omitempty"`
}

// NamePrefix returns "<name>: " for named endpoints.
func (e Endpoint) NamePrefix() string {
	if e.Name == "" {
		return ""
	}
	return e.Name + ": "
}

// PortOr returns the endpoint port, or def when unset.
func (e Endpoint) PortOr(def int) int {
	if e.Port == 0 {
		return def
	}
	return e.Port
}

// HTTPEndpoint returns the endpoint as a URL, e.g. "https://host:8443".
func (e Endpoint) HTTPEndpoint() string {
	port := ""
	if e.Port != 0 {
		port = ":" + strconv.Itoa(e.Port)
	}
	return fmt.Sprintf("%s://%s%s", e.Type, e.Endpoint, port)
}

// ChallengeItem is a single challenge as shown on the competition platforms.
type ChallengeItem struct {
	Category    string `yaml:"category"`
	Name        string `yaml:"name"`
	Author      string `yaml:"author"`
	Description string `yaml:"description"`

	// Attachments are files or directories, relative to the challenge
	// directory, bundled into one archive.
	Attachments []string `yaml:"attachments,omitempty"`

	Scoring   Scoring       `yaml:"scoring"`
	Flags     Flags         `yaml:"flags"`
	Endpoints []Endpoint    `yaml:"endpoints,omitempty"`
	CTFd      CTFdChallenge `yaml:"ctfd"`
}

// ChallengeID identifies the challenge across platforms.
func (c *ChallengeItem) ChallengeID() string {
	return c.Category + "_" + c.Name
}

// Scoring configures dynamic scoring on the platforms.
type Scoring struct {
	InitialValue *int        `yaml:"initialValue,omitempty"`
	MinimumValue *int        `yaml:"minimumValue,omitempty"`
	CTFd         CTFdScoring `yaml:"ctfd"`
	RCTF         RCTFScoring `yaml:"rctf"`
}

type CTFdScoring struct {
	DecayFunction string `yaml:"decayFunction,omitempty"`
	Decay         *int   `yaml:"decay,omitempty"`
	MaxAttempts   int    `yaml:"maxAttempts,omitempty"`
}

type RCTFScoring struct {
	EligibleForTiebreaks *bool `yaml:"eligibleForTiebreaks,omitempty"`
}

// Flags holds the per-platform flags. At least one must be set.
type Flags struct {
	RCTF string     `yaml:"rctf,omitempty"`
	CTFd []CTFdFlag `yaml:"ctfd,omitempty"`
}

type CTFdFlag struct {
	Type string `yaml:"type,omitempty"`
	Flag string `yaml:"flag"`
}

// ChallengeState is the CTFd visibility of a challenge.
type ChallengeState string

const (
	ChallengeStateVisible ChallengeState = "visible"
	ChallengeStateHidden  ChallengeState = "hidden"
)

type CTFdChallenge struct {
	State          ChallengeState `yaml:"state,omitempty"`
	Type           string         `yaml:"type,omitempty"`
	Topics         []string       `yaml:"topics,omitempty"`
	Tags           []string       `yaml:"tags,omitempty"`
	Hints          []CTFdHint     `yaml:"hints,omitempty"`
	ConnectionInfo string         `yaml:"connectionInfo,omitempty"`
}

type CTFdHint struct {
	Hint  string `yaml:"hint"`
	Cost  int    `yaml:"cost,omitempty"`
	Title string `yaml:"title,omitempty"`
}
