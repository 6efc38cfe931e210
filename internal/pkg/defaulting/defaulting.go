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

// Package defaulting fills in defaults for kona configuration files after
// they have been decoded and before they are validated.
package defaulting

import (
	"strings"

	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"
)

const (
	DefaultInitialValue         = 500
	DefaultMinimumValue         = 100
	DefaultCTFdDecayFunction    = "logarithmic"
	DefaultCTFdDecay            = 60
	DefaultCTFdChallengeType    = "dynamic"
	DefaultCTFdFlagType         = "static"
	DefaultKloddEndpointName    = "Instancer"
	DefaultEligibleForTiebreaks = true
)

// DefaultChallengeDescriptionTemplate renders a challenge description with its endpoints and author.
const DefaultChallengeDescriptionTemplate = `{{ .Challenge.Description }}

{{ trim .EndpointsRendered }}

**Author**: {{ .Challenge.Author }}`

// DefaultEndpointsTextTemplate renders one line per endpoint, shaped by the endpoint type.
const DefaultEndpointsTextTemplate = `{{- range .Challenge.Endpoints }}
{{- if eq .Type "socat" }}
{{ .NamePrefix }}` + "`socat -,raw,echo=0 tcp:{{ .Endpoint }}:{{ .PortOr 1337 }}`" + `
{{- else if eq .Type "nc" }}
{{ .NamePrefix }}` + "`nc {{ .Endpoint }} {{ .PortOr 1337 }}`" + `
{{- else if eq .Type "ncat-ssl" }}
{{ .NamePrefix }}` + "`ncat --ssl {{ .Endpoint }} {{ .PortOr 1337 }}`" + `
{{- else if or (eq .Type "http") (eq .Type "https") }}
{{- if .Name }}
[{{ .Name }}]({{ .HTTPEndpoint }})
{{- else }}
[{{ .HTTPEndpoint }}]({{ .HTTPEndpoint }})
{{- end }}
{{- else }}
unknown endpoint type {{ .Type }}
{{- end }}
{{- end }}`

// DefaultCTFdAttributionTemplate is appended to descriptions synced to CTFd.
const DefaultCTFdAttributionTemplate = `**Author**: {{ .Challenge.Author }}`

// DefaultGlobalConfig sets defaults on a decoded kona.yaml. Templates are trimmed.
func DefaultGlobalConfig(cfg *konav1alpha1.GlobalConfig) {
	if cfg.Discovery.ChallengeFolderDepth == nil {
		depth := konav1alpha1.DefaultChallengeFolderDepth
		cfg.Discovery.ChallengeFolderDepth = &depth
	}
	if cfg.Discovery.KloddEndpointName == "" {
		cfg.Discovery.KloddEndpointName = DefaultKloddEndpointName
	}

	t := &cfg.Templates
	t.ChallengeDescription = defaultString(strings.TrimSpace(t.ChallengeDescription), DefaultChallengeDescriptionTemplate)
	t.EndpointsText = defaultString(strings.TrimSpace(t.EndpointsText), DefaultEndpointsTextTemplate)
	t.CTFdAttribution = defaultString(strings.TrimSpace(t.CTFdAttribution), DefaultCTFdAttributionTemplate)

	if cfg.Secrets == nil {
		cfg.Secrets = map[string]konav1alpha1.Secret{}
	}
	if cfg.Registries == nil {
		cfg.Registries = map[string]string{}
	}
	if cfg.Clusters == nil {
		cfg.Clusters = map[string]konav1alpha1.Cluster{}
	}
}

// DefaultChallengeConfig sets defaults on a decoded challenge.yaml.
func DefaultChallengeConfig(cfg *konav1alpha1.ChallengeConfig) {
	for i := range cfg.Challenges {
		defaultChallengeItem(&cfg.Challenges[i])
	}

	for i := range cfg.Deployment.Images {
		img := &cfg.Deployment.Images[i]
		if img.Tag == "" {
			img.Tag = konav1alpha1.DefaultImageTag
		}
	}
}

func defaultChallengeItem(item *konav1alpha1.ChallengeItem) {
	item.Description = strings.TrimSpace(item.Description)

	s := &item.Scoring
	if s.InitialValue == nil {
		v := DefaultInitialValue
		s.InitialValue = &v
	}
	if s.MinimumValue == nil {
		v := DefaultMinimumValue
		s.MinimumValue = &v
	}
	if s.CTFd.DecayFunction == "" {
		s.CTFd.DecayFunction = DefaultCTFdDecayFunction
	}
	if s.CTFd.Decay == nil {
		v := DefaultCTFdDecay
		s.CTFd.Decay = &v
	}
	if s.RCTF.EligibleForTiebreaks == nil {
		v := DefaultEligibleForTiebreaks
		s.RCTF.EligibleForTiebreaks = &v
	}

	for i := range item.Flags.CTFd {
		if item.Flags.CTFd[i].Type == "" {
			item.Flags.CTFd[i].Type = DefaultCTFdFlagType
		}
	}

	if item.CTFd.State == "" {
		item.CTFd.State = konav1alpha1.ChallengeStateVisible
	}
	if item.CTFd.Type == "" {
		item.CTFd.Type = DefaultCTFdChallengeType
	}
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
