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

package defaulting

import (
	"testing"

	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"
)

func intPtr(i int) *int {
	return &i
}

func TestDefaultGlobalConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *konav1alpha1.GlobalConfig
		verify func(t *testing.T, cfg *konav1alpha1.GlobalConfig)
	}{
		{
			name:   "empty config",
			config: &konav1alpha1.GlobalConfig{},
			verify: func(t *testing.T, cfg *konav1alpha1.GlobalConfig) {
				if got := *cfg.Discovery.ChallengeFolderDepth; got != konav1alpha1.DefaultChallengeFolderDepth {
					t.Errorf("expected default depth, got %d", got)
				}
				if cfg.Discovery.KloddEndpointName != DefaultKloddEndpointName {
					t.Errorf("expected default klodd endpoint name, got %q", cfg.Discovery.KloddEndpointName)
				}
				if cfg.Templates.ChallengeDescription != DefaultChallengeDescriptionTemplate {
					t.Error("expected default description template")
				}
				if cfg.Templates.EndpointsText != DefaultEndpointsTextTemplate {
					t.Error("expected default endpoints template")
				}
				if cfg.Clusters == nil || cfg.Registries == nil || cfg.Secrets == nil {
					t.Error("expected maps to be initialized")
				}
			},
		},
		{
			name: "explicit values are kept",
			config: &konav1alpha1.GlobalConfig{
				Discovery: konav1alpha1.DiscoveryConfig{
					ChallengeFolderDepth: intPtr(1),
					KloddEndpointName:    "Start instance",
				},
				Templates: konav1alpha1.TemplatesConfig{
					ChallengeDescription: "\n  {{ .Challenge.Description }}  \n",
				},
			},
			verify: func(t *testing.T, cfg *konav1alpha1.GlobalConfig) {
				if got := *cfg.Discovery.ChallengeFolderDepth; got != 1 {
					t.Errorf("expected depth 1, got %d", got)
				}
				if cfg.Discovery.KloddEndpointName != "Start instance" {
					t.Errorf("unexpected klodd endpoint name %q", cfg.Discovery.KloddEndpointName)
				}
				if cfg.Templates.ChallengeDescription != "{{ .Challenge.Description }}" {
					t.Errorf("expected trimmed template, got %q", cfg.Templates.ChallengeDescription)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			DefaultGlobalConfig(tc.config)
			tc.verify(t, tc.config)
		})
	}
}

func TestDefaultChallengeConfig(t *testing.T) {
	cfg := &konav1alpha1.ChallengeConfig{
		Challenges: []konav1alpha1.ChallengeItem{
			{
				Category:    "web",
				Name:        "notes",
				Description: "\n  Take some notes.\n",
				Flags: konav1alpha1.Flags{
					CTFd: []konav1alpha1.CTFdFlag{{Flag: "flag{a}"}, {Type: "regex", Flag: "flag{.*}"}},
				},
				Scoring: konav1alpha1.Scoring{InitialValue: intPtr(1000)},
			},
		},
		Deployment: konav1alpha1.DeploymentSpec{
			Images: []konav1alpha1.DockerImage{
				{Path: ".", Name: "notes"},
				{Path: ".", Name: "bot", Tag: "v2"},
			},
		},
	}

	DefaultChallengeConfig(cfg)

	item := cfg.Challenges[0]
	if item.Description != "Take some notes." {
		t.Errorf("expected trimmed description, got %q", item.Description)
	}
	if *item.Scoring.InitialValue != 1000 {
		t.Errorf("expected explicit initial value to be kept, got %d", *item.Scoring.InitialValue)
	}
	if *item.Scoring.MinimumValue != DefaultMinimumValue {
		t.Errorf("expected default minimum value, got %d", *item.Scoring.MinimumValue)
	}
	if *item.Scoring.CTFd.Decay != DefaultCTFdDecay || item.Scoring.CTFd.DecayFunction != DefaultCTFdDecayFunction {
		t.Errorf("unexpected ctfd scoring defaults %+v", item.Scoring.CTFd)
	}
	if !*item.Scoring.RCTF.EligibleForTiebreaks {
		t.Error("expected challenges to be eligible for tiebreaks by default")
	}
	if item.Flags.CTFd[0].Type != DefaultCTFdFlagType || item.Flags.CTFd[1].Type != "regex" {
		t.Errorf("unexpected flag types %+v", item.Flags.CTFd)
	}
	if item.CTFd.State != konav1alpha1.ChallengeStateVisible || item.CTFd.Type != DefaultCTFdChallengeType {
		t.Errorf("unexpected ctfd defaults %+v", item.CTFd)
	}

	if cfg.Deployment.Images[0].Tag != konav1alpha1.DefaultImageTag {
		t.Errorf("expected default tag, got %q", cfg.Deployment.Images[0].Tag)
	}
	if cfg.Deployment.Images[1].Tag != "v2" {
		t.Errorf("expected explicit tag to be kept, got %q", cfg.Deployment.Images[1].Tag)
	}
}
