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

// Package endpoints derives challenge endpoints from deployed manifests.
package endpoints

import (
	"go.uber.org/zap"

	"github.com/kona-ctf/kona/internal/deployer"
	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Discoverer appends the endpoints it finds in a deployment result to the
// challenges of the group.
type Discoverer func(log *zap.SugaredLogger, cfg *konav1alpha1.GlobalConfig, challenge *konav1alpha1.ChallengeConfig, result *deployer.Result)

// Discoverers are run in order after every deployment.
var Discoverers = []Discoverer{
	DiscoverKlodd,
}

// Discover runs every registered Discoverer.
func Discover(log *zap.SugaredLogger, cfg *konav1alpha1.GlobalConfig, challenge *konav1alpha1.ChallengeConfig, result *deployer.Result) {
	log = log.Named("endpoints")
	for _, discover := range Discoverers {
		discover(log, cfg, challenge, result)
	}
}

// DiscoverKlodd adds an instancer endpoint for every deployed klodd Challenge.
func DiscoverKlodd(log *zap.SugaredLogger, cfg *konav1alpha1.GlobalConfig, challenge *konav1alpha1.ChallengeConfig, result *deployer.Result) {
	for _, obj := range find(result, konav1alpha1.KloddAPIVersion, konav1alpha1.KloddKind) {
		name := obj.GetName()
		if name == "" {
			log.Warnw("Found klodd challenge without a name")
			continue
		}

		if cfg.Discovery.KloddDomain == "" {
			log.Warnw("Found klodd challenge but no klodd domain is configured", "challenge", name)
			continue
		}

		endpoint := konav1alpha1.Endpoint{
			Name:     cfg.Discovery.KloddEndpointName,
			Type:     konav1alpha1.EndpointTypeHTTPS,
			Endpoint: cfg.Discovery.KloddDomain + "/challenge/" + name,
		}
		log.Infow("Discovered klodd endpoint", "challenge", name, "endpoint", endpoint.HTTPEndpoint())

		for i := range challenge.Challenges {
			challenge.Challenges[i].Endpoints = append(challenge.Challenges[i].Endpoints, endpoint)
		}
	}
}

func find(result *deployer.Result, apiVersion, kind string) []*unstructured.Unstructured {
	if result == nil {
		return nil
	}

	var found []*unstructured.Unstructured
	for _, applied := range result.AppliedManifests {
		obj := applied.Object
		if obj != nil && obj.GetAPIVersion() == apiVersion && obj.GetKind() == kind {
			found = append(found, obj)
		}
	}
	return found
}
