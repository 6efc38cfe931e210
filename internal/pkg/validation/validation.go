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

// Package validation checks decoded and defaulted kona configuration files.
// Registry and cluster references are checked where they are used, so that
// images declared before a bad reference are still built.
package validation

import (
	"fmt"
	"net/url"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ValidateGlobalConfig returns an aggregate of every problem found in cfg, or nil.
func ValidateGlobalConfig(cfg *konav1alpha1.GlobalConfig) error {
	var allErrs field.ErrorList

	if cfg.Discovery.ChallengeFolderDepth != nil && *cfg.Discovery.ChallengeFolderDepth < 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("discovery", "challengeFolderDepth"), *cfg.Discovery.ChallengeFolderDepth, "must not be negative"))
	}

	secretsPath := field.NewPath("secrets")
	for name, secret := range cfg.Secrets {
		if sources := secret.Sources(); len(sources) != 1 {
			allErrs = append(allErrs, field.Invalid(secretsPath.Key(name), sources, "exactly one of filePath, value, env, vault must be set"))
		}
	}

	if c := cfg.RCTF; c != nil {
		rctfPath := field.NewPath("rctf")
		allErrs = append(allErrs, validateBaseURL(rctfPath.Child("baseUrl"), c.BaseURL)...)
		allErrs = append(allErrs, validateSecretOrValue(rctfPath.Child("teamToken"), &c.TeamToken, cfg.Secrets)...)
	}

	if c := cfg.CTFd; c != nil {
		ctfdPath := field.NewPath("ctfd")
		allErrs = append(allErrs, validateBaseURL(ctfdPath.Child("baseUrl"), c.BaseURL)...)
		allErrs = append(allErrs, validateSecretOrValue(ctfdPath.Child("adminToken"), &c.AdminToken, cfg.Secrets)...)
	}

	registriesPath := field.NewPath("registries")
	for name, prefix := range cfg.Registries {
		if prefix == "" {
			allErrs = append(allErrs, field.Required(registriesPath.Key(name), "registry prefix must not be empty"))
		}
	}

	clustersPath := field.NewPath("clusters")
	for name, cluster := range cfg.Clusters {
		allErrs = append(allErrs, validateCluster(clustersPath.Key(name), cluster, cfg.Secrets)...)
	}

	templatesPath := field.NewPath("templates")
	for key, text := range map[string]string{
		"challengeDescription": cfg.Templates.ChallengeDescription,
		"endpointsText":        cfg.Templates.EndpointsText,
		"ctfdAttribution":      cfg.Templates.CTFdAttribution,
	} {
		if _, err := template.New(key).Funcs(sprig.TxtFuncMap()).Parse(text); err != nil {
			allErrs = append(allErrs, field.Invalid(templatesPath.Child(key), text, err.Error()))
		}
	}

	return allErrs.ToAggregate()
}

func validateCluster(fldPath *field.Path, cluster konav1alpha1.Cluster, secrets map[string]konav1alpha1.Secret) field.ErrorList {
	var allErrs field.ErrorList

	if kc := cluster.Kubeconfig; kc != nil {
		allErrs = append(allErrs, validateSecretOrValue(fldPath.Child("kubeconfig"), kc, secrets)...)
	}

	if cluster.Kubeconfig == nil && !cluster.InCluster && !cluster.UseDefault {
		allErrs = append(allErrs, field.Required(fldPath, "one of kubeconfig, incluster, useDefault must be set"))
	}

	return allErrs
}

func validateSecretOrValue(fldPath *field.Path, v *konav1alpha1.SecretOrValue, secrets map[string]konav1alpha1.Secret) field.ErrorList {
	var allErrs field.ErrorList

	switch {
	case (v.Secret == "") == (v.Value == ""):
		allErrs = append(allErrs, field.Invalid(fldPath, "", "exactly one of secret, value must be set"))
	case v.Secret != "":
		if _, ok := secrets[v.Secret]; !ok {
			allErrs = append(allErrs, field.NotFound(fldPath.Child("secret"), v.Secret))
		}
	}

	return allErrs
}

// validateBaseURL accepts absolute http and https URLs.
func validateBaseURL(fldPath *field.Path, raw string) field.ErrorList {
	if raw == "" {
		return field.ErrorList{field.Required(fldPath, "")}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return field.ErrorList{field.Invalid(fldPath, raw, err.Error())}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return field.ErrorList{field.Invalid(fldPath, raw, "must be an absolute http or https URL")}
	}

	return nil
}

// ValidateChallengeConfig returns an aggregate of every problem found in cfg, or nil.
func ValidateChallengeConfig(cfg *konav1alpha1.ChallengeConfig) error {
	var allErrs field.ErrorList

	challengesPath := field.NewPath("challenges")
	ids := make(map[string]int, len(cfg.Challenges))
	for i := range cfg.Challenges {
		item := &cfg.Challenges[i]
		idxPath := challengesPath.Index(i)

		allErrs = append(allErrs, validateChallengeItem(idxPath, item)...)

		id := item.ChallengeID()
		if prev, exists := ids[id]; exists {
			allErrs = append(allErrs, field.Duplicate(idxPath, fmt.Sprintf("%s (also challenges[%d])", id, prev)))
			continue
		}
		ids[id] = i
	}

	imagesPath := field.NewPath("deployment", "images")
	for i, img := range cfg.Deployment.Images {
		if img.Path == "" {
			allErrs = append(allErrs, field.Required(imagesPath.Index(i).Child("path"), ""))
		}
		if img.Name == "" {
			allErrs = append(allErrs, field.Required(imagesPath.Index(i).Child("name"), ""))
		}
	}

	manifestsPath := field.NewPath("deployment", "kubernetesManifests")
	for i, m := range cfg.Deployment.KubernetesManifests {
		if len(m.GetPaths()) == 0 {
			allErrs = append(allErrs, field.Required(manifestsPath.Index(i).Child("paths"), "at least one manifest path must be set"))
		}
	}

	return allErrs.ToAggregate()
}

func validateChallengeItem(fldPath *field.Path, item *konav1alpha1.ChallengeItem) field.ErrorList {
	var allErrs field.ErrorList

	if item.Category == "" {
		allErrs = append(allErrs, field.Required(fldPath.Child("category"), ""))
	}
	if item.Name == "" {
		allErrs = append(allErrs, field.Required(fldPath.Child("name"), ""))
	}
	if item.Author == "" {
		allErrs = append(allErrs, field.Required(fldPath.Child("author"), ""))
	}

	if item.Flags.RCTF == "" && len(item.Flags.CTFd) == 0 {
		allErrs = append(allErrs, field.Required(fldPath.Child("flags"), fmt.Sprintf("at least one flag must be set for challenge %s", item.ChallengeID())))
	}

	for i, e := range item.Endpoints {
		epPath := fldPath.Child("endpoints").Index(i)
		if !e.Type.Valid() {
			allErrs = append(allErrs, field.NotSupported(epPath.Child("type"), e.Type, []konav1alpha1.EndpointType{
				konav1alpha1.EndpointTypeHTTP,
				konav1alpha1.EndpointTypeHTTPS,
				konav1alpha1.EndpointTypeSocat,
				konav1alpha1.EndpointTypeNC,
				konav1alpha1.EndpointTypeNcatSSL,
			}))
		}
		if e.Endpoint == "" {
			allErrs = append(allErrs, field.Required(epPath.Child("endpoint"), ""))
		}
	}

	return allErrs
}
