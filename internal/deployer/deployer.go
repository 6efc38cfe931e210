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

// Package deployer deploys the images and manifests of one challenge directory.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kona-ctf/kona/internal/pkg/kubernetes"
	"github.com/kona-ctf/kona/internal/pkg/manifest"
	"github.com/kona-ctf/kona/internal/reconciler"
	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

var (
	// ErrClusterNameRequired is returned for manifests without a cluster name
	// when the number of configured clusters is not exactly one.
	ErrClusterNameRequired = errors.New("cluster name must be set when not exactly one cluster is configured")
)

type ImageBuilder interface {
	BuildAndPush(ctx context.Context, dir string, images []konav1alpha1.DockerImage) ([]string, error)
}

type ClusterSession interface {
	Activate(ctx context.Context, name string) (kubernetes.Interface, error)
	ActivateDefault(ctx context.Context) (kubernetes.Interface, bool, error)
	Clusters() int
}

type ManifestApplier interface {
	Apply(ctx context.Context, client kubernetes.Interface, docs []*unstructured.Unstructured) ([]reconciler.AppliedManifest, error)
}

// Result is the outcome of one deployment.
type Result struct {
	// BuiltImages are the references of pushed images, in build order.
	BuiltImages      []string
	AppliedManifests []reconciler.AppliedManifest
}

type Deployer struct {
	log      *zap.SugaredLogger
	images   ImageBuilder
	clusters ClusterSession
	applier  ManifestApplier
}

func New(log *zap.SugaredLogger, images ImageBuilder, clusters ClusterSession, applier ManifestApplier) *Deployer {
	return &Deployer{
		log:      log.Named("deployer"),
		images:   images,
		clusters: clusters,
		applier:  applier,
	}
}

// Deploy builds the images of spec and then applies its manifests. Paths are
// relative to dir. Nothing is retried and nothing is rolled back on failure.
func (d *Deployer) Deploy(ctx context.Context, dir string, spec konav1alpha1.DeploymentSpec) (*Result, error) {
	result := &Result{}

	built, err := d.images.BuildAndPush(ctx, dir, spec.Images)
	if err != nil {
		return nil, err
	}
	result.BuiltImages = built

	for _, ref := range spec.KubernetesManifests {
		client, err := d.activate(ctx, ref.ClusterName)
		if err != nil {
			return nil, err
		}

		for _, path := range ref.GetPaths() {
			docs, err := readManifests(filepath.Join(dir, path))
			if err != nil {
				return nil, err
			}

			d.log.Debugw("Applying manifests", "path", path, "cluster", ref.ClusterName, "documents", len(docs))
			applied, err := d.applier.Apply(ctx, client, docs)
			if err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", path, err)
			}
			result.AppliedManifests = append(result.AppliedManifests, applied...)
		}
	}

	return result, nil
}

func (d *Deployer) activate(ctx context.Context, name string) (kubernetes.Interface, error) {
	if name != "" {
		return d.clusters.Activate(ctx, name)
	}
	if d.clusters.Clusters() != 1 {
		return nil, ErrClusterNameRequired
	}

	client, _, err := d.clusters.ActivateDefault(ctx)
	return client, err
}

func readManifests(path string) ([]*unstructured.Unstructured, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	defer f.Close()

	docs, err := manifest.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return docs, nil
}
