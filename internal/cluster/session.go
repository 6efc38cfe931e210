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

// Package cluster selects the Kubernetes cluster manifests are applied to.
package cluster

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kona-ctf/kona/internal/pkg/kubernetes"
	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
)

var (
	// ErrUnknownCluster is returned for cluster names missing from the global config.
	ErrUnknownCluster = errors.New("unknown cluster")

	// ErrClusterCredentials is returned when no credential source is configured for a cluster.
	ErrClusterCredentials = errors.New("unable to load cluster credentials")
)

// SecretResolver resolves inline or named secrets.
type SecretResolver interface {
	SecretOrValue(ctx context.Context, sv *konav1alpha1.SecretOrValue) (string, error)
}

// ClientFactory creates a client for a cluster.
type ClientFactory func(cfg *rest.Config) (kubernetes.Interface, error)

func defaultClientFactory(cfg *rest.Config) (kubernetes.Interface, error) {
	return kubernetes.NewClient(cfg)
}

type Option func(*Session)

func WithClientFactory(f ClientFactory) Option {
	return func(s *Session) {
		s.newClient = f
	}
}

// WithInClusterConfig overrides how the pod service account config is loaded.
func WithInClusterConfig(f func() (*rest.Config, error)) Option {
	return func(s *Session) {
		s.inClusterConfig = f
	}
}

// WithDefaultConfig overrides how the local kubeconfig is loaded.
func WithDefaultConfig(f func() (*rest.Config, error)) Option {
	return func(s *Session) {
		s.defaultConfig = f
	}
}

// Session remembers the active cluster so that consecutive manifests for the
// same cluster reuse one client. It is not safe for concurrent use.
type Session struct {
	log      *zap.SugaredLogger
	clusters map[string]konav1alpha1.Cluster
	secrets  SecretResolver

	newClient       ClientFactory
	inClusterConfig func() (*rest.Config, error)
	defaultConfig   func() (*rest.Config, error)

	active string
	client kubernetes.Interface
}

func NewSession(log *zap.SugaredLogger, clusters map[string]konav1alpha1.Cluster, secrets SecretResolver, opts ...Option) *Session {
	s := &Session{
		log:             log.Named("cluster"),
		clusters:        clusters,
		secrets:         secrets,
		newClient:       defaultClientFactory,
		inClusterConfig: rest.InClusterConfig,
		defaultConfig:   config.GetConfig,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active returns the name of the active cluster, or "" before the first activation.
func (s *Session) Active() string {
	return s.active
}

// Clusters returns the number of configured clusters.
func (s *Session) Clusters() int {
	return len(s.clusters)
}

// Activate makes name the active cluster and returns its client. Activating
// the active cluster again returns the existing client.
func (s *Session) Activate(ctx context.Context, name string) (kubernetes.Interface, error) {
	if s.client != nil && s.active == name {
		return s.client, nil
	}

	cluster, ok := s.clusters[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCluster, name)
	}

	cfg, source, err := s.restConfig(ctx, name, cluster)
	if err != nil {
		return nil, err
	}

	client, err := s.newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for cluster %q: %w", name, err)
	}

	s.log.Infow("Loaded cluster credentials", "cluster", name, "source", source)
	s.active = name
	s.client = client
	return client, nil
}

// ActivateDefault activates the only configured cluster. ok is false when
// zero or several clusters are configured.
func (s *Session) ActivateDefault(ctx context.Context) (client kubernetes.Interface, ok bool, err error) {
	name, ok := konav1alpha1.SingleCluster(s.clusters)
	if !ok {
		return nil, false, nil
	}
	client, err = s.Activate(ctx, name)
	return client, err == nil, err
}

func (s *Session) restConfig(ctx context.Context, name string, cluster konav1alpha1.Cluster) (*rest.Config, string, error) {
	switch {
	case cluster.Kubeconfig != nil:
		kubeconfig, err := s.secrets.SecretOrValue(ctx, cluster.Kubeconfig)
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve kubeconfig for cluster %q: %w", name, err)
		}
		cfg, err := clientcmd.RESTConfigFromKubeConfig([]byte(kubeconfig))
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse kubeconfig for cluster %q: %w", name, err)
		}
		return cfg, "kubeconfig", nil

	case cluster.InCluster:
		cfg, err := s.inClusterConfig()
		if err != nil {
			return nil, "", fmt.Errorf("failed to load in-cluster config for cluster %q: %w", name, err)
		}
		return cfg, "incluster", nil

	case cluster.UseDefault:
		cfg, err := s.defaultConfig()
		if err != nil {
			return nil, "", fmt.Errorf("failed to load default kubeconfig for cluster %q: %w", name, err)
		}
		return cfg, "default", nil
	}

	return nil, "", fmt.Errorf("%w for cluster %q: none of kubeconfig, incluster, useDefault is set", ErrClusterCredentials, name)
}
