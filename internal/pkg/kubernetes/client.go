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

package kubernetes

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
)

// Interface is the part of the Kubernetes API kona needs to apply arbitrary manifests.
type Interface interface {
	// RESTMapping resolves a group/version/kind into its resource and scope.
	// Kinds unknown to the API server fail with a meta.NoKindMatchError.
	RESTMapping(gvk schema.GroupVersionKind) (*meta.RESTMapping, error)

	// Resource returns a client for the given resource. namespace is ignored
	// for cluster-scoped resources.
	Resource(mapping *meta.RESTMapping, namespace string) dynamic.ResourceInterface

	// InvalidateDiscovery drops cached API discovery data, so kinds served by
	// newly established CRDs resolve.
	InvalidateDiscovery()
}

// Client talks to a single cluster. Discovery results are cached in memory
// until InvalidateDiscovery is called.
type Client struct {
	dynamic dynamic.Interface
	cache   discovery.CachedDiscoveryInterface
	mapper  *restmapper.DeferredDiscoveryRESTMapper
}

var _ Interface = &Client{}

// NewClient creates a client for the cluster described by cfg.
func NewClient(cfg *rest.Config) (*Client, error) {
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	disc, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	cache := memory.NewMemCacheClient(disc)
	return &Client{
		dynamic: dyn,
		cache:   cache,
		mapper:  restmapper.NewDeferredDiscoveryRESTMapper(cache),
	}, nil
}

func (c *Client) RESTMapping(gvk schema.GroupVersionKind) (*meta.RESTMapping, error) {
	return c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
}

func (c *Client) Resource(mapping *meta.RESTMapping, namespace string) dynamic.ResourceInterface {
	res := c.dynamic.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		return res.Namespace(namespace)
	}
	return res
}

func (c *Client) InvalidateDiscovery() {
	c.mapper.Reset()
}
