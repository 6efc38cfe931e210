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

// Package fake provides an in-memory cluster implementing kubernetes.Interface.
//
// The cluster keeps a discovery snapshot that is only refreshed by
// InvalidateDiscovery, serves kinds of CRDs once they become established and
// can be told to reject applies, delay deletions or delay CRD establishment.
// Managed fields are tracked per manager and operation only, so an applier
// adopting an object created by Create causes a write.
package fake

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/kona-ctf/kona/internal/pkg/kubernetes"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
)

var crdGVK = schema.GroupVersionKind{Group: "apiextensions.k8s.io", Version: "v1", Kind: "CustomResourceDefinition"}

type kind struct {
	resource   schema.GroupVersionResource
	namespaced bool
}

type objectKey struct {
	resource  schema.GroupVersionResource
	namespace string
	name      string
}

// Call records a mutating request received by the cluster.
type Call struct {
	Verb      string
	Resource  string
	Namespace string
	Name      string
	Force     bool
	Options   *metav1.DeleteOptions
}

// Cluster is an in-memory API server. It is not safe for concurrent use.
type Cluster struct {
	served     map[schema.GroupVersionKind]kind
	discovered map[schema.GroupVersionKind]kind
	objects    map[objectKey]*unstructured.Unstructured

	resourceVersion int

	// pending counts the remaining gets of a CRD before it becomes established.
	pending map[string]int
	// terminating counts the remaining gets of a deleted object before it is gone.
	terminating map[objectKey]int

	conflicts   map[string]int
	failForced  map[string]bool
	failApply   map[string]error
	deleteDelay int
	establishIn int

	Calls         []Call
	Invalidations int
}

var _ kubernetes.Interface = &Cluster{}

// NewCluster returns a cluster serving a handful of built-in kinds.
func NewCluster() *Cluster {
	c := &Cluster{
		served:      map[schema.GroupVersionKind]kind{},
		objects:     map[objectKey]*unstructured.Unstructured{},
		pending:     map[string]int{},
		terminating: map[objectKey]int{},
		conflicts:   map[string]int{},
		failForced:  map[string]bool{},
		failApply:   map[string]error{},
	}

	c.Serve(schema.GroupVersionKind{Version: "v1", Kind: "Namespace"}, "namespaces", false)
	c.Serve(schema.GroupVersionKind{Version: "v1", Kind: "ConfigMap"}, "configmaps", true)
	c.Serve(schema.GroupVersionKind{Version: "v1", Kind: "Secret"}, "secrets", true)
	c.Serve(schema.GroupVersionKind{Version: "v1", Kind: "Service"}, "services", true)
	c.Serve(schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}, "deployments", true)
	c.Serve(crdGVK, "customresourcedefinitions", false)
	c.InvalidateDiscovery()
	c.Invalidations = 0

	return c
}

// Serve registers a kind. It becomes visible to RESTMapping after the next InvalidateDiscovery.
func (c *Cluster) Serve(gvk schema.GroupVersionKind, plural string, namespaced bool) {
	c.served[gvk] = kind{
		resource:   gvk.GroupVersion().WithResource(plural),
		namespaced: namespaced,
	}
}

// ConflictOn makes the next n non-forced applies of name fail with a conflict.
func (c *Cluster) ConflictOn(name string, n int) {
	c.conflicts[name] = n
}

// FailForcedApply makes every forced apply of name fail.
func (c *Cluster) FailForcedApply(name string) {
	c.failForced[name] = true
}

// FailApply makes every non-forced apply of name fail with err.
func (c *Cluster) FailApply(name string, err error) {
	c.failApply[name] = err
}

// DelayDeletion keeps deleted objects around for n more gets.
func (c *Cluster) DelayDeletion(n int) {
	c.deleteDelay = n
}

// DelayEstablishment keeps new CRDs unestablished for n gets.
func (c *Cluster) DelayEstablishment(n int) {
	c.establishIn = n
}

// Object returns the stored object, or nil.
func (c *Cluster) Object(gvk schema.GroupVersionKind, namespace, name string) *unstructured.Unstructured {
	k, ok := c.served[gvk]
	if !ok {
		return nil
	}
	if !k.namespaced {
		namespace = ""
	}
	obj, ok := c.objects[objectKey{resource: k.resource, namespace: namespace, name: name}]
	if !ok {
		return nil
	}
	return obj.DeepCopy()
}

// Verbs returns the verbs of all recorded calls in order.
func (c *Cluster) Verbs() []string {
	out := make([]string, 0, len(c.Calls))
	for _, call := range c.Calls {
		out = append(out, call.Verb)
	}
	return out
}

func (c *Cluster) RESTMapping(gvk schema.GroupVersionKind) (*meta.RESTMapping, error) {
	k, ok := c.discovered[gvk]
	if !ok {
		return nil, &meta.NoKindMatchError{GroupKind: gvk.GroupKind(), SearchedVersions: []string{gvk.Version}}
	}

	scope := meta.RESTScopeRoot
	if k.namespaced {
		scope = meta.RESTScopeNamespace
	}
	return &meta.RESTMapping{Resource: k.resource, GroupVersionKind: gvk, Scope: scope}, nil
}

func (c *Cluster) Resource(mapping *meta.RESTMapping, namespace string) dynamic.ResourceInterface {
	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		namespace = ""
	}
	return &resourceClient{cluster: c, resource: mapping.Resource, namespace: namespace}
}

func (c *Cluster) InvalidateDiscovery() {
	c.discovered = make(map[schema.GroupVersionKind]kind, len(c.served))
	for gvk, k := range c.served {
		c.discovered[gvk] = k
	}
	c.Invalidations++
}

func (c *Cluster) nextResourceVersion() string {
	c.resourceVersion++
	return strconv.Itoa(c.resourceVersion)
}

// establish marks a CRD established and starts serving its kinds.
func (c *Cluster) establish(crd *unstructured.Unstructured) {
	group, _, _ := unstructured.NestedString(crd.Object, "spec", "group")
	kindName, _, _ := unstructured.NestedString(crd.Object, "spec", "names", "kind")
	plural, _, _ := unstructured.NestedString(crd.Object, "spec", "names", "plural")
	scope, _, _ := unstructured.NestedString(crd.Object, "spec", "scope")
	versions, _, _ := unstructured.NestedSlice(crd.Object, "spec", "versions")

	for _, v := range versions {
		version, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := version["name"].(string)
		c.Serve(schema.GroupVersionKind{Group: group, Version: name, Kind: kindName}, plural, scope == "Namespaced")
	}

	_ = unstructured.SetNestedSlice(crd.Object, []interface{}{
		map[string]interface{}{"type": "NamesAccepted", "status": "True"},
		map[string]interface{}{"type": "Established", "status": "True"},
	}, "status", "conditions")
}

type resourceClient struct {
	dynamic.ResourceInterface

	cluster   *Cluster
	resource  schema.GroupVersionResource
	namespace string
}

func (r *resourceClient) key(name string) objectKey {
	return objectKey{resource: r.resource, namespace: r.namespace, name: name}
}

func (r *resourceClient) isCRD() bool {
	return r.resource.Group == crdGVK.Group && r.resource.Resource == "customresourcedefinitions"
}

func (r *resourceClient) record(verb, name string, force bool, opts *metav1.DeleteOptions) {
	r.cluster.Calls = append(r.cluster.Calls, Call{
		Verb:      verb,
		Resource:  r.resource.Resource,
		Namespace: r.namespace,
		Name:      name,
		Force:     force,
		Options:   opts,
	})
}

func (r *resourceClient) Get(_ context.Context, name string, _ metav1.GetOptions, _ ...string) (*unstructured.Unstructured, error) {
	c := r.cluster
	key := r.key(name)

	obj, ok := c.objects[key]
	if !ok {
		return nil, apierrors.NewNotFound(r.resource.GroupResource(), name)
	}

	if remaining, ok := c.terminating[key]; ok {
		if remaining <= 0 {
			delete(c.terminating, key)
			delete(c.objects, key)
			return nil, apierrors.NewNotFound(r.resource.GroupResource(), name)
		}
		c.terminating[key] = remaining - 1
	}

	if r.isCRD() {
		if remaining, ok := c.pending[name]; ok {
			if remaining <= 0 {
				delete(c.pending, name)
				c.establish(obj)
			} else {
				c.pending[name] = remaining - 1
			}
		}
	}

	return obj.DeepCopy(), nil
}

// Create stores obj with manager recorded as an Update manager, the way
// clients other than appliers leave objects behind.
func (r *resourceClient) Create(_ context.Context, obj *unstructured.Unstructured, opts metav1.CreateOptions, _ ...string) (*unstructured.Unstructured, error) {
	name := obj.GetName()
	r.record("create", name, false, nil)

	if _, exists := r.cluster.objects[r.key(name)]; exists {
		return nil, apierrors.NewAlreadyExists(r.resource.GroupResource(), name)
	}
	return r.store(obj, opts.FieldManager, metav1.ManagedFieldsOperationUpdate), nil
}

func (r *resourceClient) store(obj *unstructured.Unstructured, manager string, operation metav1.ManagedFieldsOperationType) *unstructured.Unstructured {
	c := r.cluster
	name := obj.GetName()

	stored := obj.DeepCopy()
	if r.namespace != "" {
		stored.SetNamespace(r.namespace)
	}
	stored.SetResourceVersion(c.nextResourceVersion())
	stored.SetUID(types.UID("uid-" + stored.GetResourceVersion()))
	stored.SetManagedFields([]metav1.ManagedFieldsEntry{{Manager: manager, Operation: operation}})
	c.objects[r.key(name)] = stored

	if r.isCRD() {
		c.pending[name] = c.establishIn
	}

	return stored.DeepCopy()
}

func (r *resourceClient) Apply(_ context.Context, name string, obj *unstructured.Unstructured, opts metav1.ApplyOptions, _ ...string) (*unstructured.Unstructured, error) {
	c := r.cluster
	key := r.key(name)
	r.record("apply", name, opts.Force, nil)

	if opts.FieldManager == "" {
		return nil, apierrors.NewBadRequest("fieldManager is required for apply requests")
	}

	current, ok := c.objects[key]
	if !ok {
		return r.store(obj, opts.FieldManager, metav1.ManagedFieldsOperationApply), nil
	}

	if opts.Force {
		if c.failForced[name] {
			return nil, apierrors.NewConflict(r.resource.GroupResource(), name, errors.New("forced apply rejected"))
		}
	} else {
		if err := c.failApply[name]; err != nil {
			return nil, err
		}
		if c.conflicts[name] > 0 {
			c.conflicts[name]--
			return nil, apierrors.NewConflict(r.resource.GroupResource(), name, fmt.Errorf("conflict with field manager %q", "other"))
		}
	}

	desired := obj.DeepCopy()
	if r.namespace != "" {
		desired.SetNamespace(r.namespace)
	}
	if status, ok := current.Object["status"]; ok {
		if _, set := desired.Object["status"]; !set {
			desired.Object["status"] = status
		}
	}

	managedFields, added := withApplier(current.GetManagedFields(), opts.FieldManager)
	if !added && reflect.DeepEqual(userContent(current), userContent(desired)) {
		return current.DeepCopy(), nil
	}

	// Taking over fields from an Update manager is a write even when the
	// content does not change.
	desired.SetManagedFields(managedFields)
	desired.SetUID(current.GetUID())
	desired.SetResourceVersion(c.nextResourceVersion())
	c.objects[key] = desired

	if r.isCRD() {
		if _, waiting := c.pending[name]; !waiting {
			c.establish(desired)
		}
	}

	return desired.DeepCopy(), nil
}

func (r *resourceClient) Delete(_ context.Context, name string, opts metav1.DeleteOptions, _ ...string) error {
	c := r.cluster
	key := r.key(name)
	r.record("delete", name, false, opts.DeepCopy())

	if _, ok := c.objects[key]; !ok {
		return apierrors.NewNotFound(r.resource.GroupResource(), name)
	}
	if _, ok := c.terminating[key]; ok {
		return nil
	}

	if c.deleteDelay > 0 {
		c.terminating[key] = c.deleteDelay
		return nil
	}
	delete(c.objects, key)
	return nil
}

// withApplier adds manager as an Apply manager. added reports whether it was missing.
func withApplier(entries []metav1.ManagedFieldsEntry, manager string) ([]metav1.ManagedFieldsEntry, bool) {
	for _, e := range entries {
		if e.Manager == manager && e.Operation == metav1.ManagedFieldsOperationApply {
			return entries, false
		}
	}
	return append(entries, metav1.ManagedFieldsEntry{Manager: manager, Operation: metav1.ManagedFieldsOperationApply}), true
}

// userContent strips the fields the API server owns.
func userContent(obj *unstructured.Unstructured) map[string]interface{} {
	out := obj.DeepCopy()
	out.SetResourceVersion("")
	out.SetUID("")
	out.SetManagedFields(nil)
	out.SetCreationTimestamp(metav1.Time{})
	return out.Object
}
