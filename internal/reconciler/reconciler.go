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

package reconciler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kona-ctf/kona/internal/pkg/kubernetes"
	"github.com/kona-ctf/kona/internal/pkg/manifest"
	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/dynamic"
	"k8s.io/utils/ptr"
)

// Reconciler applies manifest documents. It holds no per-cluster state, the
// client is passed to every Apply call.
type Reconciler struct {
	log  *zap.SugaredLogger
	opts Options
}

func New(log *zap.SugaredLogger, opts Options) *Reconciler {
	if opts.FieldManager == "" {
		opts.FieldManager = konav1alpha1.FieldManager
	}
	return &Reconciler{
		log:  log.Named("reconciler"),
		opts: opts,
	}
}

// Apply applies docs in order. Lists are expanded into their items first.
// The first failing document aborts the call; documents applied before it
// are left in place.
func (r *Reconciler) Apply(ctx context.Context, client kubernetes.Interface, docs []*unstructured.Unstructured) ([]AppliedManifest, error) {
	expanded, err := manifest.Expand(docs)
	if err != nil {
		return nil, err
	}

	applied := make([]AppliedManifest, 0, len(expanded))
	for i, doc := range expanded {
		if err := manifest.Validate(doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}

		log := r.log.With(
			"apiVersion", doc.GetAPIVersion(),
			"kind", doc.GetKind(),
			"namespace", doc.GetNamespace(),
			"name", doc.GetName(),
		)

		action, live, err := r.upsert(ctx, log, client, doc)
		if err == nil && manifest.IsCRD(doc) && action != ActionUnchanged {
			err = r.waitForCRD(ctx, log, client, doc.GetName())
			if err == nil {
				client.InvalidateDiscovery()
			}
		}
		if err != nil {
			log.Errorw("Failed to apply manifest", "error", err)
			return nil, fmt.Errorf("failed to apply %s: %w", manifest.Coordinates(doc), err)
		}

		log.Infow("Applied manifest", "action", action)
		applied = append(applied, AppliedManifest{Object: doc, Live: live, Action: action})
	}

	return applied, nil
}

func (r *Reconciler) upsert(ctx context.Context, log *zap.SugaredLogger, client kubernetes.Interface, doc *unstructured.Unstructured) (Action, *unstructured.Unstructured, error) {
	gvk := doc.GroupVersionKind()
	mapping, err := client.RESTMapping(gvk)
	if err != nil {
		if meta.IsNoMatchError(err) {
			return "", nil, fmt.Errorf("%w %s, is the CRD installed?", ErrUnknownResourceType, gvk.GroupVersion().String()+"/"+gvk.Kind)
		}
		return "", nil, fmt.Errorf("failed to resolve %s: %w", gvk, err)
	}

	namespace := ""
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		namespace = doc.GetNamespace()
		if namespace == "" {
			namespace = konav1alpha1.DefaultNamespace
		}
	}

	res := client.Resource(mapping, namespace)
	name := doc.GetName()

	current, err := res.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		created, err := r.create(ctx, res, doc)
		if err != nil {
			return "", nil, err
		}
		return ActionCreated, created, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to get: %w", err)
	}

	previousVersion := current.GetResourceVersion()

	patched, err := r.apply(ctx, res, doc, false)
	if err == nil {
		if patched.GetResourceVersion() == previousVersion {
			return ActionUnchanged, patched, nil
		}
		return ActionUpdated, patched, nil
	}

	if apierrors.IsConflict(err) {
		log.Debugw("Apply conflicted, forcing ownership", "error", err)
		forced, ferr := r.apply(ctx, res, doc, true)
		if ferr == nil {
			return ActionUpdatedForce, forced, nil
		}
		err = ferr
	}

	log.Warnw("Apply failed, recreating", "error", err)
	recreated, err := r.recreate(ctx, res, doc)
	if err != nil {
		return "", nil, err
	}
	return ActionRecreated, recreated, nil
}

func (r *Reconciler) apply(ctx context.Context, res dynamic.ResourceInterface, doc *unstructured.Unstructured, force bool) (*unstructured.Unstructured, error) {
	return res.Apply(ctx, doc.GetName(), doc, metav1.ApplyOptions{
		FieldManager: r.opts.FieldManager,
		Force:        force,
	})
}

func (r *Reconciler) recreate(ctx context.Context, res dynamic.ResourceInterface, doc *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	name := doc.GetName()

	err := res.Delete(ctx, name, metav1.DeleteOptions{
		PropagationPolicy:  ptr.To(metav1.DeletePropagationForeground),
		GracePeriodSeconds: ptr.To[int64](0),
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return nil, fmt.Errorf("failed to delete: %w", err)
	}

	err = wait.PollUntilContextTimeout(ctx, r.opts.DeletePollInterval, r.opts.DeleteTimeout, true, func(ctx context.Context) (bool, error) {
		_, err := res.Get(ctx, name, metav1.GetOptions{})
		return apierrors.IsNotFound(err), nil
	})
	if err != nil {
		return nil, r.waitError(ctx, err, "deletion")
	}

	return r.create(ctx, res, doc)
}

// create creates doc through server-side apply, so that the field manager owns
// its fields as an applier from the start and an identical reapply is a no-op.
func (r *Reconciler) create(ctx context.Context, res dynamic.ResourceInterface, doc *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	created, err := r.apply(ctx, res, doc, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create: %w", err)
	}
	return created, nil
}

func (r *Reconciler) waitForCRD(ctx context.Context, log *zap.SugaredLogger, client kubernetes.Interface, name string) error {
	log.Info("Waiting for CRD to become established")

	mapping, err := client.RESTMapping(apiextensionsv1.SchemeGroupVersion.WithKind("CustomResourceDefinition"))
	if err != nil {
		return fmt.Errorf("failed to resolve CustomResourceDefinition: %w", err)
	}
	res := client.Resource(mapping, "")

	err = wait.PollUntilContextTimeout(ctx, r.opts.CRDPollInterval, r.opts.CRDTimeout, true, func(ctx context.Context) (bool, error) {
		obj, err := res.Get(ctx, name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return isEstablished(obj)
	})
	if err != nil {
		return r.waitError(ctx, err, "establishment")
	}
	return nil
}

// isEstablished reports whether the CRD is Established and its names were not rejected.
func isEstablished(obj *unstructured.Unstructured) (bool, error) {
	crd := &apiextensionsv1.CustomResourceDefinition{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.UnstructuredContent(), crd); err != nil {
		return false, fmt.Errorf("failed to convert CustomResourceDefinition: %w", err)
	}

	established := false
	for _, cond := range crd.Status.Conditions {
		switch cond.Type {
		case apiextensionsv1.Established:
			established = cond.Status == apiextensionsv1.ConditionTrue
		case apiextensionsv1.NamesAccepted:
			if cond.Status == apiextensionsv1.ConditionFalse {
				return false, nil
			}
		}
	}
	return established, nil
}

// waitError turns an expired wait into ErrTimeout. Cancellation of the
// parent context is returned unchanged.
func (r *Reconciler) waitError(ctx context.Context, err error, operation string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if wait.Interrupted(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w waiting for %s", ErrTimeout, operation)
	}
	return err
}
