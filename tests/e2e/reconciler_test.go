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

package e2e_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kona-ctf/kona/internal/reconciler"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/e2e-framework/pkg/envconf"
	"sigs.k8s.io/e2e-framework/pkg/features"
)

const namespaceManifest = `
apiVersion: v1
kind: Namespace
metadata:
  name: kona-e2e
`

const widgetManifests = `
apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: widgets.e2e.kona.dev
spec:
  group: e2e.kona.dev
  names:
    kind: Widget
    listKind: WidgetList
    plural: widgets
    singular: widget
  scope: Namespaced
  versions:
    - name: v1
      served: true
      storage: true
      schema:
        openAPIV3Schema:
          type: object
          x-kubernetes-preserve-unknown-fields: true
---
apiVersion: e2e.kona.dev/v1
kind: Widget
metadata:
  name: sprocket
  namespace: kona-e2e
spec:
  size: 3
`

func actions(applied []reconciler.AppliedManifest) []reconciler.Action {
	out := make([]reconciler.Action, 0, len(applied))
	for _, a := range applied {
		out = append(out, a.Action)
	}
	return out
}

func setup(ctx context.Context, t *testing.T, s *suite, cfg *envconf.Config) {
	t.Helper()
	require.NoError(t, s.withClient(cfg.Client()), "failed to create clients")
	require.NoError(t, s.cleanup(ctx), "failed to clean up")
}

func TestApplyCreatesThenUnchanged(t *testing.T) {
	var s suite
	f := features.New("ApplyCreatesThenUnchanged")

	docs := namespaceManifest + `
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: settings
  namespace: kona-e2e
data:
  difficulty: hard
`

	f.Setup(func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
		setup(ctx, t, &s, cfg)
		return ctx
	}).Assess("First apply creates every document",
		func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			applied, err := s.apply(ctx, docs)
			require.NoError(t, err)
			require.Equal(t, []reconciler.Action{reconciler.ActionCreated, reconciler.ActionCreated}, actions(applied))

			cm, err := s.getConfigMap(ctx, "settings")
			require.NoError(t, err)
			require.Equal(t, "hard", cm.Data["difficulty"])
			return ctx
		},
	).Assess("Reapplying created documents is a no-op",
		func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			before, err := s.getConfigMap(ctx, "settings")
			require.NoError(t, err)

			applied, err := s.apply(ctx, docs)
			require.NoError(t, err)
			require.Equal(t, []reconciler.Action{reconciler.ActionUnchanged, reconciler.ActionUnchanged}, actions(applied))

			after, err := s.getConfigMap(ctx, "settings")
			require.NoError(t, err)
			require.Equal(t, before.ResourceVersion, after.ResourceVersion)
			return ctx
		},
	).Assess("Changed documents are updated",
		func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			applied, err := s.apply(ctx, strings.Replace(docs, "difficulty: hard", "difficulty: insane", 1))
			require.NoError(t, err)
			require.Len(t, applied, 2)
			require.Equal(t, reconciler.ActionUnchanged, applied[0].Action)
			require.Equal(t, reconciler.ActionUpdated, applied[1].Action)

			cm, err := s.getConfigMap(ctx, "settings")
			require.NoError(t, err)
			require.Equal(t, "insane", cm.Data["difficulty"])
			return ctx
		},
	).Teardown(func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
		require.NoError(t, s.cleanup(ctx))
		return ctx
	})

	testEnv.Test(t, f.Feature())
}

func TestApplyForcesConflicts(t *testing.T) {
	var s suite
	f := features.New("ApplyForcesConflicts")

	f.Setup(func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
		setup(ctx, t, &s, cfg)
		_, err := s.apply(ctx, namespaceManifest)
		require.NoError(t, err)
		return ctx
	}).Assess("Fields owned by another manager are taken over",
		func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			other := &unstructured.Unstructured{Object: map[string]interface{}{
				"apiVersion": "v1",
				"kind":       "ConfigMap",
				"metadata": map[string]interface{}{
					"name":      "owned",
					"namespace": testNamespace,
				},
				"data": map[string]interface{}{"flag": "flag{other}"},
			}}
			//nolint:staticcheck
			require.NoError(t, s.client.Patch(ctx, other, client.Apply, client.FieldOwner("e2e-other"), client.ForceOwnership))

			applied, err := s.apply(ctx, `
apiVersion: v1
kind: ConfigMap
metadata:
  name: owned
  namespace: kona-e2e
data:
  flag: flag{kona}
`)
			require.NoError(t, err)
			require.Equal(t, []reconciler.Action{reconciler.ActionUpdatedForce}, actions(applied))

			cm, err := s.getConfigMap(ctx, "owned")
			require.NoError(t, err)
			require.Equal(t, "flag{kona}", cm.Data["flag"])
			return ctx
		},
	).Teardown(func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
		require.NoError(t, s.cleanup(ctx))
		return ctx
	})

	testEnv.Test(t, f.Feature())
}

func TestApplyRecreatesImmutable(t *testing.T) {
	var s suite
	f := features.New("ApplyRecreatesImmutable")

	immutable := `
apiVersion: v1
kind: ConfigMap
metadata:
  name: frozen
  namespace: kona-e2e
immutable: true
data:
  flag: flag{one}
`

	f.Setup(func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
		setup(ctx, t, &s, cfg)
		_, err := s.apply(ctx, namespaceManifest)
		require.NoError(t, err)
		return ctx
	}).Assess("Rejected updates delete and create the object",
		func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			applied, err := s.apply(ctx, immutable)
			require.NoError(t, err)
			require.Equal(t, []reconciler.Action{reconciler.ActionCreated}, actions(applied))

			before, err := s.getConfigMap(ctx, "frozen")
			require.NoError(t, err)

			applied, err = s.apply(ctx, strings.Replace(immutable, "flag{one}", "flag{two}", 1))
			require.NoError(t, err)
			require.Equal(t, []reconciler.Action{reconciler.ActionRecreated}, actions(applied))

			after, err := s.getConfigMap(ctx, "frozen")
			require.NoError(t, err)
			require.NotEqual(t, before.UID, after.UID)
			require.Equal(t, "flag{two}", after.Data["flag"])
			return ctx
		},
	).Teardown(func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
		require.NoError(t, s.cleanup(ctx))
		return ctx
	})

	testEnv.Test(t, f.Feature())
}

func TestApplyCustomResourceAfterDefinition(t *testing.T) {
	var s suite
	f := features.New("ApplyCustomResourceAfterDefinition")

	f.Setup(func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
		setup(ctx, t, &s, cfg)
		_, err := s.apply(ctx, namespaceManifest)
		require.NoError(t, err)
		return ctx
	}).Assess("A CR in the same file as its CRD is applied once the CRD is established",
		func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			applied, err := s.apply(ctx, widgetManifests)
			require.NoError(t, err)
			require.Equal(t, []reconciler.Action{reconciler.ActionCreated, reconciler.ActionCreated}, actions(applied))

			widget, err := s.getUnstructured(ctx, "e2e.kona.dev/v1", "Widget", testNamespace, "sprocket")
			require.NoError(t, err)

			size, found, err := unstructured.NestedInt64(widget.Object, "spec", "size")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, int64(3), size)
			return ctx
		},
	).Assess("Reapplying created documents leaves them unchanged",
		func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			applied, err := s.apply(ctx, widgetManifests)
			require.NoError(t, err)
			require.Equal(t, []reconciler.Action{reconciler.ActionUnchanged, reconciler.ActionUnchanged}, actions(applied))
			return ctx
		},
	).Assess("Unknown kinds fail",
		func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			_, err := s.apply(ctx, `
apiVersion: e2e.kona.dev/v1
kind: Gadget
metadata:
  name: nope
  namespace: kona-e2e
`)
			require.ErrorIs(t, err, reconciler.ErrUnknownResourceType)
			return ctx
		},
	).Teardown(func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
		require.NoError(t, s.cleanup(ctx))
		return ctx
	})

	testEnv.Test(t, f.Feature())
}
