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
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kona-ctf/kona/internal/pkg/kubernetes"
	"github.com/kona-ctf/kona/internal/pkg/manifest"
	"github.com/kona-ctf/kona/internal/reconciler"

	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	kerrors "k8s.io/apimachinery/pkg/util/errors"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/e2e-framework/klient"
	"sigs.k8s.io/e2e-framework/klient/wait"
)

const (
	testNamespace = "kona-e2e"
	widgetCRD     = "widgets.e2e.kona.dev"
	kloddCRD      = "challenges.klodd.tjcsec.club"
)

var errClientNotInitialized = errors.New("client is not initialized")

type suite struct {
	client     client.Client
	restConfig *rest.Config
	kona       *kubernetes.Client
}

func (s *suite) withClient(kl klient.Client) error {
	scheme := runtime.NewScheme()

	schemeBuilders := []runtime.SchemeBuilder{
		runtime.NewSchemeBuilder(clientgoscheme.AddToScheme),
		apiextensionsv1.SchemeBuilder,
	}

	for _, builder := range schemeBuilders {
		if err := builder.AddToScheme(scheme); err != nil {
			return err
		}
	}

	cl, err := client.New(kl.RESTConfig(), client.Options{Scheme: scheme})
	if err != nil {
		return err
	}

	kona, err := kubernetes.NewClient(kl.RESTConfig())
	if err != nil {
		return err
	}

	s.client = cl
	s.restConfig = kl.RESTConfig()
	s.kona = kona
	return nil
}

func (s *suite) newReconciler() *reconciler.Reconciler {
	return reconciler.New(zap.NewNop().Sugar(), reconciler.DefaultOptions())
}

func (s *suite) apply(ctx context.Context, docs string) ([]reconciler.AppliedManifest, error) {
	objs, err := manifest.Decode(strings.NewReader(docs))
	if err != nil {
		return nil, err
	}
	return s.newReconciler().Apply(ctx, s.kona, objs)
}

func (s *suite) getConfigMap(ctx context.Context, name string) (*corev1.ConfigMap, error) {
	cm := &corev1.ConfigMap{}
	if err := s.client.Get(ctx, client.ObjectKey{Namespace: testNamespace, Name: name}, cm); err != nil {
		return nil, err
	}
	return cm, nil
}

func (s *suite) getUnstructured(ctx context.Context, apiVersion, kind, namespace, name string) (*unstructured.Unstructured, error) {
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion(apiVersion)
	obj.SetKind(kind)
	if err := s.client.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *suite) deleteAndWait(ctx context.Context, obj client.Object) error {
	return waitFor(ctx, func(ctx context.Context) (bool, error) {
		if err := s.client.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
			return false, nil
		}

		err := s.client.Get(ctx, client.ObjectKeyFromObject(obj), obj)
		if apierrors.IsNotFound(err) {
			return true, nil
		}
		return false, nil
	})
}

func (s *suite) cleanup(ctx context.Context) error {
	if s.client == nil {
		return errClientNotInitialized
	}

	var errs []error
	for _, name := range []string{widgetCRD, kloddCRD} {
		crd := &apiextensionsv1.CustomResourceDefinition{ObjectMeta: metav1.ObjectMeta{Name: name}}
		errs = append(errs, s.deleteAndWait(ctx, crd))
	}

	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: testNamespace}}
	errs = append(errs, s.deleteAndWait(ctx, ns))

	return kerrors.NewAggregate(errs)
}

const (
	timeout  = time.Minute * 2
	interval = time.Second * 1
)

func waitFor(ctx context.Context, f func(ctx context.Context) (bool, error)) error {
	err := wait.For(
		f,
		wait.WithTimeout(timeout),
		wait.WithInterval(interval),
		wait.WithContext(ctx),
	)

	return err
}
