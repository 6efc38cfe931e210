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

// Package manifest decodes Kubernetes manifest files into unstructured documents.
package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"
)

var (
	// ErrInvalidManifest is returned for documents missing apiVersion, kind or metadata.name.
	ErrInvalidManifest = errors.New("invalid manifest")
)

const (
	crdGroup = "apiextensions.k8s.io"
	crdKind  = "CustomResourceDefinition"
	listKind = "List"
)

// Decode splits a multi-document YAML stream into documents. Empty
// documents are skipped. Lists are not expanded.
func Decode(r io.Reader) ([]*unstructured.Unstructured, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(r))

	var docs []*unstructured.Unstructured
	for i := 0; ; i++ {
		raw, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read document %d: %w", i, err)
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		data, err := yaml.YAMLToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", i, err)
		}

		// Integral numbers decode into int64, as the unstructured helpers expect.
		obj := map[string]interface{}{}
		if err := utiljson.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", i, err)
		}
		if len(obj) == 0 {
			continue
		}

		docs = append(docs, &unstructured.Unstructured{Object: obj})
	}
}

// Expand replaces every document of kind List with its items. Other kinds are
// kept as they are, even when they carry an items field.
func Expand(docs []*unstructured.Unstructured) ([]*unstructured.Unstructured, error) {
	out := make([]*unstructured.Unstructured, 0, len(docs))
	for i, doc := range docs {
		if doc.GetKind() != listKind {
			out = append(out, doc)
			continue
		}

		items, _, err := unstructured.NestedSlice(doc.Object, "items")
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %v", ErrInvalidManifest, i, err)
		}
		for j, item := range items {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: document %d: items[%d] is %T, not an object", ErrInvalidManifest, i, j, item)
			}
			out = append(out, &unstructured.Unstructured{Object: obj})
		}
	}
	return out, nil
}

// Validate checks the fields every applied document needs.
func Validate(doc *unstructured.Unstructured) error {
	switch {
	case doc.GetAPIVersion() == "":
		return fmt.Errorf("%w: apiVersion is required", ErrInvalidManifest)
	case doc.GetKind() == "":
		return fmt.Errorf("%w: kind is required", ErrInvalidManifest)
	case doc.GetName() == "":
		return fmt.Errorf("%w: metadata.name is required", ErrInvalidManifest)
	}
	return nil
}

// Coordinates formats the identifying fields of a document for logs and errors.
func Coordinates(doc *unstructured.Unstructured) string {
	ns := doc.GetNamespace()
	if ns == "" {
		return fmt.Sprintf("%s %s %s", doc.GetAPIVersion(), doc.GetKind(), doc.GetName())
	}
	return fmt.Sprintf("%s %s %s/%s", doc.GetAPIVersion(), doc.GetKind(), ns, doc.GetName())
}

// IsCRD reports whether doc is a CustomResourceDefinition.
func IsCRD(doc *unstructured.Unstructured) bool {
	gvk := doc.GroupVersionKind()
	return gvk.Group == crdGroup && gvk.Kind == crdKind
}
