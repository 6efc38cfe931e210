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

package manifest

import (
	"errors"
	"strings"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const multiDoc = `
---
apiVersion: v1
kind: Namespace
metadata:
  name: web
---
# only a comment
---
apiVersion: v1
kind: List
items:
  - apiVersion: v1
    kind: ConfigMap
    metadata:
      name: a
      namespace: web
  - apiVersion: v1
    kind: ConfigMap
    metadata:
      name: b
      namespace: web
---
apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: challenges.klodd.tjcsec.club
`

func TestDecodeAndExpand(t *testing.T) {
	docs, err := Decode(strings.NewReader(multiDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}

	expanded, err := Expand(docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		"v1 Namespace web",
		"v1 ConfigMap web/a",
		"v1 ConfigMap web/b",
		"apiextensions.k8s.io/v1 CustomResourceDefinition challenges.klodd.tjcsec.club",
	}
	if len(expanded) != len(expected) {
		t.Fatalf("expected %d documents, got %d", len(expected), len(expanded))
	}
	for i := range expected {
		if got := Coordinates(expanded[i]); got != expected[i] {
			t.Errorf("document %d: expected %q, got %q", i, expected[i], got)
		}
	}

	if !IsCRD(expanded[3]) || IsCRD(expanded[0]) {
		t.Error("expected only the last document to be a CRD")
	}
}

func TestExpandOnlyLists(t *testing.T) {
	// A custom resource with an items array in its top level is applied as is.
	inventory := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "e2e.kona.dev/v1",
		"kind":       "Inventory",
		"metadata":   map[string]interface{}{"name": "shelf"},
		"items": []interface{}{
			map[string]interface{}{"apiVersion": "v1", "kind": "ConfigMap", "metadata": map[string]interface{}{"name": "a"}},
		},
	}}
	emptyList := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "List",
	}}

	expanded, err := Expand([]*unstructured.Unstructured{inventory, emptyList})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(expanded) != 1 || expanded[0] != inventory {
		t.Fatalf("expected only the Inventory document, got %d documents", len(expanded))
	}
}

func TestExpandInvalidItems(t *testing.T) {
	tests := []struct {
		name          string
		items         interface{}
		expectedError string
	}{
		{
			name:          "scalar item",
			items:         []interface{}{map[string]interface{}{"kind": "ConfigMap"}, "oops"},
			expectedError: "document 0: items[1] is string",
		},
		{
			name:          "items is not an array",
			items:         map[string]interface{}{"kind": "ConfigMap"},
			expectedError: "document 0",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list := &unstructured.Unstructured{Object: map[string]interface{}{
				"apiVersion": "v1",
				"kind":       "List",
				"items":      tc.items,
			}}
			_, err := Expand([]*unstructured.Unstructured{list})
			if !errors.Is(err, ErrInvalidManifest) {
				t.Fatalf("expected ErrInvalidManifest, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.expectedError) {
				t.Errorf("expected error containing %q, got %v", tc.expectedError, err)
			}
		})
	}
}

func TestDecodeInvalidYAML(t *testing.T) {
	if _, err := Decode(strings.NewReader("kind: [unterminated")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		object        map[string]interface{}
		expectedError string
	}{
		{
			name: "valid",
			object: map[string]interface{}{
				"apiVersion": "v1",
				"kind":       "ConfigMap",
				"metadata":   map[string]interface{}{"name": "a"},
			},
		},
		{
			name: "missing apiVersion",
			object: map[string]interface{}{
				"kind":     "ConfigMap",
				"metadata": map[string]interface{}{"name": "a"},
			},
			expectedError: "apiVersion",
		},
		{
			name: "missing kind",
			object: map[string]interface{}{
				"apiVersion": "v1",
				"metadata":   map[string]interface{}{"name": "a"},
			},
			expectedError: "kind",
		},
		{
			name: "missing name",
			object: map[string]interface{}{
				"apiVersion": "v1",
				"kind":       "ConfigMap",
			},
			expectedError: "metadata.name",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&unstructured.Unstructured{Object: tc.object})
			if tc.expectedError == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidManifest) {
				t.Fatalf("expected ErrInvalidManifest, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.expectedError) {
				t.Errorf("expected error containing %q, got %v", tc.expectedError, err)
			}
		})
	}
}
