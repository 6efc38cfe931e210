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
	"errors"
	"time"

	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Action is the outcome of applying a single document.
type Action string

const (
	ActionCreated      Action = "created"
	ActionUpdated      Action = "updated"
	ActionUpdatedForce Action = "updated-force"
	ActionUnchanged    Action = "unchanged"
	ActionRecreated    Action = "recreated"
)

var (
	// ErrUnknownResourceType is returned when the API server does not serve a manifest's kind.
	ErrUnknownResourceType = errors.New("unknown resource type")

	// ErrTimeout is returned when a resource did not reach the awaited state in time.
	ErrTimeout = errors.New("timed out")
)

// AppliedManifest records one applied document.
type AppliedManifest struct {
	// Object is the document as it was read from the manifest file.
	Object *unstructured.Unstructured
	// Live is the object returned by the API server.
	Live   *unstructured.Unstructured
	Action Action
}

// Options configure the field manager and the bounded waits of a Reconciler.
type Options struct {
	FieldManager string

	DeletePollInterval time.Duration
	DeleteTimeout      time.Duration

	CRDPollInterval time.Duration
	CRDTimeout      time.Duration
}

func DefaultOptions() Options {
	return Options{
		FieldManager:       konav1alpha1.FieldManager,
		DeletePollInterval: time.Second,
		DeleteTimeout:      120 * time.Second,
		CRDPollInterval:    500 * time.Millisecond,
		CRDTimeout:         120 * time.Second,
	}
}
