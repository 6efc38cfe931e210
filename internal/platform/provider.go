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

// Package platform defines the contract of competition platforms challenges are synced to.
package platform

import (
	"context"

	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"
)

// Provider upserts challenges on a competition platform.
type Provider interface {
	// Name identifies the platform in logs.
	Name() string

	// Setup refreshes the provider's cache of remote challenge identifiers.
	// It is called once before the first challenge and again after every
	// SyncChallenge, so later challenges observe earlier ones.
	Setup(ctx context.Context) error

	// SyncChallenge creates or updates a challenge. attachments is the path
	// of a tar.gz bundle, or "" when the challenge has no attachments.
	SyncChallenge(ctx context.Context, challenge *konav1alpha1.ChallengeItem, attachments string, description string) error
}
