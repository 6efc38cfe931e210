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

// Package synchronizer walks a deploy directory and, for every challenge
// directory it finds, deploys the challenge and syncs it to the platforms.
//
// The walk is depth-first and bounded by the configured challenge folder
// depth. The deploy root itself is never treated as a challenge directory.
// Directories marked as skipped are neither deployed nor synced, but their
// subdirectories are still visited.
//
// One pass is performed per Sync call. Nothing is retried, nothing is rolled
// back and the first error aborts the pass.
package synchronizer
