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

/*
Package reconciler applies Kubernetes manifests to a cluster.

Every document is applied in order with the following ladder:

  - objects that do not exist are created
  - existing objects are updated with a server-side apply as field manager "kona"
  - an apply rejected with a conflict is retried with forced ownership
  - when that fails too, the object is deleted, waited for and created again

CustomResourceDefinitions that changed are waited for until they are
established, and the discovery cache is invalidated afterwards so later
documents in the same stream can use the new kinds.
*/
package reconciler
