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

package imagebuild

import (
	"io"

	"github.com/docker/cli/cli/config"
	dockerregistry "github.com/docker/docker/api/types/registry"
)

const dockerHubAuthKey = "https://index.docker.io/v1/"

// dockerConfigAuth reads credentials for host from the docker CLI config,
// including credential helpers. Hosts without credentials get an empty
// auth header, which the daemon requires on every push.
func dockerConfigAuth(host string) (string, error) {
	if host == "docker.io" || host == "registry-1.docker.io" || host == "index.docker.io" {
		host = dockerHubAuthKey
	}

	cf := config.LoadDefaultConfigFile(io.Discard)
	ac, err := cf.GetAuthConfig(host)
	if err != nil {
		return "", err
	}

	return dockerregistry.EncodeAuthConfig(dockerregistry.AuthConfig{
		Username:      ac.Username,
		Password:      ac.Password,
		Auth:          ac.Auth,
		ServerAddress: ac.ServerAddress,
		IdentityToken: ac.IdentityToken,
		RegistryToken: ac.RegistryToken,
	})
}
