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

// Package archive bundles challenge attachments into gzipped tarballs.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	dockerarchive "github.com/docker/docker/pkg/archive"
)

// TarGz writes the attachments, files or directories relative to dir, into
// a gzipped tarball at dest. Entries keep their path relative to dir.
func TarGz(dest, dir string, attachments []string) error {
	includes := make([]string, 0, len(attachments))
	for _, a := range attachments {
		rel, err := cleanRelative(a)
		if err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			return fmt.Errorf("attachment %s: %w", a, err)
		}
		includes = append(includes, rel)
	}

	rc, err := dockerarchive.TarWithOptions(dir, &dockerarchive.TarOptions{
		IncludeFiles: includes,
		Compression:  dockerarchive.Gzip,
	})
	if err != nil {
		return fmt.Errorf("failed to archive attachments: %w", err)
	}
	defer rc.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return f.Close()
}

// cleanRelative rejects attachments that would leave the challenge directory.
func cleanRelative(p string) (string, error) {
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("attachment %s must be relative to the challenge directory", p)
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("attachment %s is outside of the challenge directory", p)
	}
	return clean, nil
}
