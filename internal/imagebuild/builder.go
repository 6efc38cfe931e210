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

// Package imagebuild builds challenge container images and pushes them to the
// configured registries.
package imagebuild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"

	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"
)

var (
	// ErrUnknownRegistry is returned for images referencing a registry missing from the global config.
	ErrUnknownRegistry = errors.New("unknown registry")
)

// DockerAPI is the part of the Docker Engine API used to build and push images.
type DockerAPI interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options build.ImageBuildOptions) (build.ImageBuildResponse, error)
	ImagePush(ctx context.Context, image string, options image.PushOptions) (io.ReadCloser, error)
}

// AuthFunc returns the encoded registry credentials for a registry host.
type AuthFunc func(host string) (string, error)

type Option func(*Builder)

// WithDocker sets the Docker client. Without it a client is created from the
// DOCKER_* environment on first use.
func WithDocker(d DockerAPI) Option {
	return func(b *Builder) {
		b.docker = d
	}
}

func WithAuth(f AuthFunc) Option {
	return func(b *Builder) {
		b.auth = f
	}
}

type Builder struct {
	log        *zap.SugaredLogger
	registries map[string]string
	docker     DockerAPI
	auth       AuthFunc
}

func NewBuilder(log *zap.SugaredLogger, registries map[string]string, opts ...Option) *Builder {
	b := &Builder{
		log:        log.Named("imagebuild"),
		registries: registries,
		auth:       dockerConfigAuth,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildAndPush builds images in order and pushes those that name a registry.
// It returns the references of the pushed images. The first failure aborts
// the remaining images; images built before it are kept.
func (b *Builder) BuildAndPush(ctx context.Context, dir string, images []konav1alpha1.DockerImage) ([]string, error) {
	var pushed []string
	if len(images) == 0 {
		return pushed, nil
	}

	docker, err := b.client()
	if err != nil {
		return nil, err
	}

	for _, img := range images {
		log := b.log.With("image", img.Reference())

		repository := img.Name
		if img.RegistryName != "" {
			prefix, ok := b.registries[img.RegistryName]
			if !ok || prefix == "" {
				return pushed, fmt.Errorf("%w %q for %s", ErrUnknownRegistry, img.RegistryName, img.Reference())
			}
			repository = strings.TrimSuffix(prefix, "/") + "/" + img.Name
		}
		fullRef := repository + ":" + img.Tag
		log = log.With("ref", fullRef)

		named, err := reference.ParseNormalizedNamed(fullRef)
		if err != nil {
			return pushed, fmt.Errorf("invalid image reference %q: %w", fullRef, err)
		}

		log.Info("Building image")
		if err := b.build(ctx, log, docker, filepath.Join(dir, img.Path), fullRef, img); err != nil {
			return pushed, fmt.Errorf("failed to build %s: %w", fullRef, err)
		}

		if img.RegistryName == "" {
			log.Warn("Skipping push, no registry specified")
			continue
		}

		log.Info("Pushing image")
		if err := b.push(ctx, log, docker, fullRef, reference.Domain(named)); err != nil {
			return pushed, fmt.Errorf("failed to push %s: %w", fullRef, err)
		}
		pushed = append(pushed, fullRef)
	}

	return pushed, nil
}

func (b *Builder) client() (DockerAPI, error) {
	if b.docker != nil {
		return b.docker, nil
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	b.docker = cli
	return cli, nil
}

func (b *Builder) build(ctx context.Context, log *zap.SugaredLogger, docker DockerAPI, contextDir, fullRef string, img konav1alpha1.DockerImage) error {
	opts := build.ImageBuildOptions{
		Tags:        []string{fullRef},
		NoCache:     true,
		PullParent:  true,
		Remove:      true,
		ForceRemove: true,
		BuildArgs:   make(map[string]*string, len(img.BuildArgs)),
	}
	for k, v := range img.BuildArgs {
		opts.BuildArgs[k] = &v
	}

	if img.Platform != "" {
		platform, err := parsePlatform(img.Platform)
		if err != nil {
			return err
		}
		log = log.With("platform", formatPlatform(platform))
		opts.Platform = formatPlatform(platform)
	}

	buildContext, err := contextArchive(contextDir)
	if err != nil {
		return err
	}
	defer buildContext.Close()

	resp, err := docker.ImageBuild(ctx, buildContext, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return jsonmessage.DisplayJSONMessagesStream(resp.Body, &logWriter{log: log}, 0, false, nil)
}

// push pushes fullRef with the credentials stored for host. Prefixes without
// a registry host, such as a Docker Hub namespace, resolve to docker.io.
func (b *Builder) push(ctx context.Context, log *zap.SugaredLogger, docker DockerAPI, fullRef, host string) error {
	auth, err := b.auth(host)
	if err != nil {
		return fmt.Errorf("failed to load credentials for %s: %w", host, err)
	}

	body, err := docker.ImagePush(ctx, fullRef, image.PushOptions{RegistryAuth: auth})
	if err != nil {
		return err
	}
	defer body.Close()

	return jsonmessage.DisplayJSONMessagesStream(body, &logWriter{log: log}, 0, false, nil)
}

// parsePlatform parses "os/arch[/variant]".
func parsePlatform(s string) (ocispec.Platform, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return ocispec.Platform{}, fmt.Errorf("invalid platform %q, expected os/arch[/variant]", s)
	}

	p := ocispec.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) == 3 {
		p.Variant = parts[2]
	}
	return p, nil
}

func formatPlatform(p ocispec.Platform) string {
	if p.Variant == "" {
		return p.OS + "/" + p.Architecture
	}
	return p.OS + "/" + p.Architecture + "/" + p.Variant
}

// logWriter logs every line written to it at debug level.
type logWriter struct {
	log     *zap.SugaredLogger
	pending []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	for {
		i := strings.IndexAny(string(w.pending), "\r\n")
		if i < 0 {
			return len(p), nil
		}
		if line := strings.TrimSpace(string(w.pending[:i])); line != "" {
			w.log.Debug(line)
		}
		w.pending = w.pending[i+1:]
	}
}
