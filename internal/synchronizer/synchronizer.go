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

package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kona-ctf/kona/internal/deployer"
	"github.com/kona-ctf/kona/internal/endpoints"
	"github.com/kona-ctf/kona/internal/pkg/archive"
	"github.com/kona-ctf/kona/internal/pkg/kubernetes"
	"github.com/kona-ctf/kona/internal/pkg/schema"
	"github.com/kona-ctf/kona/internal/platform"
	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"
)

type Deployer interface {
	Deploy(ctx context.Context, dir string, spec konav1alpha1.DeploymentSpec) (*deployer.Result, error)
}

type Renderer interface {
	Description(item *konav1alpha1.ChallengeItem) (string, error)
	Attribution(item *konav1alpha1.ChallengeItem) (string, error)
}

type ClusterSession interface {
	ActivateDefault(ctx context.Context) (kubernetes.Interface, bool, error)
}

// SyncResult lists the challenge groups synchronized by one pass, in walk order.
type SyncResult struct {
	Groups []SynchronizedGroup
}

// SynchronizedGroup is one challenge directory.
type SynchronizedGroup struct {
	Path       string
	Deployment *deployer.Result
	Challenges []SynchronizedChallenge
}

type SynchronizedChallenge struct {
	ID          string
	Description string
	// Attribution is the rendered author credit for platforms without an author field.
	Attribution string
	// Attachments are the attachment paths resolved against the challenge directory.
	Attachments []string
}

type Synchronizer struct {
	log       *zap.SugaredLogger
	cfg       *konav1alpha1.GlobalConfig
	deployer  Deployer
	renderer  Renderer
	session   ClusterSession
	providers []platform.Provider

	loadChallenge func(dir string) (*konav1alpha1.ChallengeConfig, error)
}

func New(
	log *zap.SugaredLogger,
	cfg *konav1alpha1.GlobalConfig,
	d Deployer,
	renderer Renderer,
	session ClusterSession,
	providers ...platform.Provider,
) *Synchronizer {
	return &Synchronizer{
		log:           log.Named("synchronizer"),
		cfg:           cfg,
		deployer:      d,
		renderer:      renderer,
		session:       session,
		providers:     providers,
		loadChallenge: schema.TryLoadChallenge,
	}
}

// Sync performs one pass over root.
func (s *Synchronizer) Sync(ctx context.Context, root string) (*SyncResult, error) {
	for _, p := range s.providers {
		if err := p.Setup(ctx); err != nil {
			return nil, fmt.Errorf("failed to set up %s: %w", p.Name(), err)
		}
	}

	if _, ok, err := s.session.ActivateDefault(ctx); err != nil {
		return nil, err
	} else if ok {
		s.log.Debug("Activated the only configured cluster")
	}

	groups, err := s.walk(ctx, root, 0)
	if err != nil {
		return nil, err
	}
	return &SyncResult{Groups: groups}, nil
}

func (s *Synchronizer) walk(ctx context.Context, dir string, depth int) ([]SynchronizedGroup, error) {
	if depth > s.cfg.Discovery.GetChallengeFolderDepth() {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var groups []SynchronizedGroup

	if depth > 0 {
		challenge, err := s.loadChallenge(dir)
		if err != nil {
			return nil, err
		}
		if challenge != nil {
			group, err := s.syncChallenge(ctx, dir, challenge)
			if err != nil {
				return nil, err
			}
			if group != nil {
				groups = append(groups, *group)
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if isDir, err := isDirectory(path, entry); err != nil {
			return nil, err
		} else if !isDir {
			continue
		}

		nested, err := s.walk(ctx, path, depth+1)
		if err != nil {
			return nil, err
		}
		groups = append(groups, nested...)
	}

	return groups, nil
}

// isDirectory follows symlinks. Cycles are cut off by the depth limit.
// Dangling links are ignored like any other non-directory entry.
func isDirectory(path string, entry os.DirEntry) (bool, error) {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.IsDir(), nil
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return info.IsDir(), nil
}

func (s *Synchronizer) syncChallenge(ctx context.Context, dir string, challenge *konav1alpha1.ChallengeConfig) (*SynchronizedGroup, error) {
	ids := make([]string, 0, len(challenge.Challenges))
	for i := range challenge.Challenges {
		ids = append(ids, challenge.Challenges[i].ChallengeID())
	}
	l := s.log.With("path", dir)
	l.Infow("Discovered challenges", "challenges", ids)

	if challenge.Discovery.Skip {
		l.Warn("Skipping challenge directory")
		return nil, nil
	}

	result, err := s.deployer.Deploy(ctx, dir, challenge.Deployment)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", dir, err)
	}
	endpoints.Discover(l, s.cfg, challenge, result)

	group := &SynchronizedGroup{
		Path:       dir,
		Deployment: result,
	}

	for i := range challenge.Challenges {
		item := &challenge.Challenges[i]

		synced, err := s.syncItem(ctx, l.With("challenge", item.ChallengeID()), dir, item)
		if err != nil {
			return nil, fmt.Errorf("failed to sync challenge %s: %w", item.ChallengeID(), err)
		}
		group.Challenges = append(group.Challenges, *synced)
	}

	return group, nil
}

func (s *Synchronizer) syncItem(ctx context.Context, l *zap.SugaredLogger, dir string, item *konav1alpha1.ChallengeItem) (*SynchronizedChallenge, error) {
	description, err := s.renderer.Description(item)
	if err != nil {
		return nil, err
	}
	attribution, err := s.renderer.Attribution(item)
	if err != nil {
		return nil, err
	}

	synced := &SynchronizedChallenge{
		ID:          item.ChallengeID(),
		Description: description,
		Attribution: attribution,
	}
	for _, a := range item.Attachments {
		synced.Attachments = append(synced.Attachments, filepath.Join(dir, a))
	}

	tmp, err := os.MkdirTemp("", "kona-attachments-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	var attachments string
	if len(item.Attachments) > 0 {
		attachments = filepath.Join(tmp, item.ChallengeID()+".tar.gz")
		if err := archive.TarGz(attachments, dir, item.Attachments); err != nil {
			return nil, err
		}
		l.Infow("Created attachments archive", "archive", attachments)
	}

	for _, p := range s.providers {
		if err := p.SyncChallenge(ctx, item, attachments, description); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		if err := p.Setup(ctx); err != nil {
			return nil, fmt.Errorf("%s: failed to refresh: %w", p.Name(), err)
		}
	}

	return synced, nil
}
