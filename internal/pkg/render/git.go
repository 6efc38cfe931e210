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

package render

import (
	"errors"

	"github.com/go-git/go-git/v5"
)

const shortSHALength = 7

// GitInfo describes the commit the deploy directory is checked out at.
type GitInfo struct {
	SHA      string
	ShortSHA string
	Branch   string
}

// LoadGitInfo returns the HEAD commit of the repository containing dir.
// Directories outside a git repository yield an empty GitInfo.
func LoadGitInfo(dir string) (GitInfo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return GitInfo{}, nil
	}
	if err != nil {
		return GitInfo{}, err
	}

	head, err := repo.Head()
	if err != nil {
		// A repository without commits has no HEAD yet.
		return GitInfo{}, nil
	}

	sha := head.Hash().String()
	info := GitInfo{SHA: sha, ShortSHA: sha[:shortSHALength]}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}
	return info, nil
}
