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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kona-ctf/kona/internal/cluster"
	"github.com/kona-ctf/kona/internal/deployer"
	"github.com/kona-ctf/kona/internal/imagebuild"
	konalog "github.com/kona-ctf/kona/internal/pkg/log"
	"github.com/kona-ctf/kona/internal/pkg/render"
	"github.com/kona-ctf/kona/internal/pkg/schema"
	"github.com/kona-ctf/kona/internal/pkg/secrets"
	"github.com/kona-ctf/kona/internal/platform"
	"github.com/kona-ctf/kona/internal/reconciler"
	"github.com/kona-ctf/kona/internal/synchronizer"
)

type flags struct {
	deployDirectory string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags
	logFlags := konalog.NewDefaultOptions()

	cmd := &cobra.Command{
		Use:          "kona",
		Short:        "Deploy CTF challenges and sync them to the competition platforms",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logFlags.Validate(); err != nil {
				return err
			}

			rawLog := konalog.NewFromOptions(logFlags)
			defer func() { _ = rawLog.Sync() }()
			konalog.RedirectKubernetesLogs(rawLog)
			l := rawLog.Sugar()

			result, err := run(cmd.Context(), l, f)
			if err != nil {
				l.Errorw("Synchronization failed", "error", err)
				return err
			}

			printSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.deployDirectory, "deploy-directory", "d", "", "Directory holding kona.yaml and the challenge directories")
	_ = cmd.MarkFlagRequired("deploy-directory")
	logFlags.AddPFlags(cmd.Flags())

	return cmd
}

func run(ctx context.Context, l *zap.SugaredLogger, f flags) (*synchronizer.SyncResult, error) {
	root, err := filepath.Abs(f.deployDirectory)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil {
		return nil, err
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	l.Infow("Starting", "root", root)

	cfg, err := schema.LoadGlobal(root)
	if err != nil {
		return nil, err
	}

	git, err := render.LoadGitInfo(root)
	if err != nil {
		return nil, err
	}
	if git.SHA != "" {
		l.Infow("Deploying from git checkout", "branch", git.Branch, "commit", git.ShortSHA)
	}

	resolver := secrets.NewResolver(root, cfg.Secrets)
	session := cluster.NewSession(l, cfg.Clusters, resolver)

	d := deployer.New(l,
		imagebuild.NewBuilder(l, cfg.Registries),
		session,
		reconciler.New(l, reconciler.DefaultOptions()),
	)

	// No platform integrations are built in yet.
	var providers []platform.Provider

	s := synchronizer.New(l, cfg, d, render.NewEngine(cfg.Templates, git), session, providers...)
	return s.Sync(ctx, root)
}

func printSummary(w io.Writer, result *synchronizer.SyncResult) {
	images, manifests, challenges := 0, 0, 0
	for _, g := range result.Groups {
		if g.Deployment != nil {
			images += len(g.Deployment.BuiltImages)
			manifests += len(g.Deployment.AppliedManifests)
		}
		challenges += len(g.Challenges)

		for _, c := range g.Challenges {
			fmt.Fprintf(w, "%s\t%s\n", c.ID, g.Path)
		}
	}
	fmt.Fprintf(w, "synchronized %d challenges in %d groups (%d images pushed, %d manifests applied)\n",
		challenges, len(result.Groups), images, manifests)
}
