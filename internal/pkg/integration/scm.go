// Copyright 2025 Arcentra Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/scm"
)

// ReleaseTagName is the final tag of a version, e.g. v1.4.0.
func ReleaseTagName(version string) string {
	return "v" + strings.TrimPrefix(strings.TrimSpace(version), "v")
}

// ReleaseCandidatePrefix is the prefix shared by every rc tag of a version.
func ReleaseCandidatePrefix(version string) string {
	return ReleaseTagName(version) + "_rc_"
}

// ReleaseCandidateTag names the n-th rc tag of version, e.g. v1.4.0_rc_2.
func ReleaseCandidateTag(version string, n int) string {
	return ReleaseCandidatePrefix(version) + strconv.Itoa(n)
}

// ScmSourceControl implements SourceControl over the pkg/scm provider registry.
type ScmSourceControl struct {
	providers map[scm.ProviderKind]scm.Provider
	fallback  scm.ProviderKind
}

// NewScmSourceControl builds one provider per config. The first config is used for
// releases that do not name a provider.
func NewScmSourceControl(configs []scm.ProviderConfig) (*ScmSourceControl, error) {
	s := &ScmSourceControl{providers: make(map[scm.ProviderKind]scm.Provider, len(configs))}
	for i, cfg := range configs {
		p, err := scm.NewProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("scm provider %s: %w", cfg.Kind, err)
		}
		s.providers[cfg.Kind] = p
		if i == 0 {
			s.fallback = cfg.Kind
		}
	}
	return s, nil
}

// NewScmSourceControlFrom wraps already constructed providers.
func NewScmSourceControlFrom(providers ...scm.Provider) *ScmSourceControl {
	s := &ScmSourceControl{providers: make(map[scm.ProviderKind]scm.Provider, len(providers))}
	for i, p := range providers {
		s.providers[p.Kind()] = p
		if i == 0 {
			s.fallback = p.Kind()
		}
	}
	return s
}

// Provider returns the configured provider of kind, used to verify webhooks.
func (s *ScmSourceControl) Provider(kind string) (scm.Provider, bool) {
	p, ok := s.providers[scm.ProviderKind(kind)]
	return p, ok
}

func (s *ScmSourceControl) resolve(ref RepoRef) (scm.Provider, scm.Repo, error) {
	kind := scm.ProviderKind(strings.ToLower(ref.Provider))
	if kind == "" {
		kind = s.fallback
	}
	p, ok := s.providers[kind]
	if !ok {
		return nil, scm.Repo{}, errs.Validation("scmProvider", "provider %q is not configured", ref.Provider)
	}
	repo, err := scm.ParseRepo(ref.Repository)
	if err != nil {
		return nil, scm.Repo{}, errs.Validation("repository", "%v", err)
	}
	return p, repo, nil
}

func (s *ScmSourceControl) ForkBranch(ctx context.Context, ref RepoRef, newBranch, baseBranch string) error {
	p, repo, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := p.ForkBranch(ctx, repo, newBranch, baseBranch); err != nil && !errors.Is(err, scm.ErrAlreadyExists) {
		return errs.External("scm", "ForkBranch", err)
	}
	return nil
}

func (s *ScmSourceControl) CreateTag(ctx context.Context, ref RepoRef, tag, target string) error {
	p, repo, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := p.CreateTag(ctx, repo, tag, target); err != nil && !errors.Is(err, scm.ErrAlreadyExists) {
		return errs.External("scm", "CreateTag", err)
	}
	return nil
}

func (s *ScmSourceControl) CreateReleaseNotes(ctx context.Context, ref RepoRef, currentTag, previousTag string, prerelease bool) (string, error) {
	p, repo, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	notes, err := p.CreateReleaseNotes(ctx, scm.ReleaseNotesRequest{
		Repo:        repo,
		CurrentTag:  currentTag,
		PreviousTag: previousTag,
		Prerelease:  prerelease,
	})
	if err != nil {
		return "", errs.External("scm", "CreateReleaseNotes", err)
	}
	return notes.Url, nil
}

func (s *ScmSourceControl) NextReleaseCandidateTag(ctx context.Context, ref RepoRef, version string) (string, error) {
	p, repo, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	prefix := ReleaseCandidatePrefix(version)
	tags, err := p.ListTags(ctx, repo, prefix)
	if err != nil {
		return "", errs.External("scm", "ListTags", err)
	}
	next := 1
	for _, t := range tags {
		n, err := strconv.Atoi(strings.TrimPrefix(t, prefix))
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return ReleaseCandidateTag(version, next), nil
}
