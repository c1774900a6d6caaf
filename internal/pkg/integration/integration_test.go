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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/scm"
)

type fakeProvider struct {
	kind     scm.ProviderKind
	tags     []string
	created  []string
	forkErr  error
	notesUrl string
}

func (f *fakeProvider) Kind() scm.ProviderKind { return f.kind }

func (f *fakeProvider) VerifyWebhook(context.Context, scm.WebhookRequest, string) error { return nil }

func (f *fakeProvider) ForkBranch(_ context.Context, _ scm.Repo, newBranch, _ string) error {
	if f.forkErr != nil {
		return f.forkErr
	}
	f.created = append(f.created, newBranch)
	return nil
}

func (f *fakeProvider) CreateTag(_ context.Context, _ scm.Repo, tag, _ string) error {
	for _, t := range f.tags {
		if t == tag {
			return scm.ErrAlreadyExists
		}
	}
	f.tags = append(f.tags, tag)
	return nil
}

func (f *fakeProvider) ListTags(_ context.Context, _ scm.Repo, prefix string) ([]string, error) {
	var out []string
	for _, t := range f.tags {
		if len(t) >= len(prefix) && t[:len(prefix)] == prefix {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeProvider) CreateReleaseNotes(context.Context, scm.ReleaseNotesRequest) (scm.ReleaseNotes, error) {
	return scm.ReleaseNotes{Url: f.notesUrl}, nil
}

func TestReleaseCandidateTags(t *testing.T) {
	assert.Equal(t, "v1.2.0", ReleaseTagName("1.2.0"))
	assert.Equal(t, "v1.2.0", ReleaseTagName("v1.2.0"))
	assert.Equal(t, "v1.2.0_rc_3", ReleaseCandidateTag("1.2.0", 3))

	p := &fakeProvider{kind: scm.ProviderKindGitHub, tags: []string{"v1.2.0_rc_1", "v1.2.0_rc_4", "v1.2.0_rc_x", "v1.3.0_rc_9"}}
	sc := NewScmSourceControlFrom(p)
	ref := RepoRef{Repository: "acme/app"}

	tag, err := sc.NextReleaseCandidateTag(context.Background(), ref, "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0_rc_5", tag)

	tag, err = sc.NextReleaseCandidateTag(context.Background(), ref, "2.0.0")
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0_rc_1", tag)
}

func TestScmSourceControlIdempotentCreate(t *testing.T) {
	p := &fakeProvider{kind: scm.ProviderKindGitLab, tags: []string{"v1.0.0"}}
	sc := NewScmSourceControlFrom(p)
	ref := RepoRef{Provider: "gitlab", Repository: "group/app"}

	require.NoError(t, sc.CreateTag(context.Background(), ref, "v1.0.0", "release/1.0.0"))
	p.forkErr = scm.ErrAlreadyExists
	require.NoError(t, sc.ForkBranch(context.Background(), ref, "release/1.0.0", "main"))

	p.forkErr = errors.New("403 forbidden")
	err := sc.ForkBranch(context.Background(), ref, "release/1.0.0", "main")
	assert.True(t, errs.IsExternal(err))

	err = sc.ForkBranch(context.Background(), RepoRef{Provider: "github", Repository: "acme/app"}, "b", "main")
	assert.True(t, errs.IsValidation(err), "github is not configured")

	err = sc.ForkBranch(context.Background(), RepoRef{Repository: "noslash"}, "b", "main")
	assert.True(t, errs.IsValidation(err))
}

func TestThresholdEvaluator(t *testing.T) {
	e := NewThresholdEvaluator()

	ok, err := e.Met("", TestRunStatus{Total: 10, Passed: 10})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Met("", TestRunStatus{Total: 10, Passed: 9, Untested: 1})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.Met("PassRate >= 90 && Blocked == 0", TestRunStatus{Total: 10, Passed: 9, Failed: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	require.Error(t, e.Compile("Passed +"))
	require.Error(t, e.Compile("Passed + 1"), "non-boolean expressions are rejected")
	require.Error(t, e.Compile("Unknown > 1"))
}
