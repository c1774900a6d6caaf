package scm

import (
	"errors"
	"fmt"
	"strings"
)

type ProviderKind string

const (
	ProviderKindGitHub ProviderKind = "github"
	ProviderKindGitLab ProviderKind = "gitlab"
)

// Repo identifies a repository in a provider-agnostic way.
type Repo struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// ParseRepo splits "owner/name". Nested GitLab groups keep everything before the last
// slash as the owner.
func ParseRepo(fullName string) (Repo, error) {
	fullName = strings.Trim(strings.TrimSpace(fullName), "/")
	i := strings.LastIndex(fullName, "/")
	if i <= 0 || i == len(fullName)-1 {
		return Repo{}, fmt.Errorf("invalid repository %q, want owner/name", fullName)
	}
	return Repo{Owner: fullName[:i], Name: fullName[i+1:]}, nil
}

func (r Repo) FullName() string {
	return r.Owner + "/" + r.Name
}

// ReleaseNotesRequest describes the range of a release note.
type ReleaseNotesRequest struct {
	Repo        Repo
	CurrentTag  string
	PreviousTag string
	Title       string
	Prerelease  bool
}

// ReleaseNotes is the published note.
type ReleaseNotes struct {
	Url  string `json:"url"`
	Body string `json:"body"`
}

// ErrAlreadyExists is returned by providers when the branch or tag is already there.
// Callers performing idempotent creation treat it as success.
var ErrAlreadyExists = errors.New("ref already exists")
