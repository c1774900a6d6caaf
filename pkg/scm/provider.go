package scm

import (
	"context"
	"net/http"
)

// WebhookRequest is the raw inbound webhook. Signatures are verified over Body.
type WebhookRequest struct {
	Headers map[string]string `json:"headers"`
	Body    []byte            `json:"body"`
}

// Header does a case-insensitive header lookup.
func (r WebhookRequest) Header(key string) string {
	if v, ok := r.Headers[key]; ok {
		return v
	}
	return http.Header(canonical(r.Headers)).Get(key)
}

func canonical(in map[string]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[http.CanonicalHeaderKey(k)] = []string{v}
	}
	return out
}

// Provider is the set of repository operations a release needs.
type Provider interface {
	Kind() ProviderKind
	VerifyWebhook(ctx context.Context, req WebhookRequest, secret string) error
	// ForkBranch creates newBranch from the head of baseBranch.
	ForkBranch(ctx context.Context, repo Repo, newBranch, baseBranch string) error
	// CreateTag creates a lightweight tag on the head of ref.
	CreateTag(ctx context.Context, repo Repo, tag, ref string) error
	// ListTags returns tag names starting with prefix.
	ListTags(ctx context.Context, repo Repo, prefix string) ([]string, error)
	CreateReleaseNotes(ctx context.Context, req ReleaseNotesRequest) (ReleaseNotes, error)
}
