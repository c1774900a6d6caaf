package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/arcentrix/launchpad/pkg/scm"
)

type Provider struct {
	cfg    scm.ProviderConfig
	client *resty.Client
}

func New(cfg scm.ProviderConfig) (scm.Provider, error) {
	p := &Provider{cfg: cfg}
	p.client = resty.New().
		SetTimeout(15 * time.Second).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	apiBase := strings.TrimSpace(cfg.ApiBaseUrl)
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}
	p.client.SetBaseURL(strings.TrimRight(apiBase, "/"))
	p.client.SetHeader("Accept", "application/vnd.github+json")

	if strings.TrimSpace(cfg.Token) != "" {
		p.client.SetAuthToken(cfg.Token)
	}
	return p, nil
}

func (p *Provider) Kind() scm.ProviderKind { return scm.ProviderKindGitHub }

func (p *Provider) VerifyWebhook(_ context.Context, req scm.WebhookRequest, secret string) error {
	return scm.VerifyHmacSha256Hex(req.Body, secret, req.Header("X-Hub-Signature-256"), "sha256=")
}

type gitRef struct {
	Ref    string `json:"ref"`
	Object struct {
		Sha string `json:"sha"`
	} `json:"object"`
}

type apiError struct {
	Message string `json:"message"`
}

func repoPath(repo scm.Repo) string {
	return fmt.Sprintf("/repos/%s/%s", url.PathEscape(repo.Owner), url.PathEscape(repo.Name))
}

func (p *Provider) headSha(ctx context.Context, repo scm.Repo, branch string) (string, error) {
	var ref gitRef
	var apiErr apiError
	r, err := p.client.R().
		SetContext(ctx).
		SetResult(&ref).
		SetError(&apiErr).
		Get(repoPath(repo) + "/git/ref/heads/" + branch)
	if err != nil {
		return "", err
	}
	if r.IsError() {
		return "", fmt.Errorf("github get ref %s: %s %s", branch, r.Status(), apiErr.Message)
	}
	if ref.Object.Sha == "" {
		return "", fmt.Errorf("github get ref %s: empty sha", branch)
	}
	return ref.Object.Sha, nil
}

func (p *Provider) createRef(ctx context.Context, repo scm.Repo, ref, sha string) error {
	var apiErr apiError
	r, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"ref": ref, "sha": sha}).
		SetError(&apiErr).
		Post(repoPath(repo) + "/git/refs")
	if err != nil {
		return err
	}
	if r.StatusCode() == http.StatusUnprocessableEntity && strings.Contains(apiErr.Message, "already exists") {
		return scm.ErrAlreadyExists
	}
	if r.IsError() {
		return fmt.Errorf("github create ref %s: %s %s", ref, r.Status(), apiErr.Message)
	}
	return nil
}

func (p *Provider) ForkBranch(ctx context.Context, repo scm.Repo, newBranch, baseBranch string) error {
	sha, err := p.headSha(ctx, repo, baseBranch)
	if err != nil {
		return err
	}
	return p.createRef(ctx, repo, "refs/heads/"+newBranch, sha)
}

func (p *Provider) CreateTag(ctx context.Context, repo scm.Repo, tag, ref string) error {
	sha, err := p.headSha(ctx, repo, ref)
	if err != nil {
		return err
	}
	return p.createRef(ctx, repo, "refs/tags/"+tag, sha)
}

func (p *Provider) ListTags(ctx context.Context, repo scm.Repo, prefix string) ([]string, error) {
	var refs []gitRef
	r, err := p.client.R().
		SetContext(ctx).
		SetResult(&refs).
		Get(repoPath(repo) + "/git/matching-refs/tags/" + prefix)
	if err != nil {
		return nil, err
	}
	if r.IsError() {
		return nil, fmt.Errorf("github list tags: %s", r.Status())
	}
	tags := make([]string, 0, len(refs))
	for _, ref := range refs {
		tags = append(tags, strings.TrimPrefix(ref.Ref, "refs/tags/"))
	}
	return tags, nil
}

func (p *Provider) CreateReleaseNotes(ctx context.Context, req scm.ReleaseNotesRequest) (scm.ReleaseNotes, error) {
	genBody := map[string]string{"tag_name": req.CurrentTag}
	if req.PreviousTag != "" {
		genBody["previous_tag_name"] = req.PreviousTag
	}
	var generated struct {
		Name string `json:"name"`
		Body string `json:"body"`
	}
	r, err := p.client.R().
		SetContext(ctx).
		SetBody(genBody).
		SetResult(&generated).
		Post(repoPath(req.Repo) + "/releases/generate-notes")
	if err != nil {
		return scm.ReleaseNotes{}, err
	}
	if r.IsError() {
		return scm.ReleaseNotes{}, fmt.Errorf("github generate notes: %s", r.Status())
	}

	title := req.Title
	if title == "" {
		title = generated.Name
	}
	var created struct {
		HtmlUrl string `json:"html_url"`
	}
	r, err = p.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"tag_name":   req.CurrentTag,
			"name":       title,
			"body":       generated.Body,
			"prerelease": req.Prerelease,
		}).
		SetResult(&created).
		Post(repoPath(req.Repo) + "/releases")
	if err != nil {
		return scm.ReleaseNotes{}, err
	}
	if r.IsError() {
		return scm.ReleaseNotes{}, fmt.Errorf("github create release: %s", r.Status())
	}
	return scm.ReleaseNotes{Url: created.HtmlUrl, Body: generated.Body}, nil
}

func init() {
	scm.Register(scm.ProviderKindGitHub, New)
}
