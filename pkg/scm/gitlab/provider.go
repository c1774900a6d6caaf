package gitlab

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
		base := strings.TrimRight(strings.TrimSpace(cfg.BaseUrl), "/")
		if base == "" {
			base = "https://gitlab.com"
		}
		apiBase = base + "/api/v4"
	}
	p.client.SetBaseURL(strings.TrimRight(apiBase, "/"))

	if strings.TrimSpace(cfg.Token) != "" {
		p.client.SetHeader("PRIVATE-TOKEN", cfg.Token)
	}
	return p, nil
}

func (p *Provider) Kind() scm.ProviderKind { return scm.ProviderKindGitLab }

func (p *Provider) VerifyWebhook(_ context.Context, req scm.WebhookRequest, secret string) error {
	return scm.VerifyTokenHeader(secret, req.Header("X-Gitlab-Token"))
}

type apiError struct {
	Message any `json:"message"`
}

func (e apiError) String() string {
	return fmt.Sprint(e.Message)
}

func projectPath(repo scm.Repo) string {
	return "/projects/" + url.PathEscape(repo.FullName())
}

func (p *Provider) ForkBranch(ctx context.Context, repo scm.Repo, newBranch, baseBranch string) error {
	var apiErr apiError
	r, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"branch": newBranch, "ref": baseBranch}).
		SetError(&apiErr).
		Post(projectPath(repo) + "/repository/branches")
	if err != nil {
		return err
	}
	if r.StatusCode() == http.StatusBadRequest && strings.Contains(apiErr.String(), "already exists") {
		return scm.ErrAlreadyExists
	}
	if r.IsError() {
		return fmt.Errorf("gitlab create branch %s: %s %s", newBranch, r.Status(), apiErr)
	}
	return nil
}

func (p *Provider) CreateTag(ctx context.Context, repo scm.Repo, tag, ref string) error {
	var apiErr apiError
	r, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"tag_name": tag, "ref": ref}).
		SetError(&apiErr).
		Post(projectPath(repo) + "/repository/tags")
	if err != nil {
		return err
	}
	if r.StatusCode() == http.StatusBadRequest && strings.Contains(apiErr.String(), "already exists") {
		return scm.ErrAlreadyExists
	}
	if r.IsError() {
		return fmt.Errorf("gitlab create tag %s: %s %s", tag, r.Status(), apiErr)
	}
	return nil
}

func (p *Provider) ListTags(ctx context.Context, repo scm.Repo, prefix string) ([]string, error) {
	var resp []struct {
		Name string `json:"name"`
	}
	r, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"search": "^" + prefix, "per_page": "100"}).
		SetResult(&resp).
		Get(projectPath(repo) + "/repository/tags")
	if err != nil {
		return nil, err
	}
	if r.IsError() {
		return nil, fmt.Errorf("gitlab list tags: %s", r.Status())
	}
	tags := make([]string, 0, len(resp))
	for _, t := range resp {
		if strings.HasPrefix(t.Name, prefix) {
			tags = append(tags, t.Name)
		}
	}
	return tags, nil
}

// CreateReleaseNotes builds the note from the commit titles between the two tags.
func (p *Provider) CreateReleaseNotes(ctx context.Context, req scm.ReleaseNotesRequest) (scm.ReleaseNotes, error) {
	body := "Initial release"
	if req.PreviousTag != "" {
		var cmp struct {
			Commits []struct {
				ShortId string `json:"short_id"`
				Title   string `json:"title"`
			} `json:"commits"`
		}
		r, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"from": req.PreviousTag, "to": req.CurrentTag}).
			SetResult(&cmp).
			Get(projectPath(req.Repo) + "/repository/compare")
		if err != nil {
			return scm.ReleaseNotes{}, err
		}
		if r.IsError() {
			return scm.ReleaseNotes{}, fmt.Errorf("gitlab compare: %s", r.Status())
		}
		var b strings.Builder
		for _, c := range cmp.Commits {
			fmt.Fprintf(&b, "- %s %s\n", c.ShortId, c.Title)
		}
		body = b.String()
	}

	title := req.Title
	if title == "" {
		title = req.CurrentTag
	}
	var created struct {
		Links struct {
			Self string `json:"self"`
		} `json:"_links"`
	}
	r, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"tag_name": req.CurrentTag, "name": title, "description": body}).
		SetResult(&created).
		Post(projectPath(req.Repo) + "/releases")
	if err != nil {
		return scm.ReleaseNotes{}, err
	}
	if r.IsError() {
		return scm.ReleaseNotes{}, fmt.Errorf("gitlab create release: %s", r.Status())
	}
	return scm.ReleaseNotes{Url: created.Links.Self, Body: body}, nil
}

func init() {
	scm.Register(scm.ProviderKindGitLab, New)
}
