// Package config resolves the editor configuration: built-in defaults, a
// remote-hosted config document and a local override layer, merged in that
// order so local overrides win.
package config

import "maps"

// Built-in defaults.
const (
	DefaultSSG              = "eleventy"
	DefaultContentDir       = "src/content"
	DefaultAssetsDir        = "src/assets"
	DefaultBranch           = "main"
	DefaultBranchPrefix     = "content/"
	DefaultPostPathTemplate = "{contentDir}/{date}-{slug}.md"
	DefaultCRTitleTemplate  = "Add post: {title} ({path})"
	DefaultWebURL           = "https://github.com"
	ProviderGitHub          = "github"
)

// RepoInfo describes the target repository and the naming templates used
// when content is proposed to it.
type RepoInfo struct {
	Provider         string `json:"provider,omitempty"         yaml:"provider,omitempty"`
	Owner            string `json:"owner,omitempty"            yaml:"owner,omitempty"`
	Repo             string `json:"repo,omitempty"             yaml:"repo,omitempty"`
	DefaultBranch    string `json:"defaultBranch,omitempty"    yaml:"defaultBranch,omitempty"`
	PRBranchPrefix   string `json:"prBranchPrefix,omitempty"   yaml:"prBranchPrefix,omitempty"`
	PostPathTemplate string `json:"postPathTemplate,omitempty" yaml:"postPathTemplate,omitempty"`
	CRTitleTemplate  string `json:"crTitleTemplate,omitempty"  yaml:"crTitleTemplate,omitempty"`

	// PRTitleTemplate is the legacy name of CRTitleTemplate. It is only read.
	PRTitleTemplate string `json:"prTitleTemplate,omitempty" yaml:"prTitleTemplate,omitempty"`
}

// Config is the fully merged editor configuration.
type Config struct {
	SSG         string   `json:"ssg"         yaml:"ssg"`
	ContentDirs []string `json:"contentDirs" yaml:"contentDirs"`
	AssetsDir   string   `json:"assetsDir"   yaml:"assetsDir"`
	// DefaultBranch is deprecated; Repo.DefaultBranch wins.
	DefaultBranch       string         `json:"defaultBranch,omitempty"       yaml:"defaultBranch,omitempty"`
	Repo                RepoInfo       `json:"repo"                          yaml:"repo"`
	FrontmatterDefaults map[string]any `json:"frontmatterDefaults,omitempty" yaml:"frontmatterDefaults,omitempty"`
}

// Partial is a config document as found on disk, on the remote host or in the
// local override layer. Nil/empty fields are "not set".
type Partial struct {
	SSG                 *string        `json:"ssg,omitempty"                 yaml:"ssg,omitempty"`
	ContentDirs         []string       `json:"contentDirs,omitempty"         yaml:"contentDirs,omitempty"`
	AssetsDir           *string        `json:"assetsDir,omitempty"           yaml:"assetsDir,omitempty"`
	DefaultBranch       *string        `json:"defaultBranch,omitempty"       yaml:"defaultBranch,omitempty"`
	Repo                *RepoInfo      `json:"repo,omitempty"                yaml:"repo,omitempty"`
	FrontmatterDefaults map[string]any `json:"frontmatterDefaults,omitempty" yaml:"frontmatterDefaults,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		SSG:         DefaultSSG,
		ContentDirs: []string{DefaultContentDir},
		AssetsDir:   DefaultAssetsDir,
		Repo: RepoInfo{
			Provider:         ProviderGitHub,
			DefaultBranch:    DefaultBranch,
			PRBranchPrefix:   DefaultBranchPrefix,
			PostPathTemplate: DefaultPostPathTemplate,
			CRTitleTemplate:  DefaultCRTitleTemplate,
		},
		FrontmatterDefaults: map[string]any{"draft": true},
	}
}

// Merge layers incoming over base. Repo fields and frontmatter defaults merge
// key by key; every other field is replaced when set.
func Merge(base Config, incoming Partial) Config {
	out := base
	out.ContentDirs = append([]string(nil), base.ContentDirs...)
	out.FrontmatterDefaults = maps.Clone(base.FrontmatterDefaults)
	if out.FrontmatterDefaults == nil {
		out.FrontmatterDefaults = map[string]any{}
	}

	if incoming.SSG != nil {
		out.SSG = *incoming.SSG
	}
	if len(incoming.ContentDirs) > 0 {
		out.ContentDirs = append([]string(nil), incoming.ContentDirs...)
	}
	if incoming.AssetsDir != nil {
		out.AssetsDir = *incoming.AssetsDir
	}
	if incoming.DefaultBranch != nil {
		out.DefaultBranch = *incoming.DefaultBranch
	}
	maps.Copy(out.FrontmatterDefaults, incoming.FrontmatterDefaults)

	var repo RepoInfo
	if incoming.Repo != nil {
		repo = *incoming.Repo
	}
	// Legacy top-level defaultBranch only applies when the document does not
	// set repo.defaultBranch itself.
	if repo.DefaultBranch == "" && incoming.DefaultBranch != nil {
		repo.DefaultBranch = *incoming.DefaultBranch
	}
	if repo.CRTitleTemplate == "" && repo.PRTitleTemplate != "" {
		repo.CRTitleTemplate = repo.PRTitleTemplate
	}
	out.Repo = mergeRepo(out.Repo, repo)
	return out
}

func mergeRepo(base, in RepoInfo) RepoInfo {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.Provider, in.Provider)
	set(&base.Owner, in.Owner)
	set(&base.Repo, in.Repo)
	set(&base.DefaultBranch, in.DefaultBranch)
	set(&base.PRBranchPrefix, in.PRBranchPrefix)
	set(&base.PostPathTemplate, in.PostPathTemplate)
	set(&base.CRTitleTemplate, in.CRTitleTemplate)
	base.PRTitleTemplate = ""
	return base
}

// Settings is the read-only view the working-context controller consumes.
type Settings struct {
	Owner               string
	Repo                string
	DefaultBranch       string
	ContentDirs         []string
	AssetsDir           string
	BranchPrefix        string
	PostPathTemplate    string
	TitleTemplate       string
	FrontmatterDefaults map[string]any
	WebURL              string
}

// Settings flattens the config, filling any blank value with its default.
func (c Config) Settings() Settings {
	s := Settings{
		Owner:               c.Repo.Owner,
		Repo:                c.Repo.Repo,
		DefaultBranch:       firstNonEmpty(c.Repo.DefaultBranch, c.DefaultBranch, DefaultBranch),
		ContentDirs:         append([]string(nil), c.ContentDirs...),
		AssetsDir:           firstNonEmpty(c.AssetsDir, DefaultAssetsDir),
		BranchPrefix:        firstNonEmpty(c.Repo.PRBranchPrefix, DefaultBranchPrefix),
		PostPathTemplate:    firstNonEmpty(c.Repo.PostPathTemplate, DefaultPostPathTemplate),
		TitleTemplate:       firstNonEmpty(c.Repo.CRTitleTemplate, DefaultCRTitleTemplate),
		FrontmatterDefaults: maps.Clone(c.FrontmatterDefaults),
		WebURL:              DefaultWebURL,
	}
	return s
}

// ContentDir returns the first configured content directory.
func (s Settings) ContentDir() string {
	if len(s.ContentDirs) > 0 && s.ContentDirs[0] != "" {
		return s.ContentDirs[0]
	}
	return DefaultContentDir
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
