package workspace

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/tilsley/quill/apps/editor/internal/config"
	"github.com/tilsley/quill/apps/editor/internal/frontmatter"
)

// DefaultTitle is used when neither frontmatter nor a heading names the post.
const DefaultTitle = "New Post"

var (
	headingRe   = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	slugStripRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	spaceRe     = regexp.MustCompile(`\s+`)
	hyphensRe   = regexp.MustCompile(`-+`)
	dateLikeRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	placeholder = regexp.MustCompile(`\{(\w+)\}`)
)

// InferredTitle is the frontmatter title, else the first level-1 heading,
// else DefaultTitle.
func InferredTitle(md string) string {
	doc := frontmatter.Parse(md)
	if t, ok := doc.Data["title"].(string); ok && t != "" {
		return t
	}
	if m := headingRe.FindStringSubmatch(md); m != nil {
		return strings.TrimSpace(m[1])
	}
	return DefaultTitle
}

// Slugify lowercases s, drops anything outside [a-z0-9], whitespace and '-',
// and joins words with single hyphens.
func Slugify(s string) string {
	s = slugStripRe.ReplaceAllString(strings.ToLower(s), "")
	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), "-")
	return hyphensRe.ReplaceAllString(s, "-")
}

// DerivedDate is the first ten characters of the frontmatter date when it
// looks like YYYY-MM-DD, else now formatted in now's zone.
func DerivedDate(md string, now time.Time) string {
	d := frontmatter.String(frontmatter.Parse(md).Data, "date")
	if dateLikeRe.MatchString(d) {
		return d[:10]
	}
	return now.Format(time.DateOnly)
}

// RenderTemplate replaces each {name} in tpl with vars[name]. Unknown names
// render as "".
func RenderTemplate(tpl string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		return vars[m[1:len(m)-1]]
	})
}

// DefaultAssetPath is {assetsDir}/{year}/{month}/{filename} for a YYYY-MM-DD date.
func DefaultAssetPath(assetsDir, date, filename string) string {
	y, m := date, date
	if len(date) >= 7 {
		y, m = date[:4], date[5:7]
	}
	return strings.Join([]string{strings.TrimRight(assetsDir, "/"), y, m, filename}, "/")
}

// AltText is the filename without its extension.
func AltText(filename string) string {
	return strings.TrimSuffix(path.Base(filename), path.Ext(filename))
}

// ChangeRequestBody is the description of a change request opened from a new post.
func ChangeRequestBody(filePath, branch string) string {
	return "Created from the editor\n\n- File: " + filePath + "\n- Branch: " + branch
}

// BranchTitle is the title of a change request opened for an existing branch.
func BranchTitle(branch string) string {
	return "Content updates for " + branch
}

// BranchBody is the description of a change request opened for an existing
// branch. Empty when no file is active.
func BranchBody(activePath string) string {
	if activePath == "" {
		return ""
	}
	return "Updates to " + activePath
}

// plan is everything a new post derives from the buffer and settings.
type plan struct {
	title  string
	slug   string
	date   string
	path   string
	branch string
}

func derivePlan(md string, s config.Settings, now time.Time) plan {
	p := plan{title: InferredTitle(md), date: DerivedDate(md, now)}
	p.slug = Slugify(p.title)
	if p.slug == "" {
		p.slug = Slugify(DefaultTitle)
	}
	p.path = RenderTemplate(s.PostPathTemplate, map[string]string{
		"contentDir": s.ContentDir(),
		"date":       p.date,
		"slug":       p.slug,
	})
	p.branch = s.BranchPrefix + p.slug
	return p
}
