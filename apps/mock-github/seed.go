package main

import (
	"fmt"

	"github.com/tilsley/quill/pkg/mockgithub"
)

type post struct {
	date  string
	slug  string
	title string
	tags  []string
}

var posts = []post{
	{date: "2025-01-14", slug: "hello-world", title: "Hello World", tags: []string{"meta"}},
	{date: "2025-02-03", slug: "writing-in-markdown", title: "Writing in Markdown", tags: []string{"markdown", "howto"}},
	{date: "2025-03-21", slug: "shipping-drafts", title: "Shipping Drafts", tags: []string{"workflow"}},
}

// seedRepos creates the demo site repository and an empty repository for
// trying the first-commit error path.
func seedRepos(s *mockgithub.Server, owner string) {
	files := map[string]string{
		"README.md":                   "# site\n\nAn Eleventy blog edited with quill.\n",
		".meditor.config.json":        editorConfig(owner),
		"eleventy.config.js":          eleventyConfig(),
		"src/index.njk":               "---\nlayout: base.njk\n---\n{% for post in collections.posts %}<a href=\"{{ post.url }}\">{{ post.data.title }}</a>{% endfor %}\n",
		"src/assets/images/.gitkeep":  "",
		"src/content/content.json":    "{\n  \"layout\": \"post.njk\",\n  \"tags\": \"posts\"\n}\n",
		"src/_includes/post.njk":      "---\nlayout: base.njk\n---\n<article>{{ content | safe }}</article>\n",
		"src/_includes/base.njk":      "<!doctype html><html><body>{{ content | safe }}</body></html>\n",
	}
	for _, p := range posts {
		files[fmt.Sprintf("src/content/%s-%s.md", p.date, p.slug)] = postBody(p)
	}
	s.Seed(owner, "site", "main", files)
	s.Seed(owner, "empty", "main", nil)
}

func editorConfig(owner string) string {
	return fmt.Sprintf(`{
  "ssg": "eleventy",
  "contentDirs": ["src/content"],
  "assetsDir": "src/assets/images",
  "repo": {
    "provider": "github",
    "owner": %q,
    "repo": "site",
    "defaultBranch": "main",
    "prBranchPrefix": "content/",
    "postPathTemplate": "{contentDir}/{date}-{slug}.md",
    "crTitleTemplate": "Add post: {title}"
  },
  "frontmatterDefaults": {
    "draft": true,
    "layout": "post.njk"
  }
}
`, owner)
}

func postBody(p post) string {
	tags := ""
	for _, t := range p.tags {
		tags += "\n  - " + t
	}
	return fmt.Sprintf(`---
title: %s
date: %s
tags:%s
draft: false
---

# %s

This post was seeded by mock-github.
`, p.title, p.date, tags, p.title)
}

func eleventyConfig() string {
	return `export default function (eleventyConfig) {
  eleventyConfig.addPassthroughCopy("src/assets");
  return { dir: { input: "src", output: "_site" } };
}
`
}
