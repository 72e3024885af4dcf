package mockgithub

import (
	"fmt"
	"html/template"
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
)

type dashboardRow struct {
	Repo string
	PullRequest
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>{{.Title}} - Mock GitHub</title>
  {{if .Refresh}}<meta http-equiv="refresh" content="3">{{end}}
  <style>
    * { margin:0; padding:0; box-sizing:border-box; }
    body { background:#0d1117; color:#c9d1d9; font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Helvetica,Arial,sans-serif; }
    main { max-width:860px; margin:0 auto; padding:32px 16px; }
    a { color:#58a6ff; text-decoration:none; }
    table { width:100%; border-collapse:collapse; background:#161b22; border:1px solid #30363d; }
    td, th { padding:12px 16px; border-bottom:1px solid #21262d; text-align:left; font-size:14px; }
    code { background:#1c2128; padding:2px 6px; border-radius:4px; color:#79c0ff; }
    pre { padding:16px; background:#161b22; border:1px solid #30363d; white-space:pre-wrap; font-size:12px; color:#8b949e; }
    .state { display:inline-block; padding:2px 10px; border-radius:12px; font-size:12px; }
    .open { background:#3fb95022; color:#3fb950; }
    .merged { background:#a371f722; color:#a371f7; }
    button { padding:8px 20px; background:#238636; color:#fff; border:0; border-radius:6px; cursor:pointer; }
  </style>
</head>
<body><main>{{template "body" .}}</main></body>
</html>`))

var dashboardTmpl = template.Must(template.Must(pageTmpl.Clone()).Parse(`{{define "body"}}
<h1 style="font-size:20px;margin-bottom:24px;">Pull Requests</h1>
<table>
  <thead><tr><th>Title</th><th>Repository</th><th>Branch</th><th>Status</th></tr></thead>
  <tbody>
  {{range .Rows}}
    <tr>
      <td><a href="/{{.Repo}}/pull/{{.Number}}">{{.Title}}</a></td>
      <td>{{.Repo}}</td>
      <td><code>{{.Head}}</code></td>
      <td><span class="state {{.State}}">{{.State}}</span></td>
    </tr>
  {{else}}
    <tr><td colspan="4" style="text-align:center;color:#8b949e;">No pull requests yet.</td></tr>
  {{end}}
  </tbody>
</table>
{{end}}`))

var pullTmpl = template.Must(template.Must(pageTmpl.Clone()).Parse(`{{define "body"}}
<p style="margin-bottom:24px;"><a href="/">All pull requests</a></p>
<h1 style="font-size:24px;font-weight:400;">{{.PR.Title}} <span style="color:#8b949e;">#{{.PR.Number}}</span></h1>
<p style="margin:16px 0;"><span class="state {{.PR.State}}">{{.PR.State}}</span> <code>{{.PR.Head}}</code> &rarr; <code>{{.PR.Base}}</code></p>
<pre>{{.PR.Body}}</pre>
{{if eq .PR.State "open"}}
<form method="POST" action="/{{.Repo}}/pull/{{.PR.Number}}/merge" style="margin-top:24px;">
  <button type="submit">Merge pull request</button>
</form>
{{end}}
<h3 style="margin:24px 0 12px;">Files changed ({{len .Files}})</h3>
{{range .Files}}<p><code>{{.}}</code></p>{{end}}
{{end}}`))

func render(c *gin.Context, t *template.Template, data any) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := t.Execute(c.Writer, data); err != nil {
		_ = c.Error(err)
	}
}

func registerHTMLRoutes(r *gin.Engine, s *Server) {
	r.GET("/", func(c *gin.Context) {
		s.store.mu.RLock()
		var rows []dashboardRow
		for _, key := range slices.Sorted(maps.Keys(s.store.repos)) {
			for _, pr := range s.store.repos[key].pulls {
				rows = append(rows, dashboardRow{Repo: key, PullRequest: pr})
			}
		}
		s.store.mu.RUnlock()

		render(c, dashboardTmpl, gin.H{"Title": "Pull Requests", "Refresh": true, "Rows": rows})
	})

	r.GET("/:owner/:repo/pull/:number", func(c *gin.Context) {
		n, err := strconv.Atoi(c.Param("number"))
		if err != nil {
			c.String(http.StatusBadRequest, "invalid PR number")
			return
		}
		s.store.mu.RLock()
		rp := s.store.repo(c.Param("owner"), c.Param("repo"))
		var (
			pr    PullRequest
			found bool
			files []string
		)
		if rp != nil {
			if p := rp.pull(n); p != nil {
				pr, found = *p, true
				base, _ := rp.files(p.Base)
				head, _ := rp.files(p.Head)
				files = changedPaths(base, head)
			}
		}
		s.store.mu.RUnlock()
		if !found {
			c.String(http.StatusNotFound, "pull request not found")
			return
		}
		render(c, pullTmpl, gin.H{
			"Title": pr.Title,
			"Repo":  c.Param("owner") + "/" + c.Param("repo"),
			"PR":    pr,
			"Files": files,
		})
	})

	r.POST("/:owner/:repo/pull/:number/merge", func(c *gin.Context) {
		owner, name := c.Param("owner"), c.Param("repo")
		n, err := strconv.Atoi(c.Param("number"))
		if err != nil {
			c.String(http.StatusBadRequest, "invalid PR number")
			return
		}
		if _, ok := s.merge(owner, name, n); !ok {
			c.String(http.StatusNotFound, "pull request not found or not open")
			return
		}
		s.log.Info("PR merged", "owner", owner, "repo", name, "number", n)
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/%s/%s/pull/%d", owner, name, n))
	})
}
