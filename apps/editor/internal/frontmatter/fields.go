package frontmatter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Fields are the frontmatter values the editor's panel exposes.
type Fields struct {
	Title string   `json:"title"`
	Date  string   `json:"date"`
	Tags  []string `json:"tags"`
	Draft bool     `json:"draft"`
}

// FieldError reports one invalid field.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ReadFields extracts Fields from parsed frontmatter data. Missing or
// mistyped values read as zero values.
func ReadFields(data map[string]any) Fields {
	f := Fields{
		Title: String(data, "title"),
		Date:  String(data, "date"),
	}
	switch tags := data["tags"].(type) {
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok {
				f.Tags = append(f.Tags, s)
			}
		}
	case string:
		f.Tags = SplitTags(tags)
	}
	if d, ok := data["draft"].(bool); ok {
		f.Draft = d
	}
	return f
}

// Validate checks the panel rules: a title is required and a date, when
// given, is YYYY-MM-DD.
func (f Fields) Validate() error {
	var errs []error
	if strings.TrimSpace(f.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "is required"})
	}
	if f.Date != "" && !dateRe.MatchString(f.Date) {
		errs = append(errs, FieldError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	return errors.Join(errs...)
}

// Apply writes f into data, keeping every other key.
func (f Fields) Apply(data map[string]any) {
	data["title"] = f.Title
	if f.Date != "" {
		data["date"] = f.Date
	} else {
		delete(data, "date")
	}
	tags := make([]any, 0, len(f.Tags))
	for _, t := range f.Tags {
		tags = append(tags, t)
	}
	data["tags"] = tags
	data["draft"] = f.Draft
}

// SplitTags splits a comma-separated tag list, trimming blanks.
func SplitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// String returns data[key] as a string. Timestamps decoded by YAML are
// formatted back to YYYY-MM-DD.
func String(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case time.Time:
		return v.Format(time.DateOnly)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
