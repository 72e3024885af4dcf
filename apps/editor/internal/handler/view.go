package handler

import (
	"github.com/tilsley/quill/apps/editor/internal/drafts"
	"github.com/tilsley/quill/apps/editor/internal/workspace"
)

type statusJSON struct {
	Kind    string `json:"kind"`
	Op      string `json:"op,omitempty"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

type stateJSON struct {
	Context    *workspace.WorkingContext `json:"context,omitempty"`
	CurrentRef string                    `json:"currentRef"`
	ActivePath string                    `json:"activePath"`
	Buffer     string                    `json:"buffer"`
	Status     statusJSON                `json:"status"`
	Draft      workspace.DraftStatus     `json:"draft"`
	DraftKey   drafts.Key                `json:"draftKey"`
	Paths      []string                  `json:"paths"`
	Picker     workspace.Picker          `json:"picker"`
}

func toStateJSON(s workspace.State) stateJSON {
	return stateJSON{
		Context:    s.Context,
		CurrentRef: s.CurrentRef,
		ActivePath: s.ActivePath,
		Buffer:     s.Buffer,
		Status:     toStatusJSON(s.Status),
		Draft:      s.Draft,
		DraftKey:   s.DraftKey,
		Paths:      nonNil(s.Paths),
		Picker:     s.Picker,
	}
}

func toStatusJSON(st workspace.Status) statusJSON {
	switch v := st.(type) {
	case workspace.Loading:
		return statusJSON{Kind: v.Kind(), Op: v.Op}
	case workspace.Succeeded:
		return statusJSON{Kind: v.Kind(), URL: v.URL}
	case workspace.Failed:
		return statusJSON{Kind: v.Kind(), Message: v.Message}
	case nil:
		return statusJSON{Kind: workspace.Idle{}.Kind()}
	default:
		return statusJSON{Kind: v.Kind()}
	}
}
