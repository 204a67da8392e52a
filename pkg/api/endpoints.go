package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/promptpalette/pkg/catalog"
	"github.com/hazyhaar/promptpalette/pkg/kit"
	"github.com/hazyhaar/promptpalette/pkg/prompt"
)

// Shared request/response types used by both HTTP and MCP transports.

type subjectInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Topics int    `json:"topics"`
}

type subjectsResponse struct {
	Subjects []subjectInfo `json:"subjects"`
}

type palettesResponse struct {
	Palettes []catalog.Palette `json:"palettes"`
}

type searchReq struct {
	Subject string
	Query   string
}

// searchResponse echoes the query as the matcher saw it: Normalized is the
// comparison key and Expansions the abbreviation phrases it stands for.
type searchResponse struct {
	Subject    string   `json:"subject"`
	Query      string   `json:"query"`
	Normalized string   `json:"normalized"`
	Expansions []string `json:"expansions,omitempty"`
	Count      int      `json:"count"`
	Topics     []string `json:"topics"`
}

type renderReq struct {
	Subject string            `json:"subject"`
	Topic   string            `json:"topic"`
	Palette string            `json:"palette,omitempty"`
	Mode    prompt.DesignMode `json:"mode,omitempty"`
}

type renderResponse struct {
	Prompt string `json:"prompt"`
}

// Endpoints returns the four catalog kit.Endpoints backed by the registry.

func listSubjectsEndpoint(reg *catalog.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		subjects := reg.Current().Subjects()
		out := make([]subjectInfo, len(subjects))
		for i, s := range subjects {
			out[i] = subjectInfo{ID: s.ID, Name: s.Name, Topics: len(s.Topics)}
		}
		return subjectsResponse{Subjects: out}, nil
	}
}

func searchTopicsEndpoint(reg *catalog.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*searchReq)
		c := reg.Current()
		topics, err := c.Search(req.Subject, req.Query)
		if err != nil {
			return nil, err
		}
		m := c.Matcher()
		normalized := m.Normalize(req.Query)
		return searchResponse{
			Subject:    req.Subject,
			Query:      req.Query,
			Normalized: normalized,
			Expansions: m.Expansions(normalized),
			Count:      len(topics),
			Topics:     topics,
		}, nil
	}
}

func listPalettesEndpoint(reg *catalog.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return palettesResponse{Palettes: reg.Current().Palettes()}, nil
	}
}

// renderEndpoint renders a prompt without touching the session. An empty
// palette selects the first catalog palette.
func renderEndpoint(reg *catalog.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*renderReq)
		c := reg.Current()
		subj, ok := c.Subject(req.Subject)
		if !ok {
			return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownSubject, req.Subject)
		}
		topic := strings.TrimSpace(req.Topic)
		if topic == "" {
			return nil, errMissingTopic
		}

		in := prompt.Input{SubjectName: subj.Name, TopicName: topic, Mode: req.Mode}
		pal, err := resolvePalette(c, req.Palette)
		if err != nil {
			return nil, err
		}
		if pal != nil {
			in.PaletteName, in.PaletteDescription = pal.Name, pal.Description
		}
		return renderResponse{Prompt: prompt.Render(in)}, nil
	}
}

func resolvePalette(c *catalog.Catalog, id string) (*catalog.Palette, error) {
	if id != "" {
		p, ok := c.Palette(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownPalette, id)
		}
		return p, nil
	}
	if palettes := c.Palettes(); len(palettes) > 0 {
		return &palettes[0], nil
	}
	return nil, nil
}
