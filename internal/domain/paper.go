package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const maxReferenceAuthors = 3

type Paper struct {
	Title         string
	Authors       []string
	Year          *int
	Abstract      *string
	CitationCount int
	Venue         *string
	URL           string
}

type Reference struct {
	Title   string `json:"title"`
	Year    string `json:"year"`
	Authors string `json:"authors"`
	URL     string `json:"url"`
}

func (p Paper) YearLabel() string {
	if p.Year == nil {
		return "n.d."
	}
	return strconv.Itoa(*p.Year)
}

// AuthorLabel lists at most three authors, then "et al.".
func (p Paper) AuthorLabel() string {
	authors := make([]string, 0, len(p.Authors))
	for _, author := range p.Authors {
		if trimmed := strings.TrimSpace(author); trimmed != "" {
			authors = append(authors, trimmed)
		}
	}
	if len(authors) == 0 {
		return "Unknown author"
	}
	if len(authors) <= maxReferenceAuthors {
		return strings.Join(authors, ", ")
	}

	return strings.Join(authors[:maxReferenceAuthors], ", ") + " et al."
}

func (p Paper) Reference() Reference {
	return Reference{
		Title:   strings.TrimSpace(p.Title),
		Year:    p.YearLabel(),
		Authors: p.AuthorLabel(),
		URL:     p.URL,
	}
}

func References(papers []Paper) []Reference {
	refs := make([]Reference, 0, len(papers))
	for _, paper := range papers {
		refs = append(refs, paper.Reference())
	}
	return refs
}

func (r Reference) String() string {
	line := fmt.Sprintf("%s (%s). %s.", r.Title, r.Year, r.Authors)
	if r.URL != "" {
		line += " " + r.URL
	}
	return line
}
