package dictionary

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ideacards/internal/idea"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

const delim = "---"

// frontMatter is the YAML header written on export.
type frontMatter struct {
	IdeaID   int64    `yaml:"idea_id"`
	Status   string   `yaml:"status"`
	Tags     []string `yaml:"tags"`
	Blockers []string `yaml:"blockers,omitempty"`
	BornWith []int64  `yaml:"born_with,omitempty"`
}

// Render formats it as Markdown with a YAML front matter header.
func Render(it *idea.Idea) ([]byte, error) {
	fm := frontMatter{
		IdeaID:   it.IdeaID,
		Status:   string(it.Status),
		Tags:     idea.NonNil(it.Tags),
		Blockers: nonEmpty(it.Blockers),
		BornWith: it.BornWithIDs(),
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("dictionary: marshal front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(head)
	buf.WriteString(delim + "\n\n")
	buf.WriteString(strings.TrimRight(it.Body, "\n"))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Path returns the vault-relative location of an exported idea.
func Path(id int64) string {
	return fmt.Sprintf("ideas/%d.md", id)
}

// Note is a parsed Markdown capture.
type Note struct {
	Body     string
	Tags     []string
	Blockers []string
}

// Payload converts n into a create payload with no links.
func (n *Note) Payload() idea.CreatePayload {
	return idea.CreatePayload{Payload: idea.Payload{
		Body:        n.Body,
		Tags:        idea.NonNil(n.Tags),
		Blockers:    idea.NonNil(n.Blockers),
		BornWithIDs: []int64{},
	}}
}

// Parse reads front matter tags and blockers plus inline #tags. The body is
// everything after the front matter, trimmed. Invalid YAML is treated as
// plain body.
func Parse(data []byte) *Note {
	fm, body := splitFrontMatter(data)
	body = strings.TrimSpace(body)
	return &Note{
		Body:     body,
		Tags:     extractTags(body, fm),
		Blockers: stringList(fm["blockers"]),
	}
}

func splitFrontMatter(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}
	block := rest[:idx]
	body := string(rest[idx+1+len(delim):])

	var fm map[string]any
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// extractTags collects front matter tags first, then inline #tags, deduplicated.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	out := []string{}
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	switch v := fm["tags"].(type) {
	case string:
		for _, t := range idea.SplitTags(v) {
			add(t)
		}
	default:
		for _, t := range stringList(v) {
			add(t)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

func stringList(raw any) []string {
	out := []string{}
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		out = append(out, v)
	}
	return out
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
