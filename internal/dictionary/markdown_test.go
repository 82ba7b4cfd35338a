package dictionary

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/ideacards/internal/idea"
)

func TestRender(t *testing.T) {
	it := &idea.Idea{
		IdeaID:   4,
		Body:     "ship it\n",
		Tags:     []string{"go", "cli"},
		Status:   idea.StatusTransfer,
		Blockers: []string{"", "review"},
		BornWith: []idea.Link{{IdeaID: 2}, {IdeaID: 9}},
	}
	data, err := Render(it)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := string(data)
	for _, want := range []string{
		"---\nidea_id: 4\n",
		"status: transfer\n",
		"    - go\n",
		"    - review\n",
		"born_with:\n    - 2\n    - 9\n",
		"---\n\nship it\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, `- ""`) {
		t.Errorf("empty blocker rendered:\n%s", got)
	}
}

func TestRenderThenParse(t *testing.T) {
	it := &idea.Idea{IdeaID: 1, Body: "body text", Tags: []string{"a", "b"}, Status: idea.StatusTransfer, Blockers: []string{"x"}}
	data, err := Render(it)
	if err != nil {
		t.Fatal(err)
	}
	n := Parse(data)
	if n.Body != "body text" {
		t.Errorf("body = %q", n.Body)
	}
	if !reflect.DeepEqual(n.Tags, []string{"a", "b"}) {
		t.Errorf("tags = %v", n.Tags)
	}
	if !reflect.DeepEqual(n.Blockers, []string{"x"}) {
		t.Errorf("blockers = %v", n.Blockers)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		body     string
		tags     []string
		blockers []string
	}{
		{"plain", "just a thought\n", "just a thought", []string{}, []string{}},
		{"inline tags", "try #go and #cli-tools", "try #go and #cli-tools", []string{"go", "cli-tools"}, []string{}},
		{"comma tags", "---\ntags: a, b\n---\nhi", "hi", []string{"a", "b"}, []string{}},
		{"list tags merged with inline", "---\ntags: [a]\nblockers:\n  - money\n---\n#a #b x", "#a #b x", []string{"a", "b"}, []string{"money"}},
		{"bad yaml", "---\ntags: [\n---\nbody", "---\ntags: [\n---\nbody", []string{}, []string{}},
		{"unterminated", "---\ntags: a\nbody", "---\ntags: a\nbody", []string{}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := Parse([]byte(tc.in))
			if n.Body != tc.body {
				t.Errorf("body = %q, want %q", n.Body, tc.body)
			}
			if !reflect.DeepEqual(n.Tags, tc.tags) {
				t.Errorf("tags = %v, want %v", n.Tags, tc.tags)
			}
			if !reflect.DeepEqual(n.Blockers, tc.blockers) {
				t.Errorf("blockers = %v, want %v", n.Blockers, tc.blockers)
			}
		})
	}
}

func TestExport(t *testing.T) {
	v := tempVault(t)
	e := NewExporter(v)
	it := &idea.Idea{IdeaID: 12, Body: "exported", Status: idea.StatusTransfer}
	if err := e.Export(context.Background(), it); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := v.Read(Path(12))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if Parse(data).Body != "exported" {
		t.Errorf("exported body = %q", data)
	}
}

func TestExport_UnchangedFileNotRewritten(t *testing.T) {
	v := tempVault(t)
	e := NewExporter(v)
	it := &idea.Idea{IdeaID: 3, Body: "same", Status: idea.StatusTransfer}
	if err := e.Export(context.Background(), it); err != nil {
		t.Fatal(err)
	}
	abs := filepath.Join(v.Root(), Path(3))
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(abs, past, past); err != nil {
		t.Fatal(err)
	}

	if err := e.Export(context.Background(), it); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(past) {
		t.Errorf("unchanged export rewrote the file: mtime %v", info.ModTime())
	}

	it.Body = "changed"
	if err := e.Export(context.Background(), it); err != nil {
		t.Fatal(err)
	}
	data, _ := v.Read(Path(3))
	if Parse(data).Body != "changed" {
		t.Errorf("changed idea not re-exported: %q", data)
	}
}
