// Package nav carries the page a user arrived from through every navigation
// into an idea editor, so "back" always returns to that page.
package nav

import "fmt"

// Origin is the page an editor visit started from.
type Origin string

const (
	OriginTop    Origin = "top"
	OriginSearch Origin = "search"
)

// Page paths.
const (
	PathTop    = "/"
	PathSearch = "/search"
	PathNew    = "/ideas/new"
)

// Context is attached to each navigation that targets an idea editor.
type Context struct {
	From Origin `json:"from"`
}

// FromState builds a Context from the incoming navigation state. Anything
// other than "top" resolves to search.
func FromState(from string) Context {
	if Origin(from) == OriginTop {
		return Context{From: OriginTop}
	}
	return Context{From: OriginSearch}
}

// Back returns the path that "back" and post-delete navigation lead to.
func (c Context) Back() string {
	if c.From == OriginTop {
		return PathTop
	}
	return PathSearch
}

// Route is a navigation target plus the context it carries.
type Route struct {
	Path    string
	IdeaID  int64
	Context Context
}

// Editor returns the route into the editor for id, carrying c unchanged.
// Following a born-with link uses this so chains keep the first origin.
func (c Context) Editor(id int64) Route {
	return Route{Path: EditorPath(id), IdeaID: id, Context: c}
}

// BackRoute returns the route for "back".
func (c Context) BackRoute() Route {
	return Route{Path: c.Back()}
}

// EditorPath is the path of the editor page for id.
func EditorPath(id int64) string {
	return fmt.Sprintf("/ideas/%d", id)
}

// IsEditor reports whether r opens an idea editor.
func (r Route) IsEditor() bool {
	return r.IdeaID != 0
}
