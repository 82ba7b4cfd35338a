package dictionary

import (
	"bytes"
	"context"

	"github.com/starford/ideacards/internal/idea"
)

// Exporter writes transferred ideas into a Vault.
type Exporter struct {
	vault *Vault
}

// NewExporter returns an Exporter backed by v.
func NewExporter(v *Vault) *Exporter {
	return &Exporter{vault: v}
}

// Export writes it to ideas/<id>.md, replacing any earlier export. An
// identical existing file is left untouched.
func (e *Exporter) Export(_ context.Context, it *idea.Idea) error {
	data, err := Render(it)
	if err != nil {
		return err
	}
	path := Path(it.IdeaID)
	if old, err := e.vault.Read(path); err == nil && bytes.Equal(old, data) {
		return nil
	}
	return e.vault.Write(path, data)
}
