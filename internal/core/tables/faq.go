package tables

import "github.com/JonMunkholm/promptsync/internal/core"

func init() {
	registerFAQ()
}

// The FAQ table is archived whole; only the exported marker is bound. Its
// name is overridden from configuration at run time.
func registerFAQ() {
	core.Register(core.TableSchema{
		Key:   core.SchemaFAQ,
		Label: "FAQ",
		Columns: []core.ColumnSpec{
			{Position: core.AnyPosition, Name: "Published", Field: core.FieldMarker, Optional: true},
		},
	})
}
