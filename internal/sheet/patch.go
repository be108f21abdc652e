package sheet

import (
	"github.com/JonMunkholm/jobtrack/internal/rowstore"
	"github.com/JonMunkholm/jobtrack/internal/tracker"
)

// BuildPatch returns the cell writes that persist the named fields of app at
// app.Position, followed by a write of app.UpdatedAt. Names outside the
// patchable set (id, createdAt, updatedAt, unknown names) are skipped. Each
// field is written once even if named twice.
func BuildPatch(app tracker.Application, fields []string) []rowstore.CellUpdate {
	seen := make(map[int]bool, len(fields))
	updates := make([]rowstore.CellUpdate, 0, len(fields)+1)
	for _, f := range fields {
		i, ok := byName[f]
		if !ok || !columns[i].patchable || seen[i] {
			continue
		}
		seen[i] = true
		updates = append(updates, cellFor(app, i))
	}
	return append(updates, cellFor(app, colUpdatedAt))
}

func cellFor(app tracker.Application, i int) rowstore.CellUpdate {
	return rowstore.CellUpdate{
		Column: columns[i].letter,
		Row:    app.Position,
		Value:  columns[i].get(&app),
	}
}
