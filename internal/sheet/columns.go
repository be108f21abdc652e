// Package sheet converts applications to and from worksheet rows.
//
// The column layout is fixed and versioned. Codec decodes and encodes whole
// rows; BuildPatch produces the cell writes for a partial update.
package sheet

import (
	"time"

	"github.com/JonMunkholm/jobtrack/internal/rowstore"
	"github.com/JonMunkholm/jobtrack/internal/tracker"
)

// SchemaVersion identifies the column layout below. Changing the layout
// requires rewriting existing rows.
const SchemaVersion = 1

// DefaultSheet is the worksheet used when none is configured.
const DefaultSheet = "Jobs"

// TimestampLayout is the UTC millisecond format used for createdAt and updatedAt.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// column binds one application field to one worksheet column.
type column struct {
	name   string
	letter string
	// patchable fields may be written by BuildPatch.
	patchable bool
	get       func(a *tracker.Application) any
	set       func(a *tracker.Application, cell any, d *decoder)
}

// Column indexes, in layout order.
const (
	colID = iota
	colTitle
	colPlatform
	colPostingURL
	colLink
	colEasyApply
	colDate
	colRating
	colResumeVersion
	colCompanyName
	colJobDescription
	colCoverLetter
	colReachOutMessage
	colSalary
	colCity
	colExpired
	colRemote
	colStatus
	colAppliedDate
	colNotes
	colInterviews
	colCreatedAt
	colUpdatedAt

	// Width is the number of columns in a row.
	Width
)

var columns = [Width]column{
	colID: {name: "id",
		get: func(a *tracker.Application) any { return a.ID },
		set: func(a *tracker.Application, c any, d *decoder) { a.ID = d.text(c) }},
	colTitle:      textColumn("title", func(a *tracker.Application) *string { return &a.Title }),
	colPlatform:   textColumn("platform", func(a *tracker.Application) *string { return &a.Platform }),
	colPostingURL: textColumn("postingUrl", func(a *tracker.Application) *string { return &a.PostingURL }),
	colLink:       textColumn("link", func(a *tracker.Application) *string { return &a.Link }),
	colEasyApply:  boolColumn("easyApply", func(a *tracker.Application) *bool { return &a.EasyApply }),
	colDate:       textColumn("date", func(a *tracker.Application) *string { return &a.Date }),
	colRating: {name: "rating", patchable: true,
		get: func(a *tracker.Application) any { return a.Rating },
		set: func(a *tracker.Application, c any, d *decoder) { a.Rating = d.number(c) }},
	colResumeVersion:   textColumn("resumeVersion", func(a *tracker.Application) *string { return &a.ResumeVersion }),
	colCompanyName:     textColumn("companyName", func(a *tracker.Application) *string { return &a.CompanyName }),
	colJobDescription:  textColumn("jobDescription", func(a *tracker.Application) *string { return &a.JobDescription }),
	colCoverLetter:     textColumn("coverLetter", func(a *tracker.Application) *string { return &a.CoverLetter }),
	colReachOutMessage: textColumn("reachOutMessage", func(a *tracker.Application) *string { return &a.ReachOutMessage }),
	colSalary:          textColumn("salary", func(a *tracker.Application) *string { return &a.Salary }),
	colCity:            textColumn("city", func(a *tracker.Application) *string { return &a.City }),
	colExpired:         boolColumn("expired", func(a *tracker.Application) *bool { return &a.Expired }),
	colRemote:          boolColumn("remote", func(a *tracker.Application) *bool { return &a.Remote }),
	colStatus: {name: "status", patchable: true,
		get: func(a *tracker.Application) any { return string(a.Status) },
		set: func(a *tracker.Application, c any, d *decoder) { a.Status = tracker.Status(d.text(c)) }},
	colAppliedDate: textColumn("appliedDate", func(a *tracker.Application) *string { return &a.AppliedDate }),
	colNotes:       textColumn("notes", func(a *tracker.Application) *string { return &a.Notes }),
	colInterviews: {name: "interviews", patchable: true,
		get: func(a *tracker.Application) any { return encodeInterviews(a.Interviews) },
		set: func(a *tracker.Application, c any, d *decoder) { a.Interviews = d.interviews(c) }},
	colCreatedAt: {name: "createdAt",
		get: func(a *tracker.Application) any { return formatTime(a.CreatedAt) },
		set: func(a *tracker.Application, c any, d *decoder) { a.CreatedAt = d.timestamp(c) }},
	colUpdatedAt: {name: "updatedAt",
		get: func(a *tracker.Application) any { return formatTime(a.UpdatedAt) },
		set: func(a *tracker.Application, c any, d *decoder) { a.UpdatedAt = d.timestamp(c) }},
}

// byName maps a JSON field name to its column index.
var byName = make(map[string]int, Width)

func init() {
	for i := range columns {
		columns[i].letter = rowstore.ColumnLetter(i)
		byName[columns[i].name] = i
	}
}

func textColumn(name string, field func(a *tracker.Application) *string) column {
	return column{
		name:      name,
		patchable: true,
		get:       func(a *tracker.Application) any { return *field(a) },
		set:       func(a *tracker.Application, c any, d *decoder) { *field(a) = d.text(c) },
	}
}

func boolColumn(name string, field func(a *tracker.Application) *bool) column {
	return column{
		name:      name,
		patchable: true,
		get:       func(a *tracker.Application) any { return *field(a) },
		set:       func(a *tracker.Application, c any, d *decoder) { *field(a) = d.boolean(c) },
	}
}

// Header returns the header row written to row 1.
func Header() []any {
	out := make([]any, Width)
	for i, c := range columns {
		out[i] = c.name
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}
