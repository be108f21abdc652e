package tracker

import (
	"slices"
	"time"
)

// Status is the pipeline state of an application.
type Status string

const (
	StatusToDo           Status = "To-Do"
	StatusApplied        Status = "Applied"
	StatusAlreadyApplied Status = "Already Applied"
	StatusNotRelevant    Status = "Not Relevant"
	StatusInterviewed    Status = "Interviewed"
	StatusGhosted        Status = "Ghosted"
	StatusRejected       Status = "Rejected"
)

// Statuses lists every valid status in pipeline order.
var Statuses = []Status{
	StatusToDo,
	StatusApplied,
	StatusAlreadyApplied,
	StatusNotRelevant,
	StatusInterviewed,
	StatusGhosted,
	StatusRejected,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Submitted reports whether the application has left the backlog and reached
// an employer. Already Applied is excluded: it marks roles applied to before
// tracking started and carries no outcome.
func (s Status) Submitted() bool {
	switch s {
	case StatusApplied, StatusGhosted, StatusRejected, StatusInterviewed:
		return true
	}
	return false
}

// InterviewType classifies an interview round.
type InterviewType string

const (
	InterviewPhoneScreen     InterviewType = "Phone Screen"
	InterviewTechnicalScreen InterviewType = "Technical Screen"
	InterviewBehavioral      InterviewType = "Behavioral Interview"
	InterviewSystemDesign    InterviewType = "System Design"
	InterviewTakeHome        InterviewType = "Take-home Assignment"
	InterviewOnSite          InterviewType = "On-site Interview"
	InterviewFinalRound      InterviewType = "Final Round"
	InterviewHRRound         InterviewType = "HR Round"
)

// InterviewTypes lists every valid interview type.
var InterviewTypes = []InterviewType{
	InterviewPhoneScreen,
	InterviewTechnicalScreen,
	InterviewBehavioral,
	InterviewSystemDesign,
	InterviewTakeHome,
	InterviewOnSite,
	InterviewFinalRound,
	InterviewHRRound,
}

// Valid reports whether t is one of the known interview types.
func (t InterviewType) Valid() bool {
	return slices.Contains(InterviewTypes, t)
}

// Platforms lists the job boards an application may come from.
var Platforms = []string{
	"Indeed",
	"LinkedIn",
	"ZipRecruiter",
	"Google",
	"Upwork",
	"Freelancer.com",
	"SimplyHired",
	"WellFound",
	"Company",
}

// ResumeVersions lists the accepted resume version tags.
var ResumeVersions = []string{"1", "2", "3", "4"}

// Interview is one interview round embedded in an application.
type Interview struct {
	Date  string        `json:"date"`
	Type  InterviewType `json:"type"`
	Notes string        `json:"notes"`
}

// Application is one tracked job application.
type Application struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Platform        string      `json:"platform"`
	PostingURL      string      `json:"postingUrl"`
	Link            string      `json:"link"`
	EasyApply       bool        `json:"easyApply"`
	Date            string      `json:"date"`
	Rating          float64     `json:"rating"`
	ResumeVersion   string      `json:"resumeVersion"`
	CompanyName     string      `json:"companyName"`
	JobDescription  string      `json:"jobDescription"`
	CoverLetter     string      `json:"coverLetter"`
	ReachOutMessage string      `json:"reachOutMessage"`
	Salary          string      `json:"salary"`
	City            string      `json:"city"`
	Expired         bool        `json:"expired"`
	Remote          bool        `json:"remote"`
	Status          Status      `json:"status"`
	AppliedDate     string      `json:"appliedDate"`
	Notes           string      `json:"notes"`
	Interviews      []Interview `json:"interviews"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`

	// Position is the backing-store row holding this record. Zero means unknown.
	Position int `json:"-"`
}

// Clone returns a deep copy of a. Interviews is never nil in the copy.
func (a Application) Clone() Application {
	out := a
	out.Interviews = make([]Interview, len(a.Interviews))
	copy(out.Interviews, a.Interviews)
	return out
}

// CloneAll deep-copies a slice of applications.
func CloneAll(apps []Application) []Application {
	out := make([]Application, len(apps))
	for i := range apps {
		out[i] = apps[i].Clone()
	}
	return out
}

// Touch advances UpdatedAt to now, or one millisecond past the previous value
// when the clock has not moved forward.
func (a *Application) Touch(now time.Time) {
	now = now.UTC().Truncate(time.Millisecond)
	if !now.After(a.UpdatedAt) {
		now = a.UpdatedAt.Add(time.Millisecond)
	}
	a.UpdatedAt = now
}
