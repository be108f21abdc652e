package tracker

import (
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the calendar date format used by every date field.
const DateLayout = "2006-01-02"

// Field length limits, in characters.
const (
	maxTitle       = 200
	maxCompanyName = 100
	maxLongText    = 10000
	maxShortText   = 100
	maxNotes       = 5000
	maxRating      = 10
)

// ApplicationInput carries every editable field. It backs both create and
// full-replacement update.
type ApplicationInput struct {
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
}

// ValidateCreate checks the input for a new record. Company name, title,
// status and applied date are required.
func (in ApplicationInput) ValidateCreate() error {
	var v validator
	if strings.TrimSpace(in.CompanyName) == "" {
		v.add("companyName", "is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		v.add("title", "is required")
	}
	if in.Status == "" {
		v.add("status", "is required")
	}
	if in.AppliedDate == "" {
		v.add("appliedDate", "is required")
	}
	in.check(&v)
	return v.err()
}

// ValidateUpdate checks the input for a full replacement of an existing record.
func (in ApplicationInput) ValidateUpdate() error {
	var v validator
	if in.Status == "" {
		v.add("status", "is required")
	}
	in.check(&v)
	return v.err()
}

func (in ApplicationInput) check(v *validator) {
	checkLength(v, "title", in.Title, maxTitle)
	checkPlatform(v, in.Platform)
	checkURL(v, "link", in.Link)
	checkURL(v, "postingUrl", in.PostingURL)
	checkDate(v, "date", in.Date)
	checkRating(v, in.Rating)
	checkResumeVersion(v, in.ResumeVersion)
	checkLength(v, "companyName", in.CompanyName, maxCompanyName)
	checkLength(v, "jobDescription", in.JobDescription, maxLongText)
	checkLength(v, "coverLetter", in.CoverLetter, maxLongText)
	checkLength(v, "reachOutMessage", in.ReachOutMessage, maxLongText)
	checkLength(v, "salary", in.Salary, maxShortText)
	checkLength(v, "city", in.City, maxShortText)
	if in.Status != "" {
		checkStatus(v, in.Status)
	}
	checkDate(v, "appliedDate", in.AppliedDate)
	checkLength(v, "notes", in.Notes, maxNotes)
	checkInterviews(v, in.Interviews)
}

// Apply overwrites every editable field of a with the input values.
func (in ApplicationInput) Apply(a *Application) {
	a.Title = in.Title
	a.Platform = in.Platform
	a.PostingURL = in.PostingURL
	a.Link = in.Link
	a.EasyApply = in.EasyApply
	a.Date = in.Date
	a.Rating = in.Rating
	a.ResumeVersion = in.ResumeVersion
	a.CompanyName = in.CompanyName
	a.JobDescription = in.JobDescription
	a.CoverLetter = in.CoverLetter
	a.ReachOutMessage = in.ReachOutMessage
	a.Salary = in.Salary
	a.City = in.City
	a.Expired = in.Expired
	a.Remote = in.Remote
	a.Status = in.Status
	a.AppliedDate = in.AppliedDate
	a.Notes = in.Notes
	a.Interviews = slices.Clone(in.Interviews)
	if a.Interviews == nil {
		a.Interviews = []Interview{}
	}
}

// FieldPatch is a partial update. Only non-nil fields are written.
type FieldPatch struct {
	Title           *string      `json:"title,omitempty"`
	Platform        *string      `json:"platform,omitempty"`
	PostingURL      *string      `json:"postingUrl,omitempty"`
	Link            *string      `json:"link,omitempty"`
	EasyApply       *bool        `json:"easyApply,omitempty"`
	Date            *string      `json:"date,omitempty"`
	Rating          *float64     `json:"rating,omitempty"`
	ResumeVersion   *string      `json:"resumeVersion,omitempty"`
	CompanyName     *string      `json:"companyName,omitempty"`
	JobDescription  *string      `json:"jobDescription,omitempty"`
	CoverLetter     *string      `json:"coverLetter,omitempty"`
	ReachOutMessage *string      `json:"reachOutMessage,omitempty"`
	Salary          *string      `json:"salary,omitempty"`
	City            *string      `json:"city,omitempty"`
	Expired         *bool        `json:"expired,omitempty"`
	Remote          *bool        `json:"remote,omitempty"`
	Status          *Status      `json:"status,omitempty"`
	AppliedDate     *string      `json:"appliedDate,omitempty"`
	Notes           *string      `json:"notes,omitempty"`
	Interviews      *[]Interview `json:"interviews,omitempty"`
}

// Fields returns the JSON names of the fields set on the patch, in column order.
func (p FieldPatch) Fields() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.Title != nil, "title")
	add(p.Platform != nil, "platform")
	add(p.PostingURL != nil, "postingUrl")
	add(p.Link != nil, "link")
	add(p.EasyApply != nil, "easyApply")
	add(p.Date != nil, "date")
	add(p.Rating != nil, "rating")
	add(p.ResumeVersion != nil, "resumeVersion")
	add(p.CompanyName != nil, "companyName")
	add(p.JobDescription != nil, "jobDescription")
	add(p.CoverLetter != nil, "coverLetter")
	add(p.ReachOutMessage != nil, "reachOutMessage")
	add(p.Salary != nil, "salary")
	add(p.City != nil, "city")
	add(p.Expired != nil, "expired")
	add(p.Remote != nil, "remote")
	add(p.Status != nil, "status")
	add(p.AppliedDate != nil, "appliedDate")
	add(p.Notes != nil, "notes")
	add(p.Interviews != nil, "interviews")
	return out
}

// Empty reports whether the patch sets no field.
func (p FieldPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Validate checks every field the patch sets.
func (p FieldPatch) Validate() error {
	var v validator
	if p.Empty() {
		v.add("fields", "must contain at least one field")
		return v.err()
	}
	if p.Title != nil {
		checkLength(&v, "title", *p.Title, maxTitle)
	}
	if p.Platform != nil {
		checkPlatform(&v, *p.Platform)
	}
	if p.PostingURL != nil {
		checkURL(&v, "postingUrl", *p.PostingURL)
	}
	if p.Link != nil {
		checkURL(&v, "link", *p.Link)
	}
	if p.Date != nil {
		checkDate(&v, "date", *p.Date)
	}
	if p.Rating != nil {
		checkRating(&v, *p.Rating)
	}
	if p.ResumeVersion != nil {
		checkResumeVersion(&v, *p.ResumeVersion)
	}
	if p.CompanyName != nil {
		checkLength(&v, "companyName", *p.CompanyName, maxCompanyName)
	}
	if p.JobDescription != nil {
		checkLength(&v, "jobDescription", *p.JobDescription, maxLongText)
	}
	if p.CoverLetter != nil {
		checkLength(&v, "coverLetter", *p.CoverLetter, maxLongText)
	}
	if p.ReachOutMessage != nil {
		checkLength(&v, "reachOutMessage", *p.ReachOutMessage, maxLongText)
	}
	if p.Salary != nil {
		checkLength(&v, "salary", *p.Salary, maxShortText)
	}
	if p.City != nil {
		checkLength(&v, "city", *p.City, maxShortText)
	}
	if p.Status != nil {
		checkStatus(&v, *p.Status)
	}
	if p.AppliedDate != nil {
		checkDate(&v, "appliedDate", *p.AppliedDate)
	}
	if p.Notes != nil {
		checkLength(&v, "notes", *p.Notes, maxNotes)
	}
	if p.Interviews != nil {
		checkInterviews(&v, *p.Interviews)
	}
	return v.err()
}

// Apply writes the set fields onto a.
func (p FieldPatch) Apply(a *Application) {
	setIf(&a.Title, p.Title)
	setIf(&a.Platform, p.Platform)
	setIf(&a.PostingURL, p.PostingURL)
	setIf(&a.Link, p.Link)
	setIf(&a.EasyApply, p.EasyApply)
	setIf(&a.Date, p.Date)
	setIf(&a.Rating, p.Rating)
	setIf(&a.ResumeVersion, p.ResumeVersion)
	setIf(&a.CompanyName, p.CompanyName)
	setIf(&a.JobDescription, p.JobDescription)
	setIf(&a.CoverLetter, p.CoverLetter)
	setIf(&a.ReachOutMessage, p.ReachOutMessage)
	setIf(&a.Salary, p.Salary)
	setIf(&a.City, p.City)
	setIf(&a.Expired, p.Expired)
	setIf(&a.Remote, p.Remote)
	setIf(&a.Status, p.Status)
	setIf(&a.AppliedDate, p.AppliedDate)
	setIf(&a.Notes, p.Notes)
	if p.Interviews != nil {
		a.Interviews = slices.Clone(*p.Interviews)
		if a.Interviews == nil {
			a.Interviews = []Interview{}
		}
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// StatusInput is the body of a status change.
type StatusInput struct {
	Status Status `json:"status"`
}

// Validate checks the requested status.
func (in StatusInput) Validate() error {
	var v validator
	checkStatus(&v, in.Status)
	return v.err()
}

// InterviewInput is the body of an interview append.
type InterviewInput struct {
	Date  string        `json:"date"`
	Type  InterviewType `json:"type"`
	Notes string        `json:"notes"`
}

// Validate checks the interview. Date is required; type is optional.
func (in InterviewInput) Validate() error {
	var v validator
	if in.Date == "" || !validDate(in.Date) {
		v.add("date", "is required and must be in YYYY-MM-DD format")
	}
	if in.Type != "" && !in.Type.Valid() {
		v.add("type", "must be one of: %s", joinValues(InterviewTypes))
	}
	return v.err()
}

// Interview converts the input to an embedded interview record.
func (in InterviewInput) Interview() Interview {
	return Interview{Date: in.Date, Type: in.Type, Notes: in.Notes}
}

func checkLength(v *validator, field, s string, limit int) {
	if utf8.RuneCountInString(s) > limit {
		v.add(field, "must be at most %d characters", limit)
	}
}

func checkPlatform(v *validator, platform string) {
	if platform != "" && !slices.Contains(Platforms, platform) {
		v.add("platform", "must be one of: %s", strings.Join(Platforms, ", "))
	}
}

func checkURL(v *validator, field, raw string) {
	if raw == "" {
		return
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.add(field, "must be a valid URL")
	}
}

func checkDate(v *validator, field, s string) {
	if s != "" && !validDate(s) {
		v.add(field, "must be in YYYY-MM-DD format (e.g., 2025-12-02)")
	}
}

func checkRating(v *validator, r float64) {
	if r < 0 || r > maxRating {
		v.add("rating", "must be a number between 0 and %d", maxRating)
	}
}

func checkResumeVersion(v *validator, rv string) {
	if rv != "" && !slices.Contains(ResumeVersions, rv) {
		v.add("resumeVersion", "must be one of: %s", strings.Join(ResumeVersions, ", "))
	}
}

func checkStatus(v *validator, s Status) {
	if !s.Valid() {
		v.add("status", "must be one of: %s", joinValues(Statuses))
	}
}

func checkInterviews(v *validator, interviews []Interview) {
	for i, iv := range interviews {
		if iv.Date == "" || !validDate(iv.Date) {
			v.add("interviews", "entry %d: date is required and must be valid", i+1)
		}
		if iv.Type != "" && !iv.Type.Valid() {
			v.add("interviews", "entry %d: type must be one of: %s", i+1, joinValues(InterviewTypes))
		}
	}
}

func validDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
