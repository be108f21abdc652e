package tracker

import (
	"math"
	"sort"
	"time"
)

// DefaultGhostAfter is how long an application may sit in Applied with no
// interview before it is flagged as likely ghosted.
const DefaultGhostAfter = 21 * 24 * time.Hour

const day = 24 * time.Hour

// StatsOptions tunes ComputeStats.
type StatsOptions struct {
	GhostAfter time.Duration
}

// DateRange is an inclusive range of calendar dates. Nil pointers mean no data.
type DateRange struct {
	Min *string `json:"min"`
	Max *string `json:"max"`
}

// Summary holds the headline counters shown on the dashboard.
type Summary struct {
	TotalJobs            int       `json:"totalJobs"`
	TotalApplied         int       `json:"totalApplied"`
	RemainingToApply     int       `json:"remainingToApply"`
	TotalEasyApply       int       `json:"totalEasyApply"`
	AverageAppliedPerDay float64   `json:"averageAppliedPerDay"`
	JobsToApplyDaily     int       `json:"jobsToApplyDaily"`
	DateRangePublished   DateRange `json:"dateRangePublished"`
}

// DateCount is one point of a per-date histogram.
type DateCount struct {
	Date       string `json:"date"`
	Count      int    `json:"count"`
	Cumulative int    `json:"cumulative"`
}

// Funnel counts submitted applications by outcome.
type Funnel struct {
	TotalApplied int `json:"totalApplied"`
	Ghosted      int `json:"ghosted"`
	Rejected     int `json:"rejected"`
	Interviewed  int `json:"interviewed"`
}

// RatingOutcome breaks down outcomes for one integer rating.
type RatingOutcome struct {
	Rating      int `json:"rating"`
	Total       int `json:"total"`
	Interviewed int `json:"interviewed"`
	Rejected    int `json:"rejected"`
	Ghosted     int `json:"ghosted"`
	Applied     int `json:"applied"`
}

// GhostReport lists applications likely abandoned by the employer.
type GhostReport struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// Streaks counts consecutive calendar days with at least one application sent.
type Streaks struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// WeeklyCohort groups submitted applications by the Monday of the week they
// were sent.
type WeeklyCohort struct {
	WeekStart    string  `json:"weekStart"`
	Applied      int     `json:"applied"`
	Interviewed  int     `json:"interviewed"`
	Rejected     int     `json:"rejected"`
	Ghosted      int     `json:"ghosted"`
	ResponseRate float64 `json:"responseRate"`
}

// DayCount is an applied count for one calendar date.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats is the full dashboard payload.
type Stats struct {
	Summary                   Summary         `json:"summary"`
	ByStatus                  map[string]int  `json:"byStatus"`
	ByPlatform                map[string]int  `json:"byPlatform"`
	ResponseRate              float64         `json:"responseRate"`
	InterviewRate             float64         `json:"interviewRate"`
	AverageDaysToInterview    float64         `json:"averageDaysToInterview"`
	JobsByDatePublished       []DateCount     `json:"jobsByDatePublished"`
	ApplicationsByDateApplied []DateCount     `json:"applicationsByDateApplied"`
	Funnel                    Funnel          `json:"funnel"`
	RatingOutcome             []RatingOutcome `json:"ratingOutcome"`
	LikelyGhosted             GhostReport     `json:"likelyGhosted"`
	Streaks                   Streaks         `json:"streaks"`
	WeeklyCohorts             []WeeklyCohort  `json:"weeklyCohorts"`
	Last7Days                 []DayCount      `json:"last7Days"`
}

// ComputeStats derives dashboard statistics from a full scan of apps. now
// anchors the relative metrics (ghosting, streaks, last seven days) to a
// calendar date in now's location.
func ComputeStats(apps []Application, now time.Time, opts StatsOptions) Stats {
	if opts.GhostAfter <= 0 {
		opts.GhostAfter = DefaultGhostAfter
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	st := Stats{
		ByStatus:      make(map[string]int),
		ByPlatform:    make(map[string]int),
		RatingOutcome: make([]RatingOutcome, maxRating+1),
		LikelyGhosted: GhostReport{IDs: []string{}},
	}
	for r := range st.RatingOutcome {
		st.RatingOutcome[r].Rating = r
	}

	published := make(map[string]int)
	appliedOn := make(map[string]int)
	activeDays := make(map[time.Time]bool)
	cohorts := make(map[time.Time]*WeeklyCohort)

	var (
		daysToInterview  int
		withInterview    int
		submitted        int
		submittedWithIvs int
	)

	for _, a := range apps {
		st.Summary.TotalJobs++
		if a.Status == StatusApplied || a.Status == StatusAlreadyApplied {
			st.Summary.TotalApplied++
		}
		if a.Status == StatusToDo {
			st.Summary.RemainingToApply++
		}
		if a.EasyApply {
			st.Summary.TotalEasyApply++
		}

		st.ByStatus[labelOr(string(a.Status))]++
		st.ByPlatform[labelOr(a.Platform)]++

		if a.Date != "" {
			published[a.Date]++
		}

		applied, appliedOK := parseDate(a.AppliedDate)
		if appliedOK && (a.Status == StatusApplied || a.Status == StatusAlreadyApplied) {
			appliedOn[a.AppliedDate]++
		}
		if appliedOK && (a.Status.Submitted() || a.Status == StatusAlreadyApplied) {
			activeDays[applied] = true
		}

		if appliedOK && len(a.Interviews) > 0 {
			if first, ok := parseDate(a.Interviews[0].Date); ok {
				if d := int(math.Ceil(first.Sub(applied).Hours() / 24)); d >= 0 {
					daysToInterview += d
					withInterview++
				}
			}
		}

		if a.Status.Submitted() {
			submitted++
			if len(a.Interviews) > 0 {
				submittedWithIvs++
			}
			switch a.Status {
			case StatusGhosted:
				st.Funnel.Ghosted++
			case StatusRejected:
				st.Funnel.Rejected++
			case StatusInterviewed:
				st.Funnel.Interviewed++
			}
			if appliedOK {
				week := weekStart(applied)
				c := cohorts[week]
				if c == nil {
					c = &WeeklyCohort{WeekStart: week.Format(DateLayout)}
					cohorts[week] = c
				}
				c.Applied++
				switch a.Status {
				case StatusInterviewed:
					c.Interviewed++
				case StatusRejected:
					c.Rejected++
				case StatusGhosted:
					c.Ghosted++
				}
			}
		}

		if r := int(math.Floor(a.Rating)); r >= 0 && r <= maxRating {
			ro := &st.RatingOutcome[r]
			ro.Total++
			switch a.Status {
			case StatusInterviewed:
				ro.Interviewed++
			case StatusRejected:
				ro.Rejected++
			case StatusGhosted:
				ro.Ghosted++
			case StatusApplied:
				ro.Applied++
			}
		}

		if a.Status == StatusApplied && appliedOK && len(a.Interviews) == 0 && today.Sub(applied) > opts.GhostAfter {
			st.LikelyGhosted.IDs = append(st.LikelyGhosted.IDs, a.ID)
		}
	}
	st.Funnel.TotalApplied = submitted
	st.LikelyGhosted.Count = len(st.LikelyGhosted.IDs)

	st.JobsByDatePublished = cumulative(published)
	st.ApplicationsByDateApplied = cumulative(appliedOn)
	if dates := sortedKeys(published); len(dates) > 0 {
		lo, hi := dates[0], dates[len(dates)-1]
		st.Summary.DateRangePublished = DateRange{Min: &lo, Max: &hi}
	}

	if dates := sortedKeys(appliedOn); len(dates) > 1 {
		first, _ := parseDate(dates[0])
		last, _ := parseDate(dates[len(dates)-1])
		if span := int(math.Ceil(last.Sub(first).Hours() / 24)); span > 0 {
			st.Summary.AverageAppliedPerDay = round(float64(st.Summary.TotalApplied)/float64(span), 2)
		}
	}
	st.Summary.JobsToApplyDaily = int(math.Ceil(float64(st.Summary.RemainingToApply) / 7))

	if st.Summary.TotalApplied > 0 {
		st.ResponseRate = round(float64(st.ByStatus[string(StatusInterviewed)])/float64(st.Summary.TotalApplied)*100, 2)
	}
	if submitted > 0 {
		st.InterviewRate = round(float64(submittedWithIvs)/float64(submitted)*100, 2)
	}
	if withInterview > 0 {
		st.AverageDaysToInterview = round(float64(daysToInterview)/float64(withInterview), 1)
	}

	st.Streaks = streaks(activeDays, today)
	st.WeeklyCohorts = sortedCohorts(cohorts)

	st.Last7Days = make([]DayCount, 0, 7)
	for i := 6; i >= 0; i-- {
		d := today.AddDate(0, 0, -i).Format(DateLayout)
		st.Last7Days = append(st.Last7Days, DayCount{Date: d, Count: appliedOn[d]})
	}

	return st
}

func labelOr(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	return t, err == nil
}

// weekStart returns the Monday on or before t.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cumulative(m map[string]int) []DateCount {
	out := make([]DateCount, 0, len(m))
	total := 0
	for _, k := range sortedKeys(m) {
		total += m[k]
		out = append(out, DateCount{Date: k, Count: m[k], Cumulative: total})
	}
	return out
}

// streaks measures runs of consecutive active days. The current streak is
// still alive if its last day is today or yesterday.
func streaks(active map[time.Time]bool, today time.Time) Streaks {
	days := make([]time.Time, 0, len(active))
	for d := range active {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var s Streaks
	run := 0
	for i, d := range days {
		if i > 0 && d.Sub(days[i-1]) == day {
			run++
		} else {
			run = 1
		}
		if run > s.Longest {
			s.Longest = run
		}
	}

	if len(days) > 0 {
		last := days[len(days)-1]
		if gap := today.Sub(last); gap == 0 || gap == day {
			s.Current = run
		}
	}
	return s
}

func sortedCohorts(m map[time.Time]*WeeklyCohort) []WeeklyCohort {
	weeks := make([]time.Time, 0, len(m))
	for w := range m {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	out := make([]WeeklyCohort, 0, len(weeks))
	for _, w := range weeks {
		c := *m[w]
		if c.Applied > 0 {
			c.ResponseRate = round(float64(c.Interviewed)/float64(c.Applied)*100, 2)
		}
		out = append(out, c)
	}
	return out
}
