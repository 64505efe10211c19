package hub

import (
	"math"
	"sort"
)

// StudentAggregate is the per-student view derived from approved
// submissions and attendance records.
type StudentAggregate struct {
	TotalCredits      int     `json:"total_credits"`
	TotalActivities   int     `json:"total_activities"`
	CategoryCount     int     `json:"category_count"`
	Grade             string  `json:"grade"`
	AttendancePercent float64 `json:"attendance_percent"`
}

// KindStats summarises one submission kind for the scoreboard cards.
type KindStats struct {
	Kind    SubmissionKind `json:"kind"`
	Count   int            `json:"count"`
	Credits int            `json:"credits"`
}

// Aggregate folds a student's submissions into credit and activity
// totals. Only approved rows count; credit stored on pending or rejected
// rows is ignored no matter what value it holds.
func Aggregate(subs []Submission) StudentAggregate {
	credits := 0
	activities := 0
	kinds := map[SubmissionKind]bool{}
	for _, s := range subs {
		if s.Status != StatusApproved {
			continue
		}
		credits += s.Credit
		activities++
		kinds[s.Kind] = true
	}
	return StudentAggregate{
		TotalCredits:    credits,
		TotalActivities: activities,
		CategoryCount:   len(kinds),
		Grade:           Grade(credits),
	}
}

// KindBreakdown returns approved count and credits per kind, in Kinds order.
func KindBreakdown(subs []Submission) []KindStats {
	byKind := map[SubmissionKind]*KindStats{}
	for _, k := range Kinds {
		byKind[k] = &KindStats{Kind: k}
	}
	for _, s := range subs {
		if s.Status != StatusApproved {
			continue
		}
		st := byKind[s.Kind]
		st.Count++
		st.Credits += s.Credit
	}
	out := make([]KindStats, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, *byKind[k])
	}
	return out
}

// Grade bands a credit total into a letter grade. Thresholds are checked
// in descending order so a total sitting exactly on a threshold takes the
// higher band.
func Grade(credits int) string {
	switch {
	case credits >= 150:
		return "A+"
	case credits >= 120:
		return "A"
	case credits >= 90:
		return "B+"
	case credits >= 60:
		return "B"
	case credits > 0:
		return "C"
	default:
		return "N/A"
	}
}

// AttendanceSummary is the overall presence picture for one student.
type AttendanceSummary struct {
	Percent  float64 `json:"percent"`
	Attended int     `json:"attended"`
	Absent   int     `json:"absent"`
	Total    int     `json:"total"`
}

// AttendancePercent computes 100*present/total rounded to one decimal.
// No records means 0, not an error.
func AttendancePercent(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(100*float64(present)/float64(total)*10) / 10
}

// SummarizeAttendance collapses raw records into a summary.
func SummarizeAttendance(records []AttendanceRecord) AttendanceSummary {
	present := 0
	for _, r := range records {
		if r.Status == Present {
			present++
		}
	}
	return AttendanceSummary{
		Percent:  AttendancePercent(present, len(records)),
		Attended: present,
		Absent:   len(records) - present,
		Total:    len(records),
	}
}

// SubjectAttendance is the per-subject slice of a student's attendance.
type SubjectAttendance struct {
	SubjectID string  `json:"subject_id"`
	Name      string  `json:"name"`
	Total     int     `json:"total"`
	Attended  int     `json:"attended"`
	Percent   float64 `json:"percent"`
}

// AttendanceBySubject groups records per subject, ordered by subject
// name. Subjects the student has no records for are omitted.
func AttendanceBySubject(records []AttendanceRecord, subjects []Subject) []SubjectAttendance {
	names := map[string]string{}
	for _, s := range subjects {
		names[s.ID] = s.Name
	}
	totals := map[string]*SubjectAttendance{}
	order := []string{}
	for _, r := range records {
		st, ok := totals[r.SubjectID]
		if !ok {
			st = &SubjectAttendance{SubjectID: r.SubjectID, Name: names[r.SubjectID]}
			totals[r.SubjectID] = st
			order = append(order, r.SubjectID)
		}
		st.Total++
		if r.Status == Present {
			st.Attended++
		}
	}
	out := make([]SubjectAttendance, 0, len(order))
	for _, id := range order {
		st := totals[id]
		st.Percent = AttendancePercent(st.Attended, st.Total)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out
}

// MonthlyAttendance is one calendar month of a student's attendance.
type MonthlyAttendance struct {
	Month    string  `json:"month"`
	Total    int     `json:"total"`
	Attended int     `json:"attended"`
	Percent  float64 `json:"percent"`
}

// AttendanceByMonth groups records per calendar month, oldest first.
func AttendanceByMonth(records []AttendanceRecord) []MonthlyAttendance {
	type key struct {
		year  int
		month int
	}
	totals := map[key]*MonthlyAttendance{}
	keys := []key{}
	for _, r := range records {
		k := key{r.Date.Year(), int(r.Date.Month())}
		m, ok := totals[k]
		if !ok {
			m = &MonthlyAttendance{Month: r.Date.Format("Jan 2006")}
			totals[k] = m
			keys = append(keys, k)
		}
		m.Total++
		if r.Status == Present {
			m.Attended++
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})
	out := make([]MonthlyAttendance, 0, len(keys))
	for _, k := range keys {
		m := totals[k]
		m.Percent = AttendancePercent(m.Attended, m.Total)
		out = append(out, *m)
	}
	return out
}
