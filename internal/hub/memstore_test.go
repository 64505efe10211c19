package hub

import (
	"context"
	"sort"
	"time"
)

// memStore is an in-memory Store used by the service tests. It mirrors
// the Postgres repository's behavior, including the unique-key conflicts
// and the compare-and-set on submission status.
type memStore struct {
	students    map[string]Student
	faculty     map[string]Faculty
	submissions map[string]Submission
	subOrder    []string
	results     []Result
	subjects    map[string]Subject
	attendance  []AttendanceRecord
}

func newMemStore() *memStore {
	return &memStore{
		students:    map[string]Student{},
		faculty:     map[string]Faculty{},
		submissions: map[string]Submission{},
		subjects:    map[string]Subject{},
	}
}

func (m *memStore) CreateStudent(_ context.Context, s Student) error {
	if _, ok := m.students[s.Email]; ok {
		return Conflictf("student %s already registered", s.Email)
	}
	m.students[s.Email] = s
	return nil
}

func (m *memStore) GetStudent(_ context.Context, email string) (Student, error) {
	s, ok := m.students[email]
	if !ok {
		return Student{}, NotFoundf("student %s not found", email)
	}
	return s, nil
}

func (m *memStore) ListStudents(_ context.Context) ([]Student, error) {
	out := make([]Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memStore) ListStudentsByBranch(_ context.Context, branch string) ([]Student, error) {
	var out []Student
	for _, s := range m.students {
		if s.Branch == branch {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memStore) CreateFaculty(_ context.Context, f Faculty) error {
	if _, ok := m.faculty[f.Email]; ok {
		return Conflictf("faculty %s already registered", f.Email)
	}
	m.faculty[f.Email] = f
	return nil
}

func (m *memStore) GetFaculty(_ context.Context, email string) (Faculty, error) {
	f, ok := m.faculty[email]
	if !ok {
		return Faculty{}, NotFoundf("faculty %s not found", email)
	}
	return f, nil
}

func (m *memStore) InsertSubmission(_ context.Context, sub Submission) (Submission, error) {
	m.submissions[sub.ID] = sub
	m.subOrder = append(m.subOrder, sub.ID)
	return sub, nil
}

func (m *memStore) GetSubmission(_ context.Context, id string) (Submission, error) {
	sub, ok := m.submissions[id]
	if !ok {
		return Submission{}, NotFoundf("submission %s not found", id)
	}
	return sub, nil
}

func (m *memStore) ListSubmissionsByOwner(_ context.Context, email string) ([]Submission, error) {
	var out []Submission
	for _, id := range m.subOrder {
		if sub := m.submissions[id]; sub.OwnerEmail == email {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *memStore) ListSubmissionsByBranch(_ context.Context, branch string, status Status) ([]Submission, error) {
	var out []Submission
	for _, id := range m.subOrder {
		sub := m.submissions[id]
		owner, ok := m.students[sub.OwnerEmail]
		if !ok || owner.Branch != branch {
			continue
		}
		if status != "" && sub.Status != status {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (m *memStore) DecideSubmission(_ context.Context, id string, to Status, credit int, remark string, decidedAt time.Time) (bool, error) {
	sub, ok := m.submissions[id]
	if !ok || sub.Status != StatusPending {
		return false, nil
	}
	sub.Status = to
	sub.Credit = credit
	sub.Remark = remark
	sub.DecidedAt = &decidedAt
	m.submissions[id] = sub
	return true, nil
}

func (m *memStore) ApprovedCreditTotals(_ context.Context) (map[string]int, error) {
	totals := map[string]int{}
	for _, sub := range m.submissions {
		if sub.Status == StatusApproved {
			totals[sub.OwnerEmail] += sub.Credit
		}
	}
	return totals, nil
}

func (m *memStore) InsertResult(_ context.Context, r Result) error {
	for _, existing := range m.results {
		if existing.StudentEmail == r.StudentEmail && existing.Semester == r.Semester {
			return Conflictf("result for semester %d already recorded", r.Semester)
		}
	}
	m.results = append(m.results, r)
	return nil
}

func (m *memStore) ListResults(_ context.Context, email string) ([]Result, error) {
	var out []Result
	for _, r := range m.results {
		if r.StudentEmail == email {
			out = append(out, r)
		}
	}
	// Newest semester first, like the SQL ORDER BY.
	sort.Slice(out, func(i, j int) bool { return out[i].Semester > out[j].Semester })
	return out, nil
}

func (m *memStore) CreateSubject(_ context.Context, s Subject) (Subject, error) {
	m.subjects[s.ID] = s
	return s, nil
}

func (m *memStore) GetSubject(_ context.Context, id string) (Subject, error) {
	s, ok := m.subjects[id]
	if !ok {
		return Subject{}, NotFoundf("subject %s not found", id)
	}
	return s, nil
}

func (m *memStore) ListSubjects(_ context.Context) ([]Subject, error) {
	out := make([]Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memStore) InsertAttendance(_ context.Context, rec AttendanceRecord) error {
	for _, existing := range m.attendance {
		if existing.StudentEmail == rec.StudentEmail &&
			existing.SubjectID == rec.SubjectID &&
			existing.Date.Equal(rec.Date) {
			return Conflictf("attendance already marked for %s on %s", rec.StudentEmail, rec.Date.Format("2006-01-02"))
		}
	}
	m.attendance = append(m.attendance, rec)
	return nil
}

func (m *memStore) ListAttendance(_ context.Context, email string) ([]AttendanceRecord, error) {
	var out []AttendanceRecord
	for _, rec := range m.attendance {
		if rec.StudentEmail == email {
			out = append(out, rec)
		}
	}
	return out, nil
}

// memCache is a LeaderboardCache fake that records invalidations.
type memCache struct {
	entries     []RankEntry
	set         bool
	invalidated int
}

func (c *memCache) Get(context.Context) ([]RankEntry, bool) {
	if !c.set {
		return nil, false
	}
	return c.entries, true
}

func (c *memCache) Set(_ context.Context, entries []RankEntry) {
	c.entries = entries
	c.set = true
}

func (c *memCache) Invalidate(context.Context) {
	c.entries = nil
	c.set = false
	c.invalidated++
}
