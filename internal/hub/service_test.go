package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClock = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(store *memStore, cache LeaderboardCache) *Service {
	svc := NewService(store, cache)
	svc.now = func() time.Time { return testClock }
	return svc
}

func seedStudent(m *memStore, email, branch string) Student {
	st := Student{
		Email:     email,
		FirstName: "Asha",
		LastName:  "Verma",
		RollNo:    "CS-101",
		Branch:    branch,
	}
	m.students[email] = st
	return st
}

func seedFaculty(m *memStore, email, department string) Faculty {
	f := Faculty{
		Email:      email,
		FirstName:  "Ravi",
		LastName:   "Iyer",
		Department: department,
	}
	m.faculty[email] = f
	return f
}

func seedSubmission(m *memStore, sub Submission) Submission {
	if sub.Status == "" {
		sub.Status = StatusPending
	}
	m.submissions[sub.ID] = sub
	m.subOrder = append(m.subOrder, sub.ID)
	return sub
}

func intPtr(v int) *int { return &v }

func datePtr(y int, mo time.Month, d int) *time.Time {
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestSubmitCreatesPending(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	svc := newTestService(store, nil)

	sub, err := svc.Submit(context.Background(), "asha@college.edu", SubmissionInput{
		Kind:         KindCertificate,
		Title:        "AWS Cloud Practitioner",
		Organization: "Amazon",
		OccurredOn:   datePtr(2024, time.January, 5),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, StatusPending, sub.Status)
	assert.Equal(t, 0, sub.Credit)
	assert.Equal(t, testClock, sub.SubmittedAt)
	assert.Nil(t, sub.DecidedAt)
}

func TestSubmitValidation(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	svc := newTestService(store, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		in   SubmissionInput
	}{
		{"missing title", SubmissionInput{Kind: KindProject, Subject: "DBMS"}},
		{"certificate without organization", SubmissionInput{Kind: KindCertificate, Title: "Cert", OccurredOn: datePtr(2024, time.January, 1)}},
		{"certificate without issue date", SubmissionInput{Kind: KindCertificate, Title: "Cert", Organization: "Org"}},
		{"project without subject", SubmissionInput{Kind: KindProject, Title: "Compiler"}},
		{"activity without type", SubmissionInput{Kind: KindActivity, Title: "Hackathon"}},
		{"unknown kind", SubmissionInput{Kind: "thesis", Title: "Thesis"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, "asha@college.edu", tc.in)
			assert.True(t, IsInvalid(err), "expected validation error, got %v", err)
		})
	}
}

func TestSubmitUnknownStudent(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	_, err := svc.Submit(context.Background(), "ghost@college.edu", SubmissionInput{
		Kind: KindActivity, Title: "Debate", ActivityType: "Cultural",
	})
	assert.True(t, IsNotFound(err))
}

func TestDecideApprove(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedFaculty(store, "ravi@college.edu", "CSE")
	seedSubmission(store, Submission{
		ID: "sub-1", Kind: KindProject, OwnerEmail: "asha@college.edu",
		Title: "Compiler", Subject: "Compilers", SubmittedAt: testClock,
	})
	cache := &memCache{}
	svc := newTestService(store, cache)

	sub, err := svc.Decide(context.Background(), "ravi@college.edu", "sub-1", Decision{
		Action: ActionApprove,
		Credit: intPtr(40),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, sub.Status)
	assert.Equal(t, 40, sub.Credit)
	require.NotNil(t, sub.DecidedAt)
	assert.Equal(t, testClock, *sub.DecidedAt)
	assert.Equal(t, 1, cache.invalidated, "approval must drop the cached leaderboard")

	stored, err := store.GetSubmission(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)
	assert.Equal(t, 40, stored.Credit)
}

func TestDecideApproveCreditRules(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedFaculty(store, "ravi@college.edu", "CSE")
	seedSubmission(store, Submission{
		ID: "sub-1", Kind: KindProject, OwnerEmail: "asha@college.edu",
		Title: "Compiler", Subject: "Compilers", SubmittedAt: testClock,
	})
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Decide(ctx, "ravi@college.edu", "sub-1", Decision{Action: ActionApprove})
	assert.True(t, IsInvalid(err), "approval without credit must be rejected")

	_, err = svc.Decide(ctx, "ravi@college.edu", "sub-1", Decision{Action: ActionApprove, Credit: intPtr(-5)})
	assert.True(t, IsInvalid(err), "negative credit must be rejected")

	// Zero credit is a legal approval.
	sub, err := svc.Decide(ctx, "ravi@college.edu", "sub-1", Decision{Action: ActionApprove, Credit: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, sub.Status)
	assert.Equal(t, 0, sub.Credit)
}

func TestDecideRejectRequiresRemark(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedFaculty(store, "ravi@college.edu", "CSE")
	seedSubmission(store, Submission{
		ID: "sub-1", Kind: KindActivity, OwnerEmail: "asha@college.edu",
		Title: "Hackathon", ActivityType: "Technical", SubmittedAt: testClock,
	})
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Decide(ctx, "ravi@college.edu", "sub-1", Decision{Action: ActionReject})
	assert.True(t, IsInvalid(err))

	_, err = svc.Decide(ctx, "ravi@college.edu", "sub-1", Decision{Action: ActionReject, Remark: "   "})
	assert.True(t, IsInvalid(err), "whitespace-only remark must be rejected")

	// Credit sent with a rejection is discarded.
	sub, err := svc.Decide(ctx, "ravi@college.edu", "sub-1", Decision{
		Action: ActionReject, Remark: "evidence unreadable", Credit: intPtr(50),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, sub.Status)
	assert.Equal(t, 0, sub.Credit)
	assert.Equal(t, "evidence unreadable", sub.Remark)
}

func TestDecideTerminalStatesAreImmutable(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedFaculty(store, "ravi@college.edu", "CSE")
	seedSubmission(store, Submission{
		ID: "sub-1", Kind: KindProject, OwnerEmail: "asha@college.edu",
		Title: "Compiler", Subject: "Compilers", SubmittedAt: testClock,
	})
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Decide(ctx, "ravi@college.edu", "sub-1", Decision{Action: ActionApprove, Credit: intPtr(30)})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, "ravi@college.edu", "sub-1", Decision{Action: ActionReject, Remark: "changed my mind"})
	assert.True(t, IsConflict(err), "second decision must conflict, got %v", err)

	// The first decision survives untouched.
	stored, err := store.GetSubmission(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)
	assert.Equal(t, 30, stored.Credit)
}

func TestDecideUnknownAction(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedFaculty(store, "ravi@college.edu", "CSE")
	seedSubmission(store, Submission{
		ID: "sub-1", Kind: KindProject, OwnerEmail: "asha@college.edu",
		Title: "Compiler", Subject: "Compilers", SubmittedAt: testClock,
	})
	svc := newTestService(store, nil)

	_, err := svc.Decide(context.Background(), "ravi@college.edu", "sub-1", Decision{Action: "defer"})
	assert.True(t, IsInvalid(err))
}

func TestDecideDepartmentScope(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedFaculty(store, "mechfac@college.edu", "MECH")
	seedSubmission(store, Submission{
		ID: "sub-1", Kind: KindProject, OwnerEmail: "asha@college.edu",
		Title: "Compiler", Subject: "Compilers", SubmittedAt: testClock,
	})
	svc := newTestService(store, nil)

	_, err := svc.Decide(context.Background(), "mechfac@college.edu", "sub-1", Decision{
		Action: ActionApprove, Credit: intPtr(10),
	})
	assert.True(t, IsUnauthorized(err), "cross-department review must be refused, got %v", err)

	stored, _ := store.GetSubmission(context.Background(), "sub-1")
	assert.Equal(t, StatusPending, stored.Status)
}

func TestDecideLosesRaceWhenAlreadyDecided(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedFaculty(store, "ravi@college.edu", "CSE")
	seedSubmission(store, Submission{
		ID: "sub-1", Kind: KindProject, OwnerEmail: "asha@college.edu",
		Title: "Compiler", Subject: "Compilers", SubmittedAt: testClock,
		Status: StatusRejected, Remark: "duplicate",
	})
	svc := newTestService(store, nil)

	_, err := svc.Decide(context.Background(), "ravi@college.edu", "sub-1", Decision{
		Action: ActionApprove, Credit: intPtr(10),
	})
	assert.True(t, IsConflict(err))
}

func TestRegisterAndAuthenticateStudent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	st, err := svc.RegisterStudent(ctx, Student{
		Email:     "asha@college.edu",
		FirstName: "Asha",
		LastName:  "Verma",
		RollNo:    "CS-101",
		Branch:    "CSE",
	}, "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, st.PasswordHash)
	assert.Equal(t, testClock, st.RegisteredAt)

	got, err := svc.AuthenticateStudent(ctx, "asha@college.edu", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "asha@college.edu", got.Email)

	_, err = svc.AuthenticateStudent(ctx, "asha@college.edu", "wrong password")
	assert.True(t, IsUnauthorized(err))

	// Unknown accounts get the same error as bad passwords.
	_, err = svc.AuthenticateStudent(ctx, "ghost@college.edu", "whatever")
	assert.True(t, IsUnauthorized(err))
}

func TestRegisterStudentValidation(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()

	_, err := svc.RegisterStudent(ctx, Student{Email: "not-an-email", FirstName: "A", RollNo: "1", Branch: "CSE"}, "longenough")
	assert.True(t, IsInvalid(err))

	_, err = svc.RegisterStudent(ctx, Student{Email: "a@b.edu", FirstName: "A", RollNo: "1", Branch: "CSE"}, "short")
	assert.True(t, IsInvalid(err), "passwords under 8 characters must be rejected")

	_, err = svc.RegisterStudent(ctx, Student{Email: "a@b.edu", FirstName: "A", RollNo: "1"}, "longenough")
	assert.True(t, IsInvalid(err), "branch is required")
}

func TestRegisterStudentDuplicateEmail(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	svc := newTestService(store, nil)

	_, err := svc.RegisterStudent(context.Background(), Student{
		Email: "asha@college.edu", FirstName: "Asha", RollNo: "CS-101", Branch: "CSE",
	}, "longenough")
	assert.True(t, IsConflict(err))
}

func TestAggregateStudentCountsApprovedOnly(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedSubmission(store, Submission{ID: "s1", Kind: KindCertificate, OwnerEmail: "asha@college.edu", Title: "Cert", Status: StatusApproved, Credit: 50, SubmittedAt: testClock})
	seedSubmission(store, Submission{ID: "s2", Kind: KindProject, OwnerEmail: "asha@college.edu", Title: "Proj", Status: StatusApproved, Credit: 45, SubmittedAt: testClock})
	// Pending and rejected rows never count, whatever credit they carry.
	seedSubmission(store, Submission{ID: "s3", Kind: KindActivity, OwnerEmail: "asha@college.edu", Title: "Act", Status: StatusPending, Credit: 99, SubmittedAt: testClock})
	seedSubmission(store, Submission{ID: "s4", Kind: KindActivity, OwnerEmail: "asha@college.edu", Title: "Act2", Status: StatusRejected, Credit: 99, SubmittedAt: testClock})
	svc := newTestService(store, nil)

	agg, err := svc.AggregateStudent(context.Background(), "asha@college.edu")
	require.NoError(t, err)

	assert.Equal(t, 95, agg.TotalCredits)
	assert.Equal(t, 2, agg.TotalActivities)
	assert.Equal(t, 2, agg.CategoryCount)
	assert.Equal(t, "B+", agg.Grade)
	assert.Equal(t, 0.0, agg.AttendancePercent)
}

func TestLeaderboardUsesCache(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	cache := &memCache{}
	svc := newTestService(store, cache)
	ctx := context.Background()

	first, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	assert.True(t, cache.set, "miss must populate the cache")

	// A student added behind the cache is invisible until invalidation.
	seedStudent(store, "zara@college.edu", "CSE")
	second, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TotalStudents, second.TotalStudents)

	cache.Invalidate(ctx)
	third, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, third.TotalStudents)
}

func TestBuildScoreboardAfterStaleCache(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedStudent(store, "zara@college.edu", "CSE")
	cache := &memCache{}
	svc := newTestService(store, cache)
	ctx := context.Background()

	// Warm the cache, then register a student behind it.
	_, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	seedStudent(store, "newly@college.edu", "CSE")

	board, err := svc.BuildScoreboard(ctx, "newly@college.edu")
	require.NoError(t, err)

	// The stale ranking is recomputed so the student is placed, and the
	// standing percentage stays within its range.
	assert.Equal(t, 3, board.TotalStudents)
	assert.NotZero(t, board.ClassRank)
	assert.LessOrEqual(t, board.TopPercent, 100.0)
	assert.Greater(t, board.TopPercent, 0.0)
}

func TestAddResultRules(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.AddResult(ctx, "asha@college.edu", 0, 8.0, 8.0, "")
	assert.True(t, IsInvalid(err))

	_, err = svc.AddResult(ctx, "asha@college.edu", 1, 11.0, 8.0, "")
	assert.True(t, IsInvalid(err))

	_, err = svc.AddResult(ctx, "asha@college.edu", 1, 8.2, 8.2, "")
	require.NoError(t, err)

	_, err = svc.AddResult(ctx, "asha@college.edu", 1, 9.0, 9.0, "")
	assert.True(t, IsConflict(err), "duplicate semester must conflict")
}

func TestResultHistoryChart(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.AddResult(ctx, "asha@college.edu", 1, 7.5, 7.5, "")
	require.NoError(t, err)
	_, err = svc.AddResult(ctx, "asha@college.edu", 2, 8.5, 8.0, "")
	require.NoError(t, err)

	view, err := svc.ResultHistory(ctx, "asha@college.edu")
	require.NoError(t, err)

	// Latest means highest semester, independent of insertion order.
	require.Len(t, view.Results, 2)
	assert.Equal(t, 2, view.Results[0].Semester)
	assert.Equal(t, 8.0, view.CurrentCGPA)

	// Chart runs oldest first with bars scaled to percent.
	require.Len(t, view.Chart, 2)
	assert.Equal(t, 1, view.Chart[0].Semester)
	assert.Equal(t, 75.0, view.Chart[0].BarHeight)
}

func TestMarkAttendance(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedFaculty(store, "ravi@college.edu", "CSE")
	seedFaculty(store, "mechfac@college.edu", "MECH")
	svc := newTestService(store, nil)
	ctx := context.Background()

	subject, err := svc.CreateSubject(ctx, "ravi@college.edu", "CS301", "Compilers")
	require.NoError(t, err)

	day := time.Date(2024, 3, 8, 9, 30, 0, 0, time.UTC)
	rec, err := svc.MarkAttendance(ctx, "ravi@college.edu", "asha@college.edu", subject.ID, day, Present)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), rec.Date, "date is stored at day precision")

	// Same (student, subject, date) key can only be marked once.
	evening := time.Date(2024, 3, 8, 17, 0, 0, 0, time.UTC)
	_, err = svc.MarkAttendance(ctx, "ravi@college.edu", "asha@college.edu", subject.ID, evening, Absent)
	assert.True(t, IsConflict(err))

	// Another faculty member cannot mark someone else's subject.
	_, err = svc.MarkAttendance(ctx, "mechfac@college.edu", "asha@college.edu", subject.ID, day.AddDate(0, 0, 1), Present)
	assert.True(t, IsUnauthorized(err))

	_, err = svc.MarkAttendance(ctx, "ravi@college.edu", "asha@college.edu", subject.ID, day.AddDate(0, 0, 1), "Late")
	assert.True(t, IsInvalid(err))
}

func TestApprovalQueueStatusFilter(t *testing.T) {
	store := newMemStore()
	seedFaculty(store, "ravi@college.edu", "CSE")
	svc := newTestService(store, nil)

	_, err := svc.ApprovalQueue(context.Background(), "ravi@college.edu", "archived", 1, 10)
	assert.True(t, IsInvalid(err))
}

func TestStudentProfileAccess(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedStudent(store, "zara@college.edu", "CSE")
	seedFaculty(store, "ravi@college.edu", "CSE")
	seedFaculty(store, "mechfac@college.edu", "MECH")
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.StudentProfile(ctx, Identity{Role: RoleStudent, Email: "asha@college.edu"}, "asha@college.edu")
	assert.NoError(t, err)

	_, err = svc.StudentProfile(ctx, Identity{Role: RoleStudent, Email: "asha@college.edu"}, "zara@college.edu")
	assert.True(t, IsUnauthorized(err), "students may only view their own profile")

	_, err = svc.StudentProfile(ctx, Identity{Role: RoleFaculty, Email: "ravi@college.edu"}, "asha@college.edu")
	assert.NoError(t, err)

	_, err = svc.StudentProfile(ctx, Identity{Role: RoleFaculty, Email: "mechfac@college.edu"}, "asha@college.edu")
	assert.True(t, IsUnauthorized(err), "faculty are scoped to their own department")
}

func TestStudentProfileFiltersUnapproved(t *testing.T) {
	store := newMemStore()
	seedStudent(store, "asha@college.edu", "CSE")
	seedSubmission(store, Submission{ID: "c1", Kind: KindCertificate, OwnerEmail: "asha@college.edu", Title: "Approved cert", Status: StatusApproved, Credit: 20, SubmittedAt: testClock})
	seedSubmission(store, Submission{ID: "c2", Kind: KindCertificate, OwnerEmail: "asha@college.edu", Title: "Pending cert", SubmittedAt: testClock})
	seedSubmission(store, Submission{ID: "a1", Kind: KindActivity, OwnerEmail: "asha@college.edu", Title: "Pending activity", ActivityType: "Sports", SubmittedAt: testClock})
	svc := newTestService(store, nil)

	p, err := svc.StudentProfile(context.Background(), Identity{Role: RoleStudent, Email: "asha@college.edu"}, "asha@college.edu")
	require.NoError(t, err)

	// Certificates and projects show approved rows only; the activity
	// timeline shows everything.
	require.Len(t, p.Certificates, 1)
	assert.Equal(t, "Approved cert", p.Certificates[0].Title)
	assert.Len(t, p.Activities, 1)
	assert.Equal(t, "AV", p.Initials)
}
