package hub

import (
	"context"
	"time"
)

// Store is the persistence contract the service runs on. The Postgres
// implementation lives in repo.go; tests use an in-memory fake.
type Store interface {
	CreateStudent(ctx context.Context, s Student) error
	GetStudent(ctx context.Context, email string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	ListStudentsByBranch(ctx context.Context, branch string) ([]Student, error)

	CreateFaculty(ctx context.Context, f Faculty) error
	GetFaculty(ctx context.Context, email string) (Faculty, error)

	InsertSubmission(ctx context.Context, sub Submission) (Submission, error)
	GetSubmission(ctx context.Context, id string) (Submission, error)
	ListSubmissionsByOwner(ctx context.Context, email string) ([]Submission, error)
	// ListSubmissionsByBranch returns submissions owned by students of the
	// branch, optionally narrowed to one status ("" means all).
	ListSubmissionsByBranch(ctx context.Context, branch string, status Status) ([]Submission, error)
	// DecideSubmission applies the pending -> to transition as a
	// compare-and-set on status. It reports false when no pending row
	// matched, leaving any prior decision untouched.
	DecideSubmission(ctx context.Context, id string, to Status, credit int, remark string, decidedAt time.Time) (bool, error)
	// ApprovedCreditTotals returns the summed approved credit per student
	// email. Students with no approved submissions are absent from the map.
	ApprovedCreditTotals(ctx context.Context) (map[string]int, error)

	InsertResult(ctx context.Context, r Result) error
	ListResults(ctx context.Context, email string) ([]Result, error)

	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	GetSubject(ctx context.Context, id string) (Subject, error)
	ListSubjects(ctx context.Context) ([]Subject, error)

	InsertAttendance(ctx context.Context, rec AttendanceRecord) error
	ListAttendance(ctx context.Context, email string) ([]AttendanceRecord, error)
}

// LeaderboardCache holds a recently computed class ranking so the
// scoreboard does not recompute totals on every request. Implementations
// may drop entries at any time; a miss is never an error.
type LeaderboardCache interface {
	Get(ctx context.Context) ([]RankEntry, bool)
	Set(ctx context.Context, entries []RankEntry)
	Invalidate(ctx context.Context)
}
