package hub

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Roles carried by authenticated callers.
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
)

// Identity is the resolved caller passed explicitly into operations that
// authorize across roles. There is no ambient "current user" state.
type Identity struct {
	Role  string
	Email string
}

// Service owns the submission lifecycle and every aggregate derived from
// it. All operations are synchronous and return typed errors.
type Service struct {
	store Store
	cache LeaderboardCache
	now   func() time.Time
}

// NewService creates a service on the given store. cache may be nil, in
// which case every leaderboard request recomputes totals.
func NewService(store Store, cache LeaderboardCache) *Service {
	return &Service{store: store, cache: cache, now: time.Now}
}

//
// Identity & registration
//

// RegisterStudent creates a student account with a bcrypt password hash.
func (s *Service) RegisterStudent(ctx context.Context, st Student, password string) (Student, error) {
	if err := validEmail(st.Email); err != nil {
		return Student{}, err
	}
	if st.FirstName == "" {
		return Student{}, Invalidf("first name is required")
	}
	if st.Branch == "" {
		return Student{}, Invalidf("branch is required")
	}
	if st.RollNo == "" {
		return Student{}, Invalidf("roll number is required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return Student{}, err
	}
	st.PasswordHash = hash
	st.RegisteredAt = s.now().UTC()
	if err := s.store.CreateStudent(ctx, st); err != nil {
		return Student{}, err
	}
	return st, nil
}

// RegisterFaculty creates a faculty account.
func (s *Service) RegisterFaculty(ctx context.Context, f Faculty, password string) (Faculty, error) {
	if err := validEmail(f.Email); err != nil {
		return Faculty{}, err
	}
	if f.FirstName == "" {
		return Faculty{}, Invalidf("first name is required")
	}
	if f.Department == "" {
		return Faculty{}, Invalidf("department is required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return Faculty{}, err
	}
	f.PasswordHash = hash
	f.RegisteredAt = s.now().UTC()
	if err := s.store.CreateFaculty(ctx, f); err != nil {
		return Faculty{}, err
	}
	return f, nil
}

// AuthenticateStudent checks credentials and returns the student.
func (s *Service) AuthenticateStudent(ctx context.Context, email, password string) (Student, error) {
	st, err := s.store.GetStudent(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return Student{}, Unauthorizedf("invalid email or password")
		}
		return Student{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)) != nil {
		return Student{}, Unauthorizedf("invalid email or password")
	}
	return st, nil
}

// AuthenticateFaculty checks credentials and returns the faculty member.
func (s *Service) AuthenticateFaculty(ctx context.Context, email, password string) (Faculty, error) {
	f, err := s.store.GetFaculty(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return Faculty{}, Unauthorizedf("invalid email or password")
		}
		return Faculty{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(f.PasswordHash), []byte(password)) != nil {
		return Faculty{}, Unauthorizedf("invalid email or password")
	}
	return f, nil
}

func validEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return Invalidf("a valid email is required")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", Invalidf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

//
// Submissions
//

// SubmissionInput is the student-provided part of a new submission.
type SubmissionInput struct {
	Kind         SubmissionKind `json:"kind"`
	Title        string         `json:"title"`
	Organization string         `json:"organization"`
	Subject      string         `json:"subject"`
	ActivityType string         `json:"activity_type"`
	EvidenceURL  string         `json:"evidence_url"`
	OccurredOn   *time.Time     `json:"occurred_on"`
}

// Submit records a new pending submission for the owning student. The
// submission timestamp is set here, once, and never mutated afterwards.
func (s *Service) Submit(ctx context.Context, ownerEmail string, in SubmissionInput) (Submission, error) {
	if _, err := s.store.GetStudent(ctx, ownerEmail); err != nil {
		return Submission{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return Submission{}, Invalidf("title is required")
	}
	switch in.Kind {
	case KindCertificate:
		if in.Organization == "" {
			return Submission{}, Invalidf("issuing organization is required for a certificate")
		}
		if in.OccurredOn == nil {
			return Submission{}, Invalidf("issue date is required for a certificate")
		}
	case KindProject:
		if in.Subject == "" {
			return Submission{}, Invalidf("subject is required for a project")
		}
	case KindActivity:
		if in.ActivityType == "" {
			return Submission{}, Invalidf("activity type is required")
		}
	default:
		return Submission{}, Invalidf("unknown submission kind %q", in.Kind)
	}
	sub := Submission{
		ID:           uuid.NewString(),
		Kind:         in.Kind,
		OwnerEmail:   ownerEmail,
		Title:        strings.TrimSpace(in.Title),
		Organization: in.Organization,
		Subject:      in.Subject,
		ActivityType: in.ActivityType,
		EvidenceURL:  in.EvidenceURL,
		OccurredOn:   in.OccurredOn,
		SubmittedAt:  s.now().UTC(),
		Status:       StatusPending,
		Credit:       0,
	}
	return s.store.InsertSubmission(ctx, sub)
}

// DecisionAction is what a reviewer does with a pending submission.
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
)

// Decision carries a reviewer's verdict. Credit must be present and
// non-negative for approvals; Remark must be non-empty for rejections.
type Decision struct {
	Action DecisionAction `json:"action"`
	Credit *int           `json:"credit"`
	Remark string         `json:"remark"`
}

// Decide moves a pending submission to approved or rejected. The reviewer
// must be a faculty member of the owning student's branch. Terminal states
// are immutable: a second decision on the same submission fails with a
// conflict and leaves the first decision untouched. The transition is
// applied as a compare-and-set on status so concurrent reviews of the
// same submission cannot both win.
func (s *Service) Decide(ctx context.Context, reviewerEmail, submissionID string, d Decision) (Submission, error) {
	reviewer, err := s.store.GetFaculty(ctx, reviewerEmail)
	if err != nil {
		return Submission{}, err
	}
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	owner, err := s.store.GetStudent(ctx, sub.OwnerEmail)
	if err != nil {
		return Submission{}, err
	}
	if owner.Branch != reviewer.Department {
		return Submission{}, Unauthorizedf("submission belongs to the %s department", owner.Branch)
	}
	if sub.Status != StatusPending {
		return Submission{}, Conflictf("submission already %s", sub.Status)
	}

	var to Status
	credit := 0
	remark := strings.TrimSpace(d.Remark)
	switch d.Action {
	case ActionApprove:
		if d.Credit == nil {
			return Submission{}, Invalidf("credit is required to approve")
		}
		if *d.Credit < 0 {
			return Submission{}, Invalidf("credit must be a non-negative integer")
		}
		to = StatusApproved
		credit = *d.Credit
	case ActionReject:
		if remark == "" {
			return Submission{}, Invalidf("a remark is required to reject")
		}
		// Rejection always zeroes credit, whatever the caller sent.
		to = StatusRejected
	default:
		return Submission{}, Invalidf("unknown action %q", d.Action)
	}

	decidedAt := s.now().UTC()
	ok, err := s.store.DecideSubmission(ctx, submissionID, to, credit, remark, decidedAt)
	if err != nil {
		return Submission{}, err
	}
	if !ok {
		// Another reviewer decided between our read and the update.
		return Submission{}, Conflictf("submission is no longer pending")
	}
	if to == StatusApproved && s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	sub.Status = to
	sub.Credit = credit
	sub.Remark = remark
	sub.DecidedAt = &decidedAt
	return sub, nil
}

//
// Per-student aggregation
//

// AggregateStudent derives the credit/activity/grade/attendance view for
// one student across all three submission kinds.
func (s *Service) AggregateStudent(ctx context.Context, email string) (StudentAggregate, error) {
	if _, err := s.store.GetStudent(ctx, email); err != nil {
		return StudentAggregate{}, err
	}
	subs, err := s.store.ListSubmissionsByOwner(ctx, email)
	if err != nil {
		return StudentAggregate{}, err
	}
	agg := Aggregate(subs)
	records, err := s.store.ListAttendance(ctx, email)
	if err != nil {
		return StudentAggregate{}, err
	}
	agg.AttendancePercent = SummarizeAttendance(records).Percent
	return agg, nil
}

// DashboardStats feeds the student landing page.
type DashboardStats struct {
	TotalCredits       int        `json:"total_credits"`
	CompletedCount     int        `json:"completed_count"`
	PendingCount       int        `json:"pending_count"`
	CertificatesEarned int        `json:"certificates_earned"`
	Recent             []FeedItem `json:"recent"`
}

// Dashboard summarises a student's submissions for the landing page.
func (s *Service) Dashboard(ctx context.Context, email string) (DashboardStats, error) {
	subs, err := s.ownedSubmissions(ctx, email)
	if err != nil {
		return DashboardStats{}, err
	}
	stats := DashboardStats{}
	for _, sub := range subs {
		switch sub.Status {
		case StatusApproved:
			stats.TotalCredits += sub.Credit
			stats.CompletedCount++
			if sub.Kind == KindCertificate {
				stats.CertificatesEarned++
			}
		case StatusPending:
			stats.PendingCount++
		}
	}
	feed := MergeFeed(ByOccurrence, subs)
	if len(feed) > 3 {
		feed = feed[:3]
	}
	stats.Recent = feed
	return stats, nil
}

// ActivityFeed is the student's unified submission list, every kind and
// status, newest occurrence first.
func (s *Service) ActivityFeed(ctx context.Context, email string) ([]FeedItem, error) {
	subs, err := s.ownedSubmissions(ctx, email)
	if err != nil {
		return nil, err
	}
	certs, projects, activities := splitByKind(subs)
	return MergeFeed(ByOccurrence, certs, projects, activities), nil
}

func (s *Service) ownedSubmissions(ctx context.Context, email string) ([]Submission, error) {
	if _, err := s.store.GetStudent(ctx, email); err != nil {
		return nil, err
	}
	return s.store.ListSubmissionsByOwner(ctx, email)
}

func splitByKind(subs []Submission) (certs, projects, activities []Submission) {
	for _, s := range subs {
		switch s.Kind {
		case KindCertificate:
			certs = append(certs, s)
		case KindProject:
			projects = append(projects, s)
		case KindActivity:
			activities = append(activities, s)
		}
	}
	return
}

//
// Class ranking & scoreboard
//

// Leaderboard ranks every student by approved credit total. The result
// may come from the cache; a concurrent in-flight decision makes the
// ranking eventually consistent, which is acceptable.
func (s *Service) Leaderboard(ctx context.Context) (ClassRank, error) {
	if s.cache != nil {
		if entries, ok := s.cache.Get(ctx); ok {
			return rebuildRank(entries), nil
		}
	}
	cr, err := s.computeLeaderboard(ctx)
	if err != nil {
		return ClassRank{}, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, cr.Entries)
	}
	return cr, nil
}

// RefreshLeaderboard recomputes the ranking and replaces the cached copy.
// The worker calls this after every approval.
func (s *Service) RefreshLeaderboard(ctx context.Context) (ClassRank, error) {
	cr, err := s.computeLeaderboard(ctx)
	if err != nil {
		return ClassRank{}, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, cr.Entries)
	}
	return cr, nil
}

func (s *Service) computeLeaderboard(ctx context.Context) (ClassRank, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return ClassRank{}, err
	}
	totals, err := s.store.ApprovedCreditTotals(ctx)
	if err != nil {
		return ClassRank{}, err
	}
	return RankStudents(students, totals), nil
}

func rebuildRank(entries []RankEntry) ClassRank {
	sum := 0
	for _, e := range entries {
		sum += e.TotalCredits
	}
	avg := 0.0
	if len(entries) > 0 {
		avg = float64(sum) / float64(len(entries))
	}
	return ClassRank{Entries: entries, TotalStudents: len(entries), AverageCredit: avg}
}

// Scoreboard is the student's standing page: personal aggregates, class
// position, per-kind cards, latest result, and attendance.
type Scoreboard struct {
	Aggregate     StudentAggregate  `json:"aggregate"`
	ClassRank     int               `json:"class_rank"`
	TotalStudents int               `json:"total_students"`
	ClassAverage  float64           `json:"class_average"`
	TopPercent    float64           `json:"top_percent"`
	Cards         []KindStats       `json:"cards"`
	LatestSGPA    float64           `json:"latest_sgpa"`
	LatestCGPA    float64           `json:"latest_cgpa"`
	Attendance    AttendanceSummary `json:"attendance"`
}

// BuildScoreboard assembles the scoreboard for one student.
func (s *Service) BuildScoreboard(ctx context.Context, email string) (Scoreboard, error) {
	subs, err := s.ownedSubmissions(ctx, email)
	if err != nil {
		return Scoreboard{}, err
	}
	records, err := s.store.ListAttendance(ctx, email)
	if err != nil {
		return Scoreboard{}, err
	}
	rank, err := s.Leaderboard(ctx)
	if err != nil {
		return Scoreboard{}, err
	}
	if rank.RankOf(email) == 0 {
		// The cached ranking predates this student's registration.
		rank, err = s.RefreshLeaderboard(ctx)
		if err != nil {
			return Scoreboard{}, err
		}
	}
	results, err := s.store.ListResults(ctx, email)
	if err != nil {
		return Scoreboard{}, err
	}

	agg := Aggregate(subs)
	att := SummarizeAttendance(records)
	agg.AttendancePercent = att.Percent
	board := Scoreboard{
		Aggregate:     agg,
		ClassRank:     rank.RankOf(email),
		TotalStudents: rank.TotalStudents,
		ClassAverage:  rank.AverageCredit,
		Cards:         KindBreakdown(subs),
		Attendance:    att,
	}
	board.TopPercent = TopPercent(board.ClassRank, board.TotalStudents)
	if len(results) > 0 {
		// ListResults returns newest semester first.
		board.LatestSGPA = results[0].SGPA
		board.LatestCGPA = results[0].CGPA
	}
	return board, nil
}

//
// Faculty views
//

// FacultyDashboard summarises the reviewer's department.
type FacultyDashboard struct {
	PendingCount    int        `json:"pending_count"`
	VerifiedCount   int        `json:"verified_count"`
	StudentCount    int        `json:"student_count"`
	StaleAlertCount int        `json:"stale_alert_count"`
	Recent          []FeedItem `json:"recent"`
}

// BuildFacultyDashboard counts department submissions by status and lists
// the five most recent ones. Pending items whose occurrence date is more
// than two days old count as stale alerts.
func (s *Service) BuildFacultyDashboard(ctx context.Context, facultyEmail string) (FacultyDashboard, error) {
	f, err := s.store.GetFaculty(ctx, facultyEmail)
	if err != nil {
		return FacultyDashboard{}, err
	}
	subs, err := s.store.ListSubmissionsByBranch(ctx, f.Department, "")
	if err != nil {
		return FacultyDashboard{}, err
	}
	students, err := s.store.ListStudentsByBranch(ctx, f.Department)
	if err != nil {
		return FacultyDashboard{}, err
	}
	cutoff := s.now().UTC().AddDate(0, 0, -2)
	dash := FacultyDashboard{StudentCount: len(students)}
	for _, sub := range subs {
		switch sub.Status {
		case StatusPending:
			dash.PendingCount++
			if sub.OccurredOn != nil && sub.OccurredOn.Before(cutoff) {
				dash.StaleAlertCount++
			}
		case StatusApproved:
			dash.VerifiedCount++
		}
	}
	feed := MergeFeed(BySubmitted, subs)
	if len(feed) > 5 {
		feed = feed[:5]
	}
	dash.Recent = feed
	return dash, nil
}

// QueuePage is one page of the faculty approval queue.
type QueuePage struct {
	Items   []FeedItem `json:"items"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
}

// ApprovalQueue lists the reviewer's department submissions, optionally
// filtered by status, newest submission first.
func (s *Service) ApprovalQueue(ctx context.Context, facultyEmail string, status Status, page, perPage int) (QueuePage, error) {
	f, err := s.store.GetFaculty(ctx, facultyEmail)
	if err != nil {
		return QueuePage{}, err
	}
	switch status {
	case "", StatusPending, StatusApproved, StatusRejected:
	default:
		return QueuePage{}, Invalidf("unknown status filter %q", status)
	}
	subs, err := s.store.ListSubmissionsByBranch(ctx, f.Department, status)
	if err != nil {
		return QueuePage{}, err
	}
	feed := MergeFeed(BySubmitted, subs)
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	return QueuePage{
		Items:   Paginate(feed, page, perPage),
		Total:   len(feed),
		Page:    page,
		PerPage: perPage,
	}, nil
}

// RosterEntry is one student row of the faculty's department roster.
type RosterEntry struct {
	Student           Student `json:"student"`
	ApprovedCount     int     `json:"approved_count"`
	TotalCredits      int     `json:"total_credits"`
	AttendancePercent float64 `json:"attendance_percent"`
}

// DepartmentRoster lists every student of the reviewer's department with
// their approved counts, credits, and attendance.
func (s *Service) DepartmentRoster(ctx context.Context, facultyEmail string) ([]RosterEntry, error) {
	f, err := s.store.GetFaculty(ctx, facultyEmail)
	if err != nil {
		return nil, err
	}
	students, err := s.store.ListStudentsByBranch(ctx, f.Department)
	if err != nil {
		return nil, err
	}
	entries := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		subs, err := s.store.ListSubmissionsByOwner(ctx, st.Email)
		if err != nil {
			return nil, err
		}
		records, err := s.store.ListAttendance(ctx, st.Email)
		if err != nil {
			return nil, err
		}
		agg := Aggregate(subs)
		entries = append(entries, RosterEntry{
			Student:           st,
			ApprovedCount:     agg.TotalActivities,
			TotalCredits:      agg.TotalCredits,
			AttendancePercent: SummarizeAttendance(records).Percent,
		})
	}
	return entries, nil
}

//
// Results
//

// AddResult appends one semester result. Results are append-only; a
// second result for the same semester conflicts.
func (s *Service) AddResult(ctx context.Context, email string, semester int, sgpa, cgpa float64, documentURL string) (Result, error) {
	if _, err := s.store.GetStudent(ctx, email); err != nil {
		return Result{}, err
	}
	if semester < 1 {
		return Result{}, Invalidf("semester must be a positive integer")
	}
	if sgpa < 0 || sgpa > 10 || cgpa < 0 || cgpa > 10 {
		return Result{}, Invalidf("sgpa and cgpa must be between 0 and 10")
	}
	r := Result{
		ID:           uuid.NewString(),
		StudentEmail: email,
		Semester:     semester,
		SGPA:         sgpa,
		CGPA:         cgpa,
		DocumentURL:  documentURL,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.InsertResult(ctx, r); err != nil {
		return Result{}, err
	}
	return r, nil
}

// ChartPoint is one bar of the CGPA trend chart, oldest semester first.
type ChartPoint struct {
	Semester  int     `json:"semester"`
	CGPA      float64 `json:"cgpa"`
	BarHeight float64 `json:"bar_height"`
}

// ResultsView is the student result history plus chart data.
type ResultsView struct {
	Results     []Result     `json:"results"`
	CurrentCGPA float64      `json:"current_cgpa"`
	Chart       []ChartPoint `json:"chart"`
}

// ResultHistory returns results newest semester first; the chart series
// runs oldest first with bar height scaled to a percentage.
func (s *Service) ResultHistory(ctx context.Context, email string) (ResultsView, error) {
	if _, err := s.store.GetStudent(ctx, email); err != nil {
		return ResultsView{}, err
	}
	results, err := s.store.ListResults(ctx, email)
	if err != nil {
		return ResultsView{}, err
	}
	view := ResultsView{Results: results}
	if len(results) > 0 {
		view.CurrentCGPA = results[0].CGPA
	}
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		view.Chart = append(view.Chart, ChartPoint{Semester: r.Semester, CGPA: r.CGPA, BarHeight: r.CGPA * 10})
	}
	return view, nil
}

//
// Subjects & attendance
//

// CreateSubject registers a course owned by the faculty member.
func (s *Service) CreateSubject(ctx context.Context, facultyEmail, code, name string) (Subject, error) {
	if _, err := s.store.GetFaculty(ctx, facultyEmail); err != nil {
		return Subject{}, err
	}
	if code == "" || name == "" {
		return Subject{}, Invalidf("subject code and name are required")
	}
	return s.store.CreateSubject(ctx, Subject{
		ID:           uuid.NewString(),
		Code:         code,
		Name:         name,
		FacultyEmail: facultyEmail,
	})
}

// MarkAttendance records one presence mark. Only the subject's owning
// faculty may mark it, and the (student, subject, date) key is unique: a
// second mark for the same key conflicts instead of overwriting.
func (s *Service) MarkAttendance(ctx context.Context, facultyEmail, studentEmail, subjectID string, date time.Time, status AttendanceStatus) (AttendanceRecord, error) {
	if _, err := s.store.GetFaculty(ctx, facultyEmail); err != nil {
		return AttendanceRecord{}, err
	}
	subject, err := s.store.GetSubject(ctx, subjectID)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if subject.FacultyEmail != facultyEmail {
		return AttendanceRecord{}, Unauthorizedf("subject %s is not yours", subject.Code)
	}
	if _, err := s.store.GetStudent(ctx, studentEmail); err != nil {
		return AttendanceRecord{}, err
	}
	if status != Present && status != Absent {
		return AttendanceRecord{}, Invalidf("status must be Present or Absent")
	}
	if date.IsZero() {
		return AttendanceRecord{}, Invalidf("date is required")
	}
	rec := AttendanceRecord{
		ID:           uuid.NewString(),
		StudentEmail: studentEmail,
		SubjectID:    subjectID,
		Date:         date.UTC().Truncate(24 * time.Hour),
		Status:       status,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.InsertAttendance(ctx, rec); err != nil {
		return AttendanceRecord{}, err
	}
	return rec, nil
}

// AttendanceDashboard is the student attendance page.
type AttendanceDashboard struct {
	Summary       AttendanceSummary   `json:"summary"`
	ActiveCourses int                 `json:"active_courses"`
	Subjects      []SubjectAttendance `json:"subjects"`
	Monthly       []MonthlyAttendance `json:"monthly"`
	Recent        []AttendanceRecord  `json:"recent"`
}

// BuildAttendanceDashboard aggregates one student's attendance overall,
// per subject, per month, and over the last seven days.
func (s *Service) BuildAttendanceDashboard(ctx context.Context, email string) (AttendanceDashboard, error) {
	if _, err := s.store.GetStudent(ctx, email); err != nil {
		return AttendanceDashboard{}, err
	}
	records, err := s.store.ListAttendance(ctx, email)
	if err != nil {
		return AttendanceDashboard{}, err
	}
	subjects, err := s.store.ListSubjects(ctx)
	if err != nil {
		return AttendanceDashboard{}, err
	}
	bySubject := AttendanceBySubject(records, subjects)
	dash := AttendanceDashboard{
		Summary:       SummarizeAttendance(records),
		ActiveCourses: len(bySubject),
		Subjects:      bySubject,
		Monthly:       AttendanceByMonth(records),
	}
	weekAgo := s.now().UTC().AddDate(0, 0, -7)
	for _, r := range records {
		if !r.Date.Before(weekAgo) {
			dash.Recent = append(dash.Recent, r)
		}
	}
	return dash, nil
}

//
// Profile
//

// Profile is the JSON profile view consumed by the faculty student pages.
type Profile struct {
	Name         string            `json:"name"`
	Initials     string            `json:"initials"`
	Department   string            `json:"department"`
	Email        string            `json:"email"`
	Contact      string            `json:"contact"`
	College      string            `json:"college"`
	LinkedinURL  string            `json:"linkedin"`
	GithubURL    string            `json:"github"`
	CGPA         float64           `json:"cgpa"`
	Attendance   AttendanceSummary `json:"attendance"`
	Certificates []FeedItem        `json:"certificates"`
	Projects     []FeedItem        `json:"projects"`
	Activities   []FeedItem        `json:"activities"`
}

// StudentProfile builds the profile for a viewer. Students see only their
// own profile; faculty see students of their own department.
func (s *Service) StudentProfile(ctx context.Context, viewer Identity, email string) (Profile, error) {
	st, err := s.store.GetStudent(ctx, email)
	if err != nil {
		return Profile{}, err
	}
	switch viewer.Role {
	case RoleStudent:
		if viewer.Email != email {
			return Profile{}, Unauthorizedf("students may only view their own profile")
		}
	case RoleFaculty:
		f, err := s.store.GetFaculty(ctx, viewer.Email)
		if err != nil {
			return Profile{}, err
		}
		if f.Department != st.Branch {
			return Profile{}, Unauthorizedf("student is outside your department")
		}
	default:
		return Profile{}, Unauthorizedf("unknown role %q", viewer.Role)
	}

	subs, err := s.store.ListSubmissionsByOwner(ctx, email)
	if err != nil {
		return Profile{}, err
	}
	records, err := s.store.ListAttendance(ctx, email)
	if err != nil {
		return Profile{}, err
	}
	results, err := s.store.ListResults(ctx, email)
	if err != nil {
		return Profile{}, err
	}

	certs, projects, activities := splitByKind(subs)
	p := Profile{
		Name:         strings.TrimSpace(st.FirstName + " " + st.LastName),
		Initials:     initials(st.FirstName, st.LastName),
		Department:   st.Branch,
		Email:        st.Email,
		Contact:      st.Contact,
		College:      st.College,
		LinkedinURL:  st.LinkedinURL,
		GithubURL:    st.GithubURL,
		Attendance:   SummarizeAttendance(records),
		Certificates: MergeFeed(ByOccurrence, approvedOnly(certs)),
		Projects:     MergeFeed(ByOccurrence, approvedOnly(projects)),
		Activities:   MergeFeed(ByOccurrence, activities),
	}
	if len(results) > 0 {
		p.CGPA = results[0].CGPA
	}
	return p, nil
}

func approvedOnly(subs []Submission) []Submission {
	out := make([]Submission, 0, len(subs))
	for _, s := range subs {
		if s.Status == StatusApproved {
			out = append(out, s)
		}
	}
	return out
}

func initials(first, last string) string {
	out := ""
	if first != "" {
		out += strings.ToUpper(first[:1])
	}
	if last != "" {
		out += strings.ToUpper(last[:1])
	}
	return out
}
