package hub

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository is the Postgres-backed Store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// isUniqueViolation reports whether err is a Postgres unique constraint
// failure (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

//
// Students & faculty
//

const studentCols = `email, first_name, COALESCE(last_name, ''), roll_no, COALESCE(contact, ''),
	branch, COALESCE(degree, ''), COALESCE(college, ''), COALESCE(linkedin_url, ''),
	COALESCE(github_url, ''), password_hash, registered_at`

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var s Student
	err := row.Scan(&s.Email, &s.FirstName, &s.LastName, &s.RollNo, &s.Contact,
		&s.Branch, &s.Degree, &s.College, &s.LinkedinURL, &s.GithubURL,
		&s.PasswordHash, &s.RegisteredAt)
	return s, err
}

// CreateStudent inserts a student; a duplicate email conflicts.
func (r *Repository) CreateStudent(ctx context.Context, s Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (email, first_name, last_name, roll_no, contact, branch, degree, college,
			linkedin_url, github_url, password_hash, registered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, s.Email, s.FirstName, s.LastName, s.RollNo, s.Contact, s.Branch, s.Degree, s.College,
		s.LinkedinURL, s.GithubURL, s.PasswordHash, s.RegisteredAt)
	if isUniqueViolation(err) {
		return Conflictf("email %s is already registered", s.Email)
	}
	return err
}

// GetStudent returns the student with the given email.
func (r *Repository) GetStudent(ctx context.Context, email string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE email = $1`, email)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, NotFoundf("student %s not found", email)
	}
	return s, err
}

// ListStudents returns every student ordered by email.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	return r.listStudents(ctx, `SELECT `+studentCols+` FROM students ORDER BY email`)
}

// ListStudentsByBranch returns students of one branch ordered by email.
func (r *Repository) ListStudentsByBranch(ctx context.Context, branch string) ([]Student, error) {
	return r.listStudents(ctx, `SELECT `+studentCols+` FROM students WHERE branch = $1 ORDER BY email`, branch)
}

func (r *Repository) listStudents(ctx context.Context, query string, args ...any) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateFaculty inserts a faculty member; a duplicate email conflicts.
func (r *Repository) CreateFaculty(ctx context.Context, f Faculty) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO faculty (email, first_name, last_name, contact, department, college, password_hash, registered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, f.Email, f.FirstName, f.LastName, f.Contact, f.Department, f.College, f.PasswordHash, f.RegisteredAt)
	if isUniqueViolation(err) {
		return Conflictf("email %s is already registered", f.Email)
	}
	return err
}

// GetFaculty returns the faculty member with the given email.
func (r *Repository) GetFaculty(ctx context.Context, email string) (Faculty, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT email, first_name, COALESCE(last_name, ''), COALESCE(contact, ''), department,
			COALESCE(college, ''), password_hash, registered_at
		FROM faculty WHERE email = $1
	`, email)
	var f Faculty
	err := row.Scan(&f.Email, &f.FirstName, &f.LastName, &f.Contact, &f.Department,
		&f.College, &f.PasswordHash, &f.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Faculty{}, NotFoundf("faculty %s not found", email)
	}
	return f, err
}

//
// Submissions
//

const submissionCols = `id, kind, owner_email, title, COALESCE(organization, ''), COALESCE(subject, ''),
	COALESCE(activity_type, ''), COALESCE(evidence_url, ''), occurred_on, submitted_at, status, credit,
	remark, decided_at`

func scanSubmission(row interface{ Scan(...any) error }) (Submission, error) {
	var s Submission
	var occurred, decided sql.NullTime
	err := row.Scan(&s.ID, &s.Kind, &s.OwnerEmail, &s.Title, &s.Organization, &s.Subject,
		&s.ActivityType, &s.EvidenceURL, &occurred, &s.SubmittedAt, &s.Status, &s.Credit,
		&s.Remark, &decided)
	if occurred.Valid {
		t := occurred.Time
		s.OccurredOn = &t
	}
	if decided.Valid {
		t := decided.Time
		s.DecidedAt = &t
	}
	return s, err
}

// InsertSubmission writes a new submission row.
func (r *Repository) InsertSubmission(ctx context.Context, sub Submission) (Submission, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (id, kind, owner_email, title, organization, subject, activity_type,
			evidence_url, occurred_on, submitted_at, status, credit, remark)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, sub.ID, sub.Kind, sub.OwnerEmail, sub.Title, sub.Organization, sub.Subject, sub.ActivityType,
		sub.EvidenceURL, sub.OccurredOn, sub.SubmittedAt, sub.Status, sub.Credit, sub.Remark)
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// GetSubmission returns a single submission by id.
func (r *Repository) GetSubmission(ctx context.Context, id string) (Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM submissions WHERE id = $1`, id)
	s, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, NotFoundf("submission %s not found", id)
	}
	return s, err
}

// ListSubmissionsByOwner returns every submission owned by the student.
func (r *Repository) ListSubmissionsByOwner(ctx context.Context, email string) ([]Submission, error) {
	return r.listSubmissions(ctx, `
		SELECT `+submissionCols+` FROM submissions
		WHERE owner_email = $1
		ORDER BY submitted_at DESC
	`, email)
}

// ListSubmissionsByBranch returns submissions owned by students of the
// branch, optionally filtered to one status.
func (r *Repository) ListSubmissionsByBranch(ctx context.Context, branch string, status Status) ([]Submission, error) {
	if status == "" {
		return r.listSubmissions(ctx, `
			SELECT `+subCols("s")+` FROM submissions s
			JOIN students st ON st.email = s.owner_email
			WHERE st.branch = $1
			ORDER BY s.submitted_at DESC
		`, branch)
	}
	return r.listSubmissions(ctx, `
		SELECT `+subCols("s")+` FROM submissions s
		JOIN students st ON st.email = s.owner_email
		WHERE st.branch = $1 AND s.status = $2
		ORDER BY s.submitted_at DESC
	`, branch, status)
}

func subCols(alias string) string {
	return alias + `.id, ` + alias + `.kind, ` + alias + `.owner_email, ` + alias + `.title,
		COALESCE(` + alias + `.organization, ''), COALESCE(` + alias + `.subject, ''),
		COALESCE(` + alias + `.activity_type, ''), COALESCE(` + alias + `.evidence_url, ''),
		` + alias + `.occurred_on, ` + alias + `.submitted_at, ` + alias + `.status,
		` + alias + `.credit, ` + alias + `.remark, ` + alias + `.decided_at`
}

func (r *Repository) listSubmissions(ctx context.Context, query string, args ...any) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DecideSubmission applies the decision only if the row is still pending.
// The status check and the update are one statement, so concurrent
// decisions on the same submission serialize: exactly one sees a row.
func (r *Repository) DecideSubmission(ctx context.Context, id string, to Status, credit int, remark string, decidedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE submissions
		SET status = $2, credit = $3, remark = $4, decided_at = $5
		WHERE id = $1 AND status = 'pending'
	`, id, to, credit, remark, decidedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ApprovedCreditTotals sums approved credit per student email.
func (r *Repository) ApprovedCreditTotals(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT owner_email, COALESCE(SUM(credit), 0)
		FROM submissions
		WHERE status = 'approved'
		GROUP BY owner_email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := map[string]int{}
	for rows.Next() {
		var email string
		var total int
		if err := rows.Scan(&email, &total); err != nil {
			return nil, err
		}
		totals[email] = total
	}
	return totals, rows.Err()
}

//
// Results
//

// InsertResult appends one semester result; a duplicate (student,
// semester) pair conflicts.
func (r *Repository) InsertResult(ctx context.Context, res Result) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO results (id, student_email, semester, sgpa, cgpa, document_url, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, res.ID, res.StudentEmail, res.Semester, res.SGPA, res.CGPA, res.DocumentURL, res.CreatedAt)
	if isUniqueViolation(err) {
		return Conflictf("a result for semester %d already exists", res.Semester)
	}
	return err
}

// ListResults returns a student's results, newest semester first.
func (r *Repository) ListResults(ctx context.Context, email string) ([]Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_email, semester, sgpa, cgpa, COALESCE(document_url, ''), created_at
		FROM results
		WHERE student_email = $1
		ORDER BY semester DESC
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Result
	for rows.Next() {
		var res Result
		if err := rows.Scan(&res.ID, &res.StudentEmail, &res.Semester, &res.SGPA, &res.CGPA,
			&res.DocumentURL, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

//
// Subjects & attendance
//

// CreateSubject writes a course row.
func (r *Repository) CreateSubject(ctx context.Context, s Subject) (Subject, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subjects (id, code, name, faculty_email)
		VALUES ($1,$2,$3,$4)
	`, s.ID, s.Code, s.Name, s.FacultyEmail)
	if err != nil {
		return Subject{}, err
	}
	return s, nil
}

// GetSubject returns one subject by id.
func (r *Repository) GetSubject(ctx context.Context, id string) (Subject, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, code, name, faculty_email FROM subjects WHERE id = $1`, id)
	var s Subject
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.FacultyEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, NotFoundf("subject %s not found", id)
	}
	return s, err
}

// ListSubjects returns every subject ordered by code.
func (r *Repository) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code, name, faculty_email FROM subjects ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.FacultyEmail); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertAttendance writes one presence mark. The (student, subject, date)
// uniqueness constraint turns a duplicate into a conflict, never a
// silent overwrite.
func (r *Repository) InsertAttendance(ctx context.Context, rec AttendanceRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, student_email, subject_id, on_date, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, rec.ID, rec.StudentEmail, rec.SubjectID, rec.Date, rec.Status, rec.CreatedAt)
	if isUniqueViolation(err) {
		return Conflictf("attendance for %s on %s is already recorded", rec.StudentEmail, rec.Date.Format("2006-01-02"))
	}
	return err
}

// ListAttendance returns a student's attendance records, newest first.
func (r *Repository) ListAttendance(ctx context.Context, email string) ([]AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_email, subject_id, on_date, status, created_at
		FROM attendance_records
		WHERE student_email = $1
		ORDER BY on_date DESC
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AttendanceRecord
	for rows.Next() {
		var rec AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.StudentEmail, &rec.SubjectID, &rec.Date, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
