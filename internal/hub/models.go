package hub

import "time"

// SubmissionKind discriminates the three credit-bearing record kinds.
type SubmissionKind string

const (
	KindCertificate SubmissionKind = "certificate"
	KindProject     SubmissionKind = "project"
	KindActivity    SubmissionKind = "activity"
)

// Kinds lists every submission kind in display order.
var Kinds = []SubmissionKind{KindCertificate, KindProject, KindActivity}

// Status is the approval lifecycle state of a submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// AttendanceStatus marks a student present or absent for one class.
type AttendanceStatus string

const (
	Present AttendanceStatus = "Present"
	Absent  AttendanceStatus = "Absent"
)

// Student is identified by email; the email never changes once created.
type Student struct {
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	RollNo       string    `json:"roll_no"`
	Contact      string    `json:"contact,omitempty"`
	Branch       string    `json:"branch"`
	Degree       string    `json:"degree,omitempty"`
	College      string    `json:"college,omitempty"`
	LinkedinURL  string    `json:"linkedin_url,omitempty"`
	GithubURL    string    `json:"github_url,omitempty"`
	PasswordHash string    `json:"-"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Faculty reviews submissions owned by students of its department.
type Faculty struct {
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Contact      string    `json:"contact,omitempty"`
	Department   string    `json:"department"`
	College      string    `json:"college,omitempty"`
	PasswordHash string    `json:"-"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Submission is a certificate, project, or activity owned by one student.
// Kind-specific fields are empty for the kinds that do not use them.
// Credit is meaningful only while Status is approved.
type Submission struct {
	ID           string         `json:"id"`
	Kind         SubmissionKind `json:"kind"`
	OwnerEmail   string         `json:"owner_email"`
	Title        string         `json:"title"`
	Organization string         `json:"organization,omitempty"`
	Subject      string         `json:"subject,omitempty"`
	ActivityType string         `json:"activity_type,omitempty"`
	EvidenceURL  string         `json:"evidence_url,omitempty"`
	OccurredOn   *time.Time     `json:"occurred_on,omitempty"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	Status       Status         `json:"status"`
	Credit       int            `json:"credit"`
	Remark       string         `json:"remark,omitempty"`
	DecidedAt    *time.Time     `json:"decided_at,omitempty"`
}

// Result is one semester's academic result for a student. The latest
// result is the row with the highest semester number.
type Result struct {
	ID           string    `json:"id"`
	StudentEmail string    `json:"student_email"`
	Semester     int       `json:"semester"`
	SGPA         float64   `json:"sgpa"`
	CGPA         float64   `json:"cgpa"`
	DocumentURL  string    `json:"document_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subject is a course owned by one faculty member.
type Subject struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	FacultyEmail string `json:"faculty_email"`
}

// AttendanceRecord is one (student, subject, date) presence mark.
// At most one record may exist per key; the store rejects duplicates.
type AttendanceRecord struct {
	ID           string           `json:"id"`
	StudentEmail string           `json:"student_email"`
	SubjectID    string           `json:"subject_id"`
	Date         time.Time        `json:"date"`
	Status       AttendanceStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}
