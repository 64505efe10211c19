package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exported on /metrics.
var (
	SubmissionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studenthub_submissions_created_total",
		Help: "Submissions created, by kind.",
	}, []string{"kind"})

	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studenthub_decisions_total",
		Help: "Review decisions applied, by action.",
	}, []string{"action"})

	AttendanceMarks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studenthub_attendance_marks_total",
		Help: "Attendance records written.",
	})
)
