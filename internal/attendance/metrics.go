package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	marksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bioattend_marks_total",
		Help: "Attendance mark attempts by result code.",
	}, []string{"result"})

	enrollmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bioattend_enrollments_total",
		Help: "Identity registrations by result code.",
	}, []string{"result"})

	absenteesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bioattend_absentees_total",
		Help: "Absentees found at session close, by notification outcome.",
	}, []string{"delivered"})
)

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return CodeOf(err)
}
