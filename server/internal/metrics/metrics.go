// Package metrics 面试流程的 Prometheus 指标。所有方法对 nil 接收者安全。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "casecoach"

// Recorder 汇总流程指标。
type Recorder struct {
	interviewsStarted    prometheus.Counter
	interviewsCompleted  prometheus.Counter
	turns                *prometheus.CounterVec
	stageCompletions     *prometheus.CounterVec
	evaluations          *prometheus.CounterVec
	collaboratorFailures *prometheus.CounterVec
	reportFallbacks      prometheus.Counter
	guardDecisions       *prometheus.CounterVec
}

// New 创建并注册指标；reg 为 nil 时只创建不注册（测试用）。
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		interviewsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "interviews_started_total",
			Help: "Interviews whose opening prompt was delivered.",
		}),
		interviewsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "interviews_completed_total",
			Help: "Interviews that reached the end of the stage catalog.",
		}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "turns_total",
			Help: "Interviewer turns logged, by stage and action.",
		}, []string{"stage", "action"}),
		stageCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stage_completions_total",
			Help: "Completed stages.",
		}, []string{"stage"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "evaluations_recorded_total",
			Help: "Evaluation records appended to sessions.",
		}, []string{"stage"}),
		collaboratorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "collaborator_failures_total",
			Help: "Unrecovered collaborator failures.",
		}, []string{"collaborator"}),
		reportFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "report_fallbacks_total",
			Help: "Reports built without the narrative collaborator.",
		}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "guard_decisions_total",
			Help: "Which guard decided whether to ask again.",
		}, []string{"guard"}),
	}
	if reg != nil {
		reg.MustRegister(
			r.interviewsStarted, r.interviewsCompleted, r.turns, r.stageCompletions,
			r.evaluations, r.collaboratorFailures, r.reportFallbacks, r.guardDecisions,
		)
	}
	return r
}

func (r *Recorder) InterviewStarted() {
	if r != nil {
		r.interviewsStarted.Inc()
	}
}

func (r *Recorder) InterviewCompleted() {
	if r != nil {
		r.interviewsCompleted.Inc()
	}
}

func (r *Recorder) Turn(stage, action string) {
	if r != nil {
		r.turns.WithLabelValues(stage, action).Inc()
	}
}

func (r *Recorder) StageCompleted(stage string) {
	if r != nil {
		r.stageCompletions.WithLabelValues(stage).Inc()
	}
}

func (r *Recorder) EvaluationRecorded(stage string) {
	if r != nil {
		r.evaluations.WithLabelValues(stage).Inc()
	}
}

func (r *Recorder) CollaboratorFailed(name string) {
	if r != nil {
		r.collaboratorFailures.WithLabelValues(name).Inc()
	}
}

func (r *Recorder) ReportFallback() {
	if r != nil {
		r.reportFallbacks.Inc()
	}
}

func (r *Recorder) GuardDecision(guard string) {
	if r != nil {
		r.guardDecisions.WithLabelValues(guard).Inc()
	}
}
