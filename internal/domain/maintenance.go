package domain

import "time"

type IssueType string

const (
	IssueBrokenLink   IssueType = "broken_link"
	IssueServerError  IssueType = "server_error"
	IssueClientError  IssueType = "client_error"
	IssueUnreachable  IssueType = "unreachable"
	IssueSlowResponse IssueType = "slow_response"
	IssueDatabase     IssueType = "database"
	IssueMemory       IssueType = "memory"
	IssueCheckSkipped IssueType = "check_skipped"
)

type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthDegraded Health = "degraded"
	HealthCritical Health = "critical"
)

// Target est une URL sondée à chaque passage.
// Critical: une erreur réseau sur cette cible est critique (ex: racine du site).
type Target struct {
	Name     string `json:"name" mapstructure:"name"`
	URL      string `json:"url" mapstructure:"url"`
	Critical bool   `json:"critical" mapstructure:"critical"`
}

type CheckResult struct {
	Target     string        `json:"target"`
	URL        string        `json:"url,omitempty"`
	StatusCode int           `json:"statusCode,omitempty"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
	OK         bool          `json:"ok"`
}

type Issue struct {
	ID         string    `json:"id"`
	Type       IssueType `json:"type"`
	Severity   Severity  `json:"severity"`
	Target     string    `json:"target"`
	Message    string    `json:"message"`
	DetectedAt time.Time `json:"detectedAt"`
	AutoFixed  bool      `json:"autoFixed"`
}

type MemorySample struct {
	HeapAllocBytes uint64 `json:"heapAllocBytes"`
	SysBytes       uint64 `json:"sysBytes"`
	NumGC          uint32 `json:"numGc"`
	Goroutines     int    `json:"goroutines"`
}

type MaintenanceReport struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Duration   time.Duration `json:"duration"`
	Checks     []CheckResult `json:"checks"`
	Issues     []Issue       `json:"issues"`
	Fixes      []string      `json:"fixes"`
	Memory     MemorySample  `json:"memory"`
	// Concurrency: plafond et pic de sondes simultanées pendant le passage.
	Concurrency CheckConcurrency `json:"concurrency"`
	Health      Health           `json:"health"`
}

type CheckConcurrency struct {
	Limit   int      `json:"limit"`
	Peak    int      `json:"peak"`
	Waiting int      `json:"waiting,omitempty"`
	Active  []string `json:"active,omitempty"`
}

type MaintenanceSummary struct {
	ID         string           `json:"id"`
	StartedAt  time.Time        `json:"startedAt"`
	Duration   time.Duration    `json:"duration"`
	Health     Health           `json:"health"`
	IssueCount int              `json:"issueCount"`
	BySeverity map[Severity]int `json:"bySeverity"`
}

func (r MaintenanceReport) Summary() MaintenanceSummary {
	by := map[Severity]int{}
	for _, is := range r.Issues {
		by[is.Severity]++
	}
	return MaintenanceSummary{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		Duration:   r.Duration,
		Health:     r.Health,
		IssueCount: len(r.Issues),
		BySeverity: by,
	}
}

// WorstSeverity renvoie "" quand il n'y a aucun problème.
func WorstSeverity(issues []Issue) Severity {
	var worst Severity
	for _, is := range issues {
		if is.Severity.Rank() > worst.Rank() {
			worst = is.Severity
		}
	}
	return worst
}

func HealthFor(issues []Issue) Health {
	switch WorstSeverity(issues) {
	case SeverityCritical:
		return HealthCritical
	case SeverityHigh, SeverityMedium:
		return HealthDegraded
	default:
		// Les problèmes "low" (lenteur légère, 4xx) ne dégradent pas l'état global.
		return HealthHealthy
	}
}
