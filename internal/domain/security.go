package domain

import "time"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) Valid() bool {
	return s.Rank() > 0
}

type AlertType string

const (
	AlertFailedLogin        AlertType = "failed_login"
	AlertSuspiciousActivity AlertType = "suspicious_activity"
	AlertContentReport      AlertType = "content_report"
	AlertMaintenance        AlertType = "maintenance"
)

type SecurityAlert struct {
	ID         string    `json:"id" validate:"required"`
	Type       AlertType `json:"type" validate:"required,oneof=failed_login suspicious_activity content_report maintenance"`
	Severity   Severity  `json:"severity" validate:"required,oneof=low medium high critical"`
	Message    string    `json:"message" validate:"required,max=500"`
	SourceIP   string    `json:"sourceIp,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	Resolved   bool      `json:"resolved"`
	ResolvedAt time.Time `json:"resolvedAt,omitzero"`
	ResolvedBy string    `json:"resolvedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
