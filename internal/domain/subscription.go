package domain

import "time"

type PlanID string

const (
	PlanFree    PlanID = "free"
	PlanBasic   PlanID = "basic"
	PlanPremium PlanID = "premium"
)

type Plan struct {
	ID         PlanID  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	MaxQuality Quality `json:"maxQuality"`
	// 0 = illimité (plan gratuit).
	PeriodDays int  `json:"periodDays"`
	Downloads  bool `json:"downloads"`
}

func Plans() []Plan {
	return []Plan{
		{ID: PlanFree, Name: "Free", Price: 0, Currency: "USD", MaxQuality: QualitySD, PeriodDays: 0, Downloads: false},
		{ID: PlanBasic, Name: "Basic", Price: 4.99, Currency: "USD", MaxQuality: QualityHD, PeriodDays: 30, Downloads: true},
		{ID: PlanPremium, Name: "Premium", Price: 9.99, Currency: "USD", MaxQuality: Quality4K, PeriodDays: 30, Downloads: true},
	}
}

func PlanByID(id PlanID) (Plan, bool) {
	for _, p := range Plans() {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

type Subscription struct {
	ID     string             `json:"id" validate:"required"`
	UserID string             `json:"userId" validate:"required"`
	Plan   PlanID             `json:"plan" validate:"required,oneof=free basic premium"`
	Status SubscriptionStatus `json:"status" validate:"required,oneof=active canceled expired"`

	AutoRenew bool `json:"autoRenew"`

	StartedAt time.Time `json:"startedAt"`
	// ExpiresAt zéro = pas d'expiration (plan gratuit).
	ExpiresAt  time.Time `json:"expiresAt,omitzero"`
	CanceledAt time.Time `json:"canceledAt,omitzero"`
	RenewedAt  time.Time `json:"renewedAt,omitzero"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Entitled indique si l'abonnement donne encore accès au contenu.
// Un abonnement annulé reste utilisable jusqu'à ExpiresAt.
func (s Subscription) Entitled(now time.Time) bool {
	if s.Status == SubscriptionExpired {
		return false
	}
	if s.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(s.ExpiresAt)
}

// Due renvoie true quand le scheduler doit traiter l'abonnement.
func (s Subscription) Due(now time.Time) bool {
	if s.Status == SubscriptionExpired || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}
