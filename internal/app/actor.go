package app

import "github.com/yemenflix/yflix/internal/domain"

// Actor est l'utilisateur authentifié à l'origine d'un appel.
// La valeur zéro représente un visiteur anonyme.
type Actor struct {
	UserID   string
	Username string
	Role     domain.Role
}

func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// Page est une page de résultats.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

const (
	DefaultPageSize = 24
	MaxPageSize     = 100
)

// paginate découpe items. Une page au-delà de la fin renvoie une liste vide.
func paginate[T any](items []T, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	total := len(items)
	out := Page[T]{Items: []T{}, Total: total, Page: page, PageSize: pageSize}
	out.TotalPages = (total + pageSize - 1) / pageSize
	// Comparaison avant multiplication: page peut être arbitrairement grand.
	if page > out.TotalPages {
		return out
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	out.Items = items[start:end]
	return out
}
