package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) subscriptionRoutes(r chi.Router) {
	r.Get("/subscriptions/plans", s.handlePlans)
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/subscriptions/me", s.handleMySubscription)
		r.Post("/subscriptions", s.handleSubscribe)
		r.Post("/subscriptions/cancel", s.handleCancelSubscription)
	})
	r.With(requireAdmin).Get("/subscriptions", s.handleListSubscriptions)
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, s.svc.Subscriptions.Plans())
}

type mySubscription struct {
	Subscription *domain.Subscription `json:"subscription"`
	Plan         domain.Plan          `json:"plan"`
}

func (s *Server) handleMySubscription(w http.ResponseWriter, r *http.Request) {
	userID := actorFrom(r.Context()).UserID
	var out mySubscription
	sub, err := s.svc.Subscriptions.Current(r.Context(), userID)
	switch {
	case err == nil:
		out.Subscription = &sub
	case !errors.Is(err, app.ErrNotFound):
		writeError(w, r, err)
		return
	}
	plan, err := s.svc.Subscriptions.EffectivePlan(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out.Plan = plan
	httpjson.Write(w, http.StatusOK, out)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var in app.SubscribeInput
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	sub, err := s.svc.Subscriptions.Subscribe(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, sub)
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.svc.Subscriptions.Cancel(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, sub)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Subscriptions.List(r.Context(), domain.SubscriptionStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}
