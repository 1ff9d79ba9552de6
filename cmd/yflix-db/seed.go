package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/adapters/memorybus"
	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
)

type seedOptions struct {
	Force         bool
	AdminUser     string
	AdminPassword string
}

type seedResult struct {
	Content       int
	Notifications int
	Admin         string
}

var errNotEmpty = errors.New("store is not empty (use --force to overwrite)")

var sampleCatalog = []domain.Content{
	{Kind: domain.KindMovie, Title: "Sanaa Nights", Overview: "Une nuit dans la vieille ville de Sanaa.", Year: 2023, Rating: 7.8, Genres: []string{"Drama"}, Country: "YE", Language: "ar", Quality: domain.QualityFHD, Duration: 112, Featured: true},
	{Kind: domain.KindMovie, Title: "Aden Harbour", Overview: "Contrebande et loyauté sur le port d'Aden.", Year: 2021, Rating: 7.1, Genres: []string{"Thriller", "Crime"}, Country: "YE", Language: "ar", Quality: domain.QualityHD, Duration: 98},
	{Kind: domain.KindMovie, Title: "Marib Dam", Overview: "Documentaire sur le barrage antique.", Year: 2019, Rating: 8.2, Genres: []string{"Documentary", "History"}, Country: "YE", Language: "ar", Quality: domain.Quality4K, Duration: 85},
	{Kind: domain.KindSeries, Title: "Hadramawt Tales", Overview: "Chroniques d'une famille de Tarim.", Year: 2022, Rating: 8.4, Genres: []string{"Drama", "Family"}, Country: "YE", Language: "ar", Quality: domain.QualityHD, Seasons: 2, Episodes: 24, Featured: true},
	{Kind: domain.KindSeries, Title: "Socotra", Overview: "Une île, des secrets.", Year: 2024, Rating: 7.6, Genres: []string{"Mystery"}, Country: "YE", Language: "ar", Quality: domain.QualityFHD, Seasons: 1, Episodes: 10},
	{Kind: domain.KindShow, Title: "Qat Talk", Overview: "Talk-show hebdomadaire.", Year: 2024, Rating: 6.9, Genres: []string{"Talk"}, Country: "YE", Language: "ar", Quality: domain.QualitySD, Episodes: 40},
}

// seed remplit une base vide. Les mixes référencent les contenus créés juste avant.
func seed(ctx context.Context, logger zerolog.Logger, store ports.DocumentStore, opts seedOptions) (seedResult, error) {
	if opts.AdminPassword == "" {
		return seedResult{}, errors.New("admin password is required (--admin-password or YFLIX_ADMIN_PASSWORD)")
	}
	empty, err := isEmpty(ctx, store)
	if err != nil {
		return seedResult{}, err
	}
	if !empty {
		if !opts.Force {
			return seedResult{}, errNotEmpty
		}
		if err := wipe(ctx, store); err != nil {
			return seedResult{}, err
		}
		logger.Warn().Msg("existing data wiped")
	}

	bus := memorybus.New()
	defer bus.Close()
	notes := app.NewNotificationService(store, bus)
	settings := app.NewSettingsService(store, bus)
	content := app.NewContentService(logger, store, nil, bus, nil)
	users := app.NewAuthService(logger, store, nil, nil, settings)

	if _, err := settings.Put(ctx, domain.DefaultSettings()); err != nil {
		return seedResult{}, fmt.Errorf("settings: %w", err)
	}

	var res seedResult
	var ids []string
	for _, c := range sampleCatalog {
		c.Status = domain.ContentPublished
		added, err := content.Add(ctx, c)
		if err != nil {
			return res, fmt.Errorf("content %q: %w", c.Title, err)
		}
		ids = append(ids, added.ID)
		res.Content++
	}
	mix := domain.Content{
		Kind:     domain.KindMix,
		Title:    "Best of Yemen",
		Overview: "Sélection de la rédaction.",
		Genres:   []string{"Selection"},
		Items:    ids[:3],
		Status:   domain.ContentPublished,
		Featured: true,
	}
	if _, err := content.Add(ctx, mix); err != nil {
		return res, fmt.Errorf("mix: %w", err)
	}
	res.Content++

	admin, err := users.CreateUser(ctx, app.RegisterInput{Username: opts.AdminUser, Password: opts.AdminPassword}, domain.RoleAdmin)
	if err != nil {
		return res, fmt.Errorf("admin user: %w", err)
	}
	res.Admin = admin.Username

	for _, n := range []struct {
		kind        domain.NotificationKind
		title, body string
	}{
		{domain.NotificationSystem, "Bienvenue sur YEMEN FLIX", "Le catalogue est en ligne."},
		{domain.NotificationNewContent, "Nouvelle série: Socotra", "Disponible dès maintenant."},
	} {
		if _, err := notes.Broadcast(ctx, n.kind, n.title, n.body, ""); err != nil {
			return res, fmt.Errorf("notification: %w", err)
		}
		res.Notifications++
	}
	return res, nil
}

func isEmpty(ctx context.Context, store ports.DocumentStore) (bool, error) {
	for _, col := range ports.Collections() {
		docs, err := store.List(ctx, col)
		if err != nil {
			return false, err
		}
		if len(docs) > 0 {
			return false, nil
		}
	}
	return true, nil
}

// wipe supprime chaque document en relisant son id.
func wipe(ctx context.Context, store ports.DocumentStore) error {
	for _, col := range ports.Collections() {
		docs, err := store.List(ctx, col)
		if err != nil {
			return err
		}
		for _, b := range docs {
			id, err := documentID(b)
			if err != nil {
				return fmt.Errorf("%s: %w", col, err)
			}
			if err := store.Delete(ctx, col, id); err != nil && !errors.Is(err, ports.ErrNotFound) {
				return err
			}
		}
	}
	return nil
}
