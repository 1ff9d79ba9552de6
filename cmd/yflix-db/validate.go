package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
	"github.com/yemenflix/yflix/internal/validate"
)

// Le document de réglages n'a pas de champ id.
const settingsDocID = "site"

type problem struct {
	Collection string
	ID         string
	Error      string
}

type validationReport struct {
	Checked  int
	Problems []problem
}

// schemas associe chaque collection à son type de domaine.
var schemas = map[string]func([]byte) error{
	ports.CollectionContent:        check[domain.Content],
	ports.CollectionReviews:        check[domain.Review],
	ports.CollectionNotifications:  check[domain.Notification],
	ports.CollectionUsers:          check[domain.User],
	ports.CollectionSubscriptions:  check[domain.Subscription],
	ports.CollectionSecurityAlerts: check[domain.SecurityAlert],
	ports.CollectionDownloads:      check[domain.DownloadItem],
	ports.CollectionChatMessages:   check[domain.ChatMessage],
	ports.CollectionLiveStreams:    check[domain.LiveStream],
	ports.CollectionViewEvents:     check[domain.ViewEvent],
	ports.CollectionSettings:       check[domain.Settings],
}

func check[T any](b []byte) error {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return validate.Struct(v)
}

func documentID(b []byte) (string, error) {
	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return "", err
	}
	if doc.ID == "" {
		return settingsDocID, nil
	}
	return doc.ID, nil
}

func validateStore(ctx context.Context, store ports.DocumentStore) (validationReport, error) {
	var report validationReport
	for _, col := range ports.Collections() {
		docs, err := store.List(ctx, col)
		if err != nil {
			return report, fmt.Errorf("%s: %w", col, err)
		}
		checkFn := schemas[col]
		for _, b := range docs {
			report.Checked++
			id, _ := documentID(b)
			if err := checkFn(b); err != nil {
				var verrs validate.Errors
				if errors.As(err, &verrs) {
					for _, fe := range verrs {
						report.Problems = append(report.Problems, problem{Collection: col, ID: id, Error: fe.Error()})
					}
					continue
				}
				report.Problems = append(report.Problems, problem{Collection: col, ID: id, Error: err.Error()})
			}
		}
	}
	return report, nil
}

type collectionCount struct {
	Collection string
	Count      int
}

func stats(ctx context.Context, store ports.DocumentStore) ([]collectionCount, error) {
	out := make([]collectionCount, 0, len(ports.Collections()))
	for _, col := range ports.Collections() {
		docs, err := store.List(ctx, col)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", col, err)
		}
		out = append(out, collectionCount{Collection: col, Count: len(docs)})
	}
	return out, nil
}
