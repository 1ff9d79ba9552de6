package httpapi

import (
	"net/http"
	"strings"

	"github.com/yemenflix/yflix/internal/buildinfo"
	"github.com/yemenflix/yflix/internal/httpjson"
)

type apiRoute struct {
	method  string
	path    string
	summary string
	// "", "user" ou "admin".
	auth   string
	schema string
}

var apiRoutes = []apiRoute{
	{"get", "/api/health", "État du serveur et du store", "", "Health"},
	{"get", "/api/version", "Version du binaire", "", "Version"},
	{"get", "/api/events", "Flux SSE (topics, room, access_token)", "", ""},
	{"post", "/api/auth/register", "Création de compte", "", "Session"},
	{"post", "/api/auth/login", "Connexion", "", "Session"},
	{"get", "/api/auth/me", "Utilisateur courant", "user", "User"},
	{"get", "/api/content", "Catalogue filtré et paginé", "", "ContentPage"},
	{"post", "/api/content", "Ajout d'un contenu", "admin", "Content"},
	{"get", "/api/content/stats", "Compteurs du catalogue", "admin", "ContentStats"},
	{"get", "/api/content/{id}", "Détail d'un contenu", "", "Content"},
	{"put", "/api/content/{id}", "Mise à jour partielle", "admin", "Content"},
	{"delete", "/api/content/{id}", "Suppression", "admin", ""},
	{"post", "/api/content/{id}/moderate", "approve, reject, unpublish, submit", "admin", "Content"},
	{"get", "/api/content/{id}/similar", "Contenus proches", "", "ContentList"},
	{"post", "/api/content/{id}/view", "Enregistre une vue", "", ""},
	{"get", "/api/content/{id}/reviews", "Avis d'un contenu", "", "ReviewList"},
	{"post", "/api/content/{id}/reviews", "Dépose un avis", "user", "Review"},
	{"get", "/api/series", "Catalogue des séries", "", "ContentPage"},
	{"get", "/api/search", "Recherche plein texte (q, limit)", "", "ContentList"},
	{"get", "/api/reviews", "Avis par statut", "admin", "ReviewList"},
	{"post", "/api/reviews/{id}/moderate", "Modération d'un avis", "admin", "Review"},
	{"delete", "/api/reviews/{id}", "Suppression d'un avis", "user", ""},
	{"get", "/api/notifications", "Notifications de l'utilisateur", "user", "NotificationList"},
	{"post", "/api/notifications", "Crée ou diffuse une notification", "admin", "Notification"},
	{"post", "/api/notifications/read-all", "Tout marquer comme lu", "user", ""},
	{"post", "/api/notifications/{id}/read", "Marquer comme lu", "user", ""},
	{"delete", "/api/notifications/{id}", "Suppression", "admin", ""},
	{"get", "/api/subscriptions/plans", "Plans disponibles", "", ""},
	{"get", "/api/subscriptions/me", "Abonnement courant", "user", ""},
	{"post", "/api/subscriptions", "Souscription", "user", "Subscription"},
	{"post", "/api/subscriptions/cancel", "Résiliation", "user", "Subscription"},
	{"get", "/api/subscriptions", "Tous les abonnements", "admin", ""},
	{"get", "/api/security/alerts", "Alertes de sécurité", "admin", ""},
	{"post", "/api/security/alerts", "Signalement", "user", ""},
	{"post", "/api/security/alerts/{id}/resolve", "Résolution", "admin", ""},
	{"delete", "/api/security/alerts/{id}", "Suppression", "admin", ""},
	{"get", "/api/downloads", "Téléchargements de l'utilisateur", "user", ""},
	{"post", "/api/downloads", "Nouveau téléchargement", "user", "Download"},
	{"post", "/api/downloads/{id}/progress", "Progression (0..1)", "user", "Download"},
	{"post", "/api/downloads/{id}/{action}", "pause, resume, cancel, fail", "user", "Download"},
	{"delete", "/api/downloads/{id}", "Suppression", "user", ""},
	{"get", "/api/chat/{room}/messages", "Historique d'un salon", "", ""},
	{"post", "/api/chat/{room}/messages", "Envoi d'un message", "user", ""},
	{"delete", "/api/chat/messages/{id}", "Suppression d'un message", "user", ""},
	{"get", "/api/live", "Directs", "", ""},
	{"post", "/api/live", "Création d'un direct", "admin", ""},
	{"get", "/api/live/{id}", "Détail d'un direct", "", ""},
	{"put", "/api/live/{id}", "Mise à jour", "admin", ""},
	{"delete", "/api/live/{id}", "Suppression", "admin", ""},
	{"post", "/api/live/{id}/start", "Démarrage", "admin", ""},
	{"post", "/api/live/{id}/end", "Fin", "admin", ""},
	{"post", "/api/live/{id}/join", "Arrivée d'un spectateur", "", ""},
	{"post", "/api/live/{id}/leave", "Départ d'un spectateur", "", ""},
	{"get", "/api/analytics/dashboard", "Tableau de bord", "admin", ""},
	{"get", "/api/maintenance/report", "Dernier rapport", "admin", ""},
	{"get", "/api/maintenance/history", "Derniers passages", "admin", ""},
	{"post", "/api/maintenance/run", "Lance un passage", "admin", ""},
	{"get", "/api/settings", "Réglages (sous-ensemble public hors admin)", "", "Settings"},
	{"put", "/api/settings", "Mise à jour des réglages", "admin", "Settings"},
	{"get", "/api/openapi.json", "Ce document", "", ""},
}

func object(props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props}
}

var (
	tString  = map[string]any{"type": "string"}
	tInt     = map[string]any{"type": "integer"}
	tNumber  = map[string]any{"type": "number"}
	tBool    = map[string]any{"type": "boolean"}
	tStrings = map[string]any{"type": "array", "items": tString}
	tTime    = map[string]any{"type": "string", "format": "date-time"}
)

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func apiSchemas() map[string]any {
	content := object(map[string]any{
		"id": tString, "kind": map[string]any{"type": "string", "enum": []any{"movie", "series", "show", "mix"}},
		"title": tString, "originalTitle": tString, "overview": tString,
		"poster": tString, "backdrop": tString, "trailerUrl": tString, "streamUrl": tString,
		"year": tInt, "rating": tNumber, "userRating": tNumber, "reviewCount": tInt,
		"genres": tStrings, "cast": tStrings, "country": tString, "language": tString,
		"quality": map[string]any{"type": "string", "enum": []any{"SD", "HD", "FHD", "4K"}},
		"duration": tInt, "seasons": tInt, "episodes": tInt, "items": tStrings,
		"featured": tBool, "viewCount": tInt,
		"status":    map[string]any{"type": "string", "enum": []any{"draft", "pending", "published", "rejected"}}, "moderationNote": tString,
		"createdAt": tTime, "updatedAt": tTime, "publishedAt": tTime,
	})
	user := object(map[string]any{"id": tString, "username": tString, "email": tString, "role": tString, "createdAt": tTime})
	return map[string]any{
		"Error": object(map[string]any{
			"error":  tString,
			"code":   tString,
			"fields": map[string]any{"type": "array", "items": object(map[string]any{"field": tString, "message": tString})},
		}),
		"Health":       object(map[string]any{"status": tString, "store": tString, "maintenance": tString}),
		"Version":      object(map[string]any{"version": tString, "commit": tString, "date": tString, "goVersion": tString}),
		"User":         user,
		"Session":      object(map[string]any{"token": tString, "expiresAt": tTime, "user": ref("User")}),
		"Content":      content,
		"ContentList":  map[string]any{"type": "array", "items": ref("Content")},
		"ContentPage":  object(map[string]any{"items": ref("ContentList"), "total": tInt, "page": tInt, "pageSize": tInt, "totalPages": tInt}),
		"ContentStats": object(map[string]any{"total": tInt, "byKind": map[string]any{"type": "object"}, "byStatus": map[string]any{"type": "object"}, "views": tInt}),
		"Review":       object(map[string]any{"id": tString, "contentId": tString, "userId": tString, "rating": tInt, "comment": tString, "status": tString, "createdAt": tTime}),
		"ReviewList":   map[string]any{"type": "array", "items": ref("Review")},
		"Notification": object(map[string]any{"id": tString, "userId": tString, "kind": tString, "title": tString, "body": tString, "link": tString, "read": tBool, "createdAt": tTime}),
		"NotificationList": object(map[string]any{
			"items":  map[string]any{"type": "array", "items": ref("Notification")},
			"unread": tInt,
		}),
		"Subscription": object(map[string]any{"id": tString, "userId": tString, "plan": tString, "status": tString, "autoRenew": tBool, "startedAt": tTime, "expiresAt": tTime}),
		"Download":     object(map[string]any{"id": tString, "contentId": tString, "title": tString, "quality": tString, "state": tString, "progress": tNumber, "sizeBytes": tInt}),
		"Settings": object(map[string]any{
			"siteName": tString, "maintenanceMode": tBool, "allowRegistration": tBool, "adsEnabled": tBool,
			"defaultPageSize": tInt, "maxConcurrentChecks": tInt, "contactEmail": tString,
		}),
	}
}

func openAPIDocument() map[string]any {
	errResp := map[string]any{
		"description": "Error",
		"content":     map[string]any{"application/json": map[string]any{"schema": ref("Error")}},
	}

	paths := map[string]any{}
	for _, rt := range apiRoutes {
		ok := map[string]any{"description": "OK"}
		if rt.schema != "" {
			ok["content"] = map[string]any{"application/json": map[string]any{"schema": ref(rt.schema)}}
		}
		op := map[string]any{
			"summary":   rt.summary,
			"tags":      []any{strings.Split(strings.TrimPrefix(rt.path, "/api/"), "/")[0]},
			"responses": map[string]any{"200": ok, "default": errResp},
		}
		if rt.auth != "" {
			op["security"] = []any{map[string]any{"bearer": []any{}}}
			op["x-role"] = rt.auth
		}
		item, _ := paths[rt.path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[rt.path] = item
		}
		item[rt.method] = op
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "YEMEN FLIX API",
			"version": buildinfo.Current().Version,
		},
		"components": map[string]any{
			"schemas": apiSchemas(),
			"securitySchemes": map[string]any{
				"bearer": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
		"paths": paths,
	}
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, openAPIDocument())
}
