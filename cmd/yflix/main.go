package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const usage = "Usage: yflix [--server URL] [--token JWT] health|version|maintenance [run]|search <q>"

func main() {
	fs := pflag.NewFlagSet("yflix", pflag.ExitOnError)
	baseURL := fs.String("server", envOr("YFLIX_SERVER_URL", "http://127.0.0.1:8080"), "URL du serveur (ex: http://127.0.0.1:8080)")
	token := fs.String("token", os.Getenv("YFLIX_TOKEN"), "Jeton admin (maintenance)")
	timeout := fs.Duration("timeout", 30*time.Second, "Timeout HTTP")
	limit := fs.Int("limit", 10, "Nombre de résultats (search)")
	_ = fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	c := &client{http: &http.Client{Timeout: *timeout}, base: strings.TrimRight(*baseURL, "/"), token: *token}

	switch args[0] {
	case "health":
		c.run(http.MethodGet, "/api/health")
	case "version":
		c.run(http.MethodGet, "/api/version")
	case "maintenance":
		if len(args) > 1 && args[1] == "run" {
			c.run(http.MethodPost, "/api/maintenance/run")
			return
		}
		c.run(http.MethodGet, "/api/maintenance/report")
	case "search":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		q := url.Values{"q": {strings.Join(args[1:], " ")}, "limit": {fmt.Sprint(*limit)}}
		c.run(http.MethodGet, "/api/search?"+q.Encode())
	default:
		fmt.Fprintln(os.Stderr, "Commande inconnue:", args[0])
		os.Exit(2)
	}
}

type client struct {
	http  *http.Client
	base  string
	token string
}

// run affiche la réponse (JSON indenté si possible) et sort en erreur sur un statut >= 400.
func (c *client) run(method, path string) {
	req, err := http.NewRequest(method, c.base+path, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	var pretty any
	if err := json.Unmarshal(b, &pretty); err == nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(pretty)
	} else {
		os.Stdout.Write(b)
		os.Stdout.Write([]byte("\n"))
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
