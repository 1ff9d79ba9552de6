package buildinfo

import "runtime"

// Injectées à la compilation via -ldflags, par exemple :
//
//	-X github.com/yemenflix/yflix/internal/buildinfo.Version=v1.2.0
//	-X github.com/yemenflix/yflix/internal/buildinfo.Commit=abcdef
//	-X github.com/yemenflix/yflix/internal/buildinfo.Date=2026-10-19
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"goVersion"`
}

func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date, GoVersion: runtime.Version()}
}
