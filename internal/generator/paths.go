package generator

import (
	"path"
	"strings"
)

func postRoute(slug string) string {
	return "/posts/" + strings.TrimSpace(slug) + "/"
}

func tagRoute(tag string) string {
	return "/tags/" + strings.TrimSpace(tag) + "/"
}

const projectsRoute = "/projects/"

// routeOutputPath maps a site route onto its output file. Routes always map
// to directory indexes so URLs stay extension-free.
func routeOutputPath(route string) string {
	clean := strings.Trim(strings.TrimSpace(route), "/")
	if clean == "" {
		return "index.html"
	}
	return path.Join(clean, "index.html")
}

func joinOutputPath(base string, rel string) string {
	if strings.TrimSpace(base) == "" {
		return strings.TrimLeft(rel, "/")
	}
	return path.Join(strings.Trim(base, "/"), rel)
}
