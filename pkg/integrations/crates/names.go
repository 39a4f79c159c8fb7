package crates

import "strings"

// NormalizeName returns the form crates.io indexes a crate name under:
// lower case, with '_' and '-' treated as the same character.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
)

// repositoryURL canonicalizes the repository field of a crate: git+ and
// SSH forms become HTTPS and a trailing .git is dropped.
func repositoryURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	return strings.TrimSuffix(s, ".git")
}
