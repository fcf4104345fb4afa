package discovery

import (
	"strings"

	"github.com/policyscope/policyscope/internal/model"
)

// Well-known paths where sites commonly host their legal documents. Ordering
// is priority order; the racer consumes each list left to right.
var wellKnownTermsPaths = []string{
	"/terms",
	"/terms-of-service",
	"/terms-of-use",
	"/terms-conditions",
	"/legal",
	"/tos",
	"/terms.html",
	"/terms-of-service.html",
	"/about/legal/terms",
	"/legal/terms",
}

var wellKnownPrivacyPaths = []string{
	"/privacy",
	"/privacy-policy",
	"/data-policy",
	"/data-protection",
	"/privacy.html",
	"/privacy-policy.html",
	"/about/privacy",
	"/legal/privacy",
}

// Display labels for guessed candidates
const (
	termsLabel   = "Terms of Service"
	privacyLabel = "Privacy Policy"
)

// GuessCandidates builds candidate URL lists for a domain from the
// well-known path sets. When the domain lacks a www prefix the lists are
// doubled with a www-prefixed variant, after the bare-domain guesses.
func GuessCandidates(domain string) model.CandidateLinks {
	links := model.CandidateLinks{
		Terms:   candidatesFor(domain, wellKnownTermsPaths, termsLabel),
		Privacy: candidatesFor(domain, wellKnownPrivacyPaths, privacyLabel),
	}

	if !strings.HasPrefix(domain, "www.") {
		www := "www." + domain
		links.Terms = append(links.Terms, candidatesFor(www, wellKnownTermsPaths, termsLabel)...)
		links.Privacy = append(links.Privacy, candidatesFor(www, wellKnownPrivacyPaths, privacyLabel)...)
	}

	return links
}

func candidatesFor(domain string, paths []string, label string) []model.URLCandidate {
	candidates := make([]model.URLCandidate, 0, len(paths))
	for _, path := range paths {
		candidates = append(candidates, model.URLCandidate{
			URL:   "https://" + domain + path,
			Label: label,
		})
	}
	return candidates
}
