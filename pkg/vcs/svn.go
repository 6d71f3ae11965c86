package vcs

import (
	"regexp"

	"github.com/rotisserie/eris"
)

var (
	svnTrunkRe  = regexp.MustCompile(`/trunk$`)
	svnTagRe    = regexp.MustCompile(`/tags/([^/]+)$`)
	svnBranchRe = regexp.MustCompile(`/branches/([^/]+)$`)
	svnTicketRe = regexp.MustCompile(`/tickets/(\d+)$`)
)

// SvnVersionName derives a version name from a repository URL's trailing
// path segments. Subversion embeds the checkout layout (trunk, tags/X,
// branches/X) in the URL, so no working copy query is necessary.
func SvnVersionName(url string) (string, error) {
	switch {
	case svnTrunkRe.MatchString(url):
		return "trunk", nil
	case svnTagRe.MatchString(url):
		return svnTagRe.FindStringSubmatch(url)[1], nil
	case svnTicketRe.MatchString(url):
		return "ticket_" + svnTicketRe.FindStringSubmatch(url)[1], nil
	case svnBranchRe.MatchString(url):
		return "branch_" + svnBranchRe.FindStringSubmatch(url)[1], nil
	default:
		return "", eris.Errorf("unable to guess a version name from %s", url)
	}
}
