package changelog

import (
	"context"
	"net/mail"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// User is a hosting-service account matched to a commit email.
type User struct {
	Username string
	URL      string
}

// UserLookup maps commit emails onto hosting accounts. A nil user with a nil
// error means no account matched.
type UserLookup interface {
	LookupUser(ctx context.Context, email string) (*User, error)
}

// parseCoAuthors reads "Co-authored-by: Name <email>" trailers.
func parseCoAuthors(trailers []Trailer) []Person {
	var out []Person
	for _, t := range trailers {
		if !strings.EqualFold(t.Key, "Co-authored-by") {
			continue
		}
		addr, err := mail.ParseAddress(t.Value)
		if err != nil {
			out = append(out, Person{Name: strings.TrimSpace(t.Value)})
			continue
		}
		out = append(out, Person{Name: addr.Name, Email: addr.Address})
	}
	return out
}

// collectContributors gathers authors, committers and co-authors, merged by
// display name and sorted alphabetically. Hidden names or emails are dropped.
func collectContributors(commits []*Commit, hidden []string) []Contributor {
	hide := make(map[string]bool, len(hidden))
	for _, h := range hidden {
		hide[strings.ToLower(h)] = true
	}

	emails := make(map[string]map[string]bool)
	add := func(p Person) {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = p.Email
		}
		if name == "" || hide[strings.ToLower(name)] || (p.Email != "" && hide[strings.ToLower(p.Email)]) {
			return
		}
		if emails[name] == nil {
			emails[name] = make(map[string]bool)
		}
		if p.Email != "" {
			emails[name][p.Email] = true
		}
	}

	for _, c := range commits {
		add(c.Author)
		add(c.Committer)
		for _, co := range c.CoAuthors {
			add(co)
		}
	}

	out := make([]Contributor, 0, len(emails))
	for name, set := range emails {
		c := Contributor{Name: name}
		for e := range set {
			c.Emails = append(c.Emails, e)
		}
		sort.Strings(c.Emails)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if li != lj {
			return li < lj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// identityCache resolves each email at most once per run.
type identityCache struct {
	lookup UserLookup
	log    zerolog.Logger
	seen   map[string]*User
}

func newIdentityCache(lookup UserLookup, log zerolog.Logger) *identityCache {
	return &identityCache{lookup: lookup, log: log, seen: make(map[string]*User)}
}

// resolve fills Username and URL from the first email that maps to an
// account. Lookup failures are logged and leave the contributor anonymous.
func (ic *identityCache) resolve(ctx context.Context, c *Contributor) {
	for _, email := range c.Emails {
		u, ok := ic.seen[email]
		if !ok {
			var err error
			u, err = ic.lookup.LookupUser(ctx, email)
			if err != nil {
				ic.log.Warn().Err(err).Str("email", email).Msg("identity lookup failed")
				u = nil
			}
			ic.seen[email] = u
		}
		if u != nil {
			c.Username = u.Username
			c.URL = u.URL
			return
		}
	}
}
