// Package route decides whether a navigation may proceed given the current
// session, and keeps the navigation history of the host application.
package route

import (
	"net/url"
	"sort"
	"strings"

	"github.com/dmitrijs2005/invkeeper/internal/common"
)

// Target is a navigation destination: a path plus optional query.
type Target struct {
	Path  string
	Query url.Values
}

// ParseTarget splits s into path and query. Invalid query strings are dropped.
func ParseTarget(s string) Target {
	path, rawQuery, _ := strings.Cut(s, "?")
	t := Target{Path: path}
	if rawQuery != "" {
		if q, err := url.ParseQuery(rawQuery); err == nil {
			t.Query = q
		}
	}
	return t
}

// Param returns the first value of the query parameter key.
func (t Target) Param(key string) string {
	return t.Query.Get(key)
}

// With returns a copy of t with key set to value.
func (t Target) With(key, value string) Target {
	q := url.Values{}
	for k, v := range t.Query {
		q[k] = append([]string(nil), v...)
	}
	q.Set(key, value)
	return Target{Path: t.Path, Query: q}
}

// String renders the target. Slashes in query values are kept readable, so a
// login redirect looks like /login?returnUrl=/dashboard.
func (t Target) String() string {
	if len(t.Query) == 0 {
		return t.Path
	}
	keys := make([]string, 0, len(t.Query))
	for k := range t.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(t.Path)
	sep := byte('?')
	for _, k := range keys {
		for _, v := range t.Query[k] {
			b.WriteByte(sep)
			sep = '&'
			b.WriteString(escape(k))
			b.WriteByte('=')
			b.WriteString(escape(v))
		}
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "%2F", "/")
}

// Paths are the well-known destinations used by gates and the session manager.
type Paths struct {
	Login        string
	AccessDenied string
	Default      string
}

func DefaultPaths() Paths {
	return Paths{
		Login:        common.LoginPath,
		AccessDenied: common.AccessDeniedPath,
		Default:      common.DefaultPath,
	}
}

// LoginRedirect builds the login target carrying returnTo. The return path is
// omitted when it is empty, unsafe or itself the login page.
func (p Paths) LoginRedirect(returnTo string) Target {
	t := Target{Path: p.Login}
	if rp, ok := SafeReturnPath(returnTo); ok && ParseTarget(rp).Path != p.Login {
		t = t.With(common.ReturnURLParam, rp)
	}
	return t
}

// SafeReturnPath accepts only application-local paths, so a crafted returnUrl
// cannot send the user to another host.
func SafeReturnPath(s string) (string, bool) {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, `/\`) {
		return "", false
	}
	return s, true
}
