package echoapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Page route tables. Marketing prefixes are fully public and never trigger
// auth checks; explicit public paths host the auth flows; everything else
// requires a session.
var (
	marketingPrefixes = []string{
		"/about",
		"/blog",
		"/for-schools",
		"/pricing",
		"/contact",
	}

	publicPaths = map[string]bool{
		"/":                true,
		"/login":           true,
		"/signup":          true,
		"/forgot-password": true,
		"/reset-password":  true,
		"/auth/callback":   true,
	}

	teacherPaths = map[string]bool{
		"/dashboard": true,
		"/profile":   true,
		"/matches":   true,
		"/payment":   true,
	}

	schoolPaths = map[string]bool{
		"/school":          true,
		"/school/browse":   true,
		"/school/unlocked": true,
		"/school/settings": true,
	}

	adminPrefix = "/admin"

	loginPath   = "/login"
	defaultPath = "/dashboard"
)

// guardSession is what the guard needs to know about the visitor.
type guardSession struct {
	Authed bool
}

// GuardDecision is the canonical routing rule: given a requested page path
// and the visitor's session, it returns the path to redirect to, or "" to let
// the request through. Every page route goes through this one function. It
// performs no role-based branching; portal separation lives in the JWT
// middlewares on the API group.
func GuardDecision(path string, sess guardSession) string {
	for _, prefix := range marketingPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return ""
		}
	}

	if publicPaths[path] {
		// an authed visitor has no business on the auth pages
		if sess.Authed && (path == "/login" || path == "/signup") {
			return defaultPath
		}
		return ""
	}

	if !sess.Authed {
		return loginPath + "?redirectTo=" + url.QueryEscape(path)
	}
	return ""
}

// routeGuard applies GuardDecision to the page routes. API routes are not
// guarded here; they authenticate via the JWT middleware.
func routeGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess := cookieSession(ctx)
			path := ctx.Request().URL.Path
			if redirect := GuardDecision(path, sess); redirect != "" {
				// an authed visitor bounced off an auth page resumes where
				// they were headed, if the login redirect captured it
				if sess.Authed && (path == "/login" || path == "/signup") {
					if to := ctx.QueryParam("redirectTo"); strings.HasPrefix(to, "/") && !strings.HasPrefix(to, "//") {
						redirect = to
					}
				}
				return ctx.Redirect(http.StatusFound, redirect)
			}
			return next(ctx)
		}
	}
}

// cookieSession parses the session cookie, tolerating absence and garbage:
// an invalid token is simply an anonymous visitor.
func cookieSession(ctx echo.Context) guardSession {
	cookie, err := ctx.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return guardSession{}
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != appJWTConfig.SigningMethod {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return appJWTConfig.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return guardSession{}
	}
	return guardSession{Authed: true}
}

// registerPages wires the app-shell page routes behind the route guard.
func (s *server) registerPages() {
	guard := routeGuard()

	s.app.GET("/", s.page, guard)
	for path := range publicPaths {
		if path != "/" {
			s.app.GET(path, s.page, guard)
		}
	}
	for _, prefix := range marketingPrefixes {
		s.app.GET(prefix, s.page, guard)
		s.app.GET(prefix+"/*", s.page, guard)
	}
	for path := range teacherPaths {
		s.app.GET(path, s.page, guard)
	}
	for path := range schoolPaths {
		s.app.GET(path, s.page, guard)
	}
	s.app.GET(adminPrefix, s.page, guard)
	s.app.GET(adminPrefix+"/*", s.page, guard)
}

// page serves the single-page app shell; client-side code takes over from
// here.
func (s *server) page(ctx echo.Context) error {
	return ctx.HTML(http.StatusOK, appShell)
}

const appShell = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Ajira</title></head>
<body><div id="root"></div><script src="/static/app.js"></script></body>
</html>`
