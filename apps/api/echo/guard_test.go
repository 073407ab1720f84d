package echoapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardDecision(t *testing.T) {
	var (
		anon   = guardSession{}
		authed = guardSession{Authed: true}
	)

	tests := []struct {
		name string
		path string
		sess guardSession
		want string // "" == allowed through
	}{
		// marketing pages never trigger auth checks
		{"marketing anonymous", "/pricing", anon, ""},
		{"marketing authed", "/about/team", authed, ""},
		{"marketing for-schools", "/for-schools", anon, ""},

		// a marketing prefix only matches on a path boundary
		{"prefix lookalike", "/aboutanything", anon, "/login?redirectTo=%2Faboutanything"},
		{"prefix lookalike pricing", "/pricingplans", anon, "/login?redirectTo=%2Fpricingplans"},

		// public pages
		{"root anonymous", "/", anon, ""},
		{"root authed", "/", authed, ""},
		{"login anonymous", "/login", anon, ""},
		{"signup anonymous", "/signup", anon, ""},
		{"forgot-password anonymous", "/forgot-password", anon, ""},
		{"auth callback anonymous", "/auth/callback", anon, ""},

		// authed visitors bounce off the auth pages to the landing route
		{"login authed", "/login", authed, "/dashboard"},
		{"signup authed", "/signup", authed, "/dashboard"},

		// protected pages demand a session and capture the destination
		{"dashboard anonymous", "/dashboard", anon, "/login?redirectTo=%2Fdashboard"},
		{"matches anonymous", "/matches", anon, "/login?redirectTo=%2Fmatches"},
		{"admin anonymous", "/admin/teachers", anon, "/login?redirectTo=%2Fadmin%2Fteachers"},
		{"school anonymous", "/school/browse", anon, "/login?redirectTo=%2Fschool%2Fbrowse"},

		// any session passes; portal separation is not this layer's job
		{"dashboard authed", "/dashboard", authed, ""},
		{"payment authed", "/payment", authed, ""},
		{"admin authed", "/admin/teachers", authed, ""},
		{"school browse authed", "/school/browse", authed, ""},

		// unknown authed pages fall through to the app shell 404
		{"unknown page authed", "/never-heard-of-it", authed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GuardDecision(tt.path, tt.sess))
		})
	}
}
