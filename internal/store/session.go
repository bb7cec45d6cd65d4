package store

import (
	"context"
	"slices"

	"github.com/roach88/insightdash/internal/api"
)

// Login records an authenticated session acting in org. org must be one
// of orgs; an empty orgs list is taken to mean just org.
func (s *State) Login(ctx context.Context, user api.User, org api.Organization, orgs []api.Organization, token string) error {
	if len(orgs) == 0 {
		orgs = []api.Organization{org}
	}
	if !containsOrg(orgs, org.ID) {
		return ErrUnknownOrganization
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSessionLocked(ctx, Session{
		User:            &user,
		CurrentOrg:      &org,
		Organizations:   slices.Clone(orgs),
		IsAuthenticated: true,
		Token:           token,
	})
}

// Logout clears the session.
func (s *State) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSessionLocked(ctx, Session{})
}

// SwitchOrganization makes orgID the current organization. It must be one
// of the session's organizations.
func (s *State) SwitchOrganization(ctx context.Context, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.IsAuthenticated {
		return ErrNotAuthenticated
	}
	i := slices.IndexFunc(s.session.Organizations, func(o api.Organization) bool { return o.ID == orgID })
	if i < 0 {
		return ErrUnknownOrganization
	}
	org := s.session.Organizations[i]
	next := s.session
	next.CurrentOrg = &org
	return s.setSessionLocked(ctx, next)
}

// setSessionLocked persists next and only then makes it current, so a
// failed save leaves the previous session in place.
func (s *State) setSessionLocked(ctx context.Context, next Session) error {
	if err := saveLocked(ctx, s, AuthKey, next); err != nil {
		return err
	}
	s.session = next
	return nil
}

// Session returns a copy of the current session.
func (s *State) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.session
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	if out.CurrentOrg != nil {
		o := *out.CurrentOrg
		out.CurrentOrg = &o
	}
	out.Organizations = slices.Clone(out.Organizations)
	return out
}

// TokenFunc supplies the session token to the transport. Requests made
// without a session carry no Authorization header.
func (s *State) TokenFunc() api.TokenFunc {
	return func(context.Context) (string, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.session.IsAuthenticated {
			return "", nil
		}
		return s.session.Token, nil
	}
}

func containsOrg(orgs []api.Organization, id string) bool {
	return slices.ContainsFunc(orgs, func(o api.Organization) bool { return o.ID == id })
}
