package store

import (
	"context"
	"fmt"

	"golang.org/x/text/language"
)

var supportedLanguages = []language.Tag{
	language.BrazilianPortuguese,
	language.English,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// ParseLanguage maps a BCP 47 tag onto a supported UI language. Regional
// variants match their base ("en-GB" is "en", "pt" is "pt-BR").
func ParseLanguage(tag string) (string, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedLanguage, err)
	}
	_, i, conf := languageMatcher.Match(t)
	if conf == language.No {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedLanguage, tag)
	}
	return supportedLanguages[i].String(), nil
}

func (s *State) SetTheme(ctx context.Context, theme string) error {
	switch theme {
	case "light", "dark", "system":
	default:
		return ErrInvalidTheme
	}
	return s.updatePrefs(ctx, func(p *Preferences) { p.Theme = theme })
}

// SetLanguage accepts any tag ParseLanguage accepts.
func (s *State) SetLanguage(ctx context.Context, tag string) error {
	lang, err := ParseLanguage(tag)
	if err != nil {
		return err
	}
	return s.updatePrefs(ctx, func(p *Preferences) { p.Language = lang })
}

func (s *State) SetSidebarCollapsed(ctx context.Context, collapsed bool) error {
	return s.updatePrefs(ctx, func(p *Preferences) { p.SidebarCollapsed = collapsed })
}

func (s *State) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *State) updatePrefs(ctx context.Context, fn func(*Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.prefs
	fn(&next)
	if err := saveLocked(ctx, s, UIKey, next); err != nil {
		return err
	}
	s.prefs = next
	return nil
}
