package events

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

const (
	fallbackSlug    = "event"
	maxSlugAttempts = 100
)

// ErrSlugExhausted is returned when no free slug was found within the attempt budget.
var ErrSlugExhausted = errors.New("no free public slug")

var (
	whitespace   = regexp.MustCompile(`\s+`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify derives the base public slug from a title: lowercase, whitespace runs to
// hyphens, everything outside [a-z0-9-] dropped.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = whitespace.ReplaceAllString(s, "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	if s == "" {
		return fallbackSlug
	}
	return s
}

func candidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// createWithUniqueSlug inserts e under the first free slug derived from its title.
// The existence check only skips known-taken candidates; the store's unique constraint is what
// settles races, and a conflicting insert moves on to the next suffix.
func createWithUniqueSlug(ctx context.Context, store Store, e *models.Event) error {
	base := Slugify(e.Title)
	n := 0
	for ; n < maxSlugAttempts; n++ {
		taken, err := store.SlugExists(ctx, candidate(base, n))
		if err != nil {
			return err
		}
		if !taken {
			break
		}
	}
	for ; n < maxSlugAttempts; n++ {
		e.PublicSlug = candidate(base, n)
		err := store.Create(ctx, e)
		if err == nil {
			return nil
		}
		if !errors.Is(err, database.ErrDuplicate) {
			return err
		}
	}
	e.PublicSlug = ""
	return fmt.Errorf("%w for %q", ErrSlugExhausted, base)
}
