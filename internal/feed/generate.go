package feed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bookcal/internal/booking"
	"bookcal/internal/log"
)

// Source supplies raw booking records for one property. Satisfied by
// *bookster.Client; tests substitute a fake.
type Source interface {
	BookingsForProperty(ctx context.Context, propertyID string) ([]booking.Record, error)
}

// Property is one feed target.
type Property struct {
	ID   string
	Name string
}

// Generator runs the fetch -> normalize -> render -> write pipeline
// for a set of properties. Properties are independent; one failing
// never stops the others.
type Generator struct {
	Source     Source
	Normalizer *booking.Normalizer
	Renderer   *Renderer

	// OutDir receives <propertyID>.ics files (and index.html).
	OutDir string

	// SplitDays selects per-day events instead of one event per stay.
	SplitDays bool

	// WriteEmptyOnError replaces an existing feed with a valid empty
	// document when the fetch fails. The default (false) keeps the
	// previous feed on disk so subscribers see stale data instead of
	// none; a missing feed is always created as an empty placeholder.
	WriteEmptyOnError bool

	// WriteIndex emits an index.html linking the generated feeds.
	WriteIndex bool
}

// Run generates all feeds once. It returns the paths written and the
// per-property errors encountered; a non-empty error slice with some
// written paths is the normal partial-failure outcome.
func (g *Generator) Run(ctx context.Context, properties []Property) ([]string, []error) {
	if err := os.MkdirAll(g.OutDir, 0o755); err != nil {
		return nil, []error{fmt.Errorf("create output dir: %w", err)}
	}

	written := make([]string, 0, len(properties))
	var errs []error

	for _, prop := range properties {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		path, err := g.generateOne(ctx, prop)
		if err != nil {
			errs = append(errs, fmt.Errorf("property %s: %w", prop.ID, err))
			log.Error("feed generation failed", err, "property", prop.ID)
		}
		if path != "" {
			written = append(written, path)
		}
	}

	if g.WriteIndex {
		if err := g.writeIndex(properties); err != nil {
			errs = append(errs, fmt.Errorf("index: %w", err))
		}
	}

	return written, errs
}

func (g *Generator) generateOne(ctx context.Context, prop Property) (string, error) {
	path := filepath.Join(g.OutDir, prop.ID+".ics")

	records, err := g.Source.BookingsForProperty(ctx, prop.ID)
	if err != nil {
		if !g.WriteEmptyOnError && fileExists(path) {
			log.Warn("fetch failed, keeping previous feed", "property", prop.ID, "path", path)
			return "", err
		}
		// A subscription URL that 404s breaks clients; an empty but
		// valid calendar does not.
		empty := g.Renderer.Render(nil, g.feedTitle(prop, nil), g.SplitDays)
		if werr := writeAtomic(path, empty); werr != nil {
			return "", fmt.Errorf("placeholder write: %w (after fetch error: %v)", werr, err)
		}
		log.Warn("fetch failed, wrote empty placeholder feed", "property", prop.ID, "path", path)
		return path, err
	}

	bookings := g.Normalizer.NormalizeAll(records)
	body := g.Renderer.Render(bookings, g.feedTitle(prop, bookings), g.SplitDays)
	if err := writeAtomic(path, body); err != nil {
		return "", err
	}

	log.Info("feed written", "property", prop.ID, "path", path,
		"records", len(records), "bookings", len(bookings))
	return path, nil
}

// feedTitle prefers the configured property name, then the name the
// records themselves carry, then the bare ID.
func (g *Generator) feedTitle(prop Property, bookings []booking.Booking) string {
	name := prop.Name
	if name == "" {
		for _, b := range bookings {
			if b.PropertyName != "" {
				name = b.PropertyName
				break
			}
		}
	}
	if name == "" {
		name = prop.ID
	}
	return name + " - Guests"
}

func (g *Generator) writeIndex(properties []Property) error {
	var b strings.Builder
	b.WriteString("<h1>Booking Feeds</h1>\n")
	for _, prop := range properties {
		fmt.Fprintf(&b, "<p><a href='%s.ics'>%s.ics</a></p>\n", prop.ID, prop.ID)
	}
	return writeAtomic(filepath.Join(g.OutDir, "index.html"), []byte(b.String()))
}

// writeAtomic writes via a temp file in the same directory plus
// rename, so a subscriber polling mid-write never sees a torn feed.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".bookcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
