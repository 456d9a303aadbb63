package daily

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/internal/content"
	"github.com/example/dailylove/internal/progress"
	"gopkg.in/yaml.v3"
)

// Policy is how a track's day advances
type Policy string

const (
	// PolicyExplicit advances one day each time the subject completes today's item.
	PolicyExplicit Policy = "explicit"
	// PolicyElapsed unlocks one more day every 24 hours since the subject started.
	PolicyElapsed Policy = "elapsed"
)

//go:embed catalog
var embedded embed.FS

// DefaultCatalogPath is the tracks file inside the embedded catalogue
const DefaultCatalogPath = "catalog/tracks.yaml"

// Track is one content track: a bank, how it advances and how long it runs
type Track struct {
	Name   string
	Title  string
	Policy Policy
	// MaxDay is N_MAX. It may exceed the bank size; the selector cycles the bank.
	MaxDay int
	Bank   *content.Bank
	// Personalized is the category-tagged bank used with a personalization context.
	// nil disables personalization for the track.
	Personalized *content.Bank
}

// Validate checks a track definition
func (t *Track) Validate() error {
	if err := progress.ValidateID("track", t.Name); err != nil {
		return err
	}
	if t.Policy != PolicyExplicit && t.Policy != PolicyElapsed {
		return apperr.Invalid("track %q: unknown policy %q", t.Name, t.Policy)
	}
	if t.MaxDay < 1 {
		return apperr.Invalid("track %q: max_day must be >= 1, got %d", t.Name, t.MaxDay)
	}
	if t.Bank.Len() == 0 {
		return fmt.Errorf("track %q: %w", t.Name, apperr.ErrEmptyContentBank)
	}
	return nil
}

// Catalog is the set of configured tracks
type Catalog struct {
	tracks map[string]*Track
	order  []string
}

// NewCatalog validates tracks and indexes them by name
func NewCatalog(tracks ...*Track) (*Catalog, error) {
	if len(tracks) == 0 {
		return nil, apperr.Invalid("no tracks configured")
	}
	c := &Catalog{tracks: make(map[string]*Track, len(tracks))}
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.tracks[t.Name]; dup {
			return nil, apperr.Invalid("duplicate track %q", t.Name)
		}
		c.tracks[t.Name] = t
		c.order = append(c.order, t.Name)
	}
	return c, nil
}

// Track looks a track up by name
func (c *Catalog) Track(name string) (*Track, error) {
	t, ok := c.tracks[name]
	if !ok {
		return nil, apperr.Invalid("unknown track %q", name)
	}
	return t, nil
}

// Tracks returns all tracks in configuration order
func (c *Catalog) Tracks() []*Track {
	out := make([]*Track, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tracks[name])
	}
	return out
}

type catalogFile struct {
	Tracks []trackFile `yaml:"tracks"`
}

type trackFile struct {
	Name             string `yaml:"name"`
	Title            string `yaml:"title"`
	Policy           Policy `yaml:"policy"`
	MaxDay           int    `yaml:"max_day"`
	Bank             string `yaml:"bank"`
	Personalized     bool   `yaml:"personalized"`
	PersonalizedBank string `yaml:"personalized_bank"`
}

// LoadCatalog reads a tracks file from fsys. Bank paths are relative to the tracks file.
func LoadCatalog(fsys fs.FS, tracksPath string) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, tracksPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tracks file: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tracks file %s: %w", tracksPath, err)
	}

	dir := path.Dir(tracksPath)
	tracks := make([]*Track, 0, len(f.Tracks))
	for _, tf := range f.Tracks {
		bank, err := content.LoadBank(fsys, path.Join(dir, tf.Bank))
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", tf.Name, err)
		}
		t := &Track{
			Name:   tf.Name,
			Title:  tf.Title,
			Policy: tf.Policy,
			MaxDay: tf.MaxDay,
			Bank:   bank,
		}
		switch {
		case tf.PersonalizedBank != "":
			t.Personalized, err = content.LoadBank(fsys, path.Join(dir, tf.PersonalizedBank))
			if err != nil {
				return nil, fmt.Errorf("track %q: %w", tf.Name, err)
			}
		case tf.Personalized:
			t.Personalized = bank
		}
		tracks = append(tracks, t)
	}
	return NewCatalog(tracks...)
}

// DefaultCatalog loads the catalogue compiled into the binary
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(embedded, DefaultCatalogPath)
}

// LoadCatalogFile loads a tracks file from disk; bank paths resolve against its directory
func LoadCatalogFile(tracksPath string) (*Catalog, error) {
	return LoadCatalog(os.DirFS(filepath.Dir(tracksPath)), filepath.Base(tracksPath))
}
