// Package profile holds a catalog of named device-size presets for the
// --profile CLI flag, loaded from an embedded CSV file.
//
// Grounded on dargueta/disko's disks.DiskGeometry / GetPredefinedDiskGeometry
// (embedded CSV decoded once via gocarina/gocsv's UnmarshalToCallback into a
// map keyed by slug), generalized from disk head/track/sector geometry to
// this filesystem's own total-block sizing.
package profile

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/ratsfs/ratsfs"
)

// Profile names one predefined backing-device size.
type Profile struct {
	Name        string `csv:"name"`
	Slug        string `csv:"slug"`
	TotalBlocks uint   `csv:"total_blocks"`
	Description string `csv:"description"`
}

// SizeBytes is the device size this profile implies, in bytes.
func (p Profile) SizeBytes() int64 {
	return int64(p.TotalBlocks) * ratsfs.BlockSize
}

//go:embed profiles.csv
var rawCSV string

var profiles map[string]Profile

func init() {
	profiles = make(map[string]Profile)
	reader := strings.NewReader(rawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Profile) error {
		if _, exists := profiles[row.Slug]; exists {
			return fmt.Errorf("duplicate profile slug %q", row.Slug)
		}
		profiles[row.Slug] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}

// Get looks up a profile by slug.
func Get(slug string) (Profile, error) {
	p, ok := profiles[slug]
	if !ok {
		return Profile{}, fmt.Errorf("no predefined device profile named %q", slug)
	}
	return p, nil
}

// List returns every known profile, sorted by slug.
func List() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
