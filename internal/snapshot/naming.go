package snapshot

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/melih-ucgun/botsnap/internal/archive"
	"github.com/melih-ucgun/botsnap/internal/consts"
)

// Archive is one archive file in the archive directory.
type Archive struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
	Seq       int       `json:"seq,omitempty"`
	Size      int64     `json:"size"`
}

var archiveNameRe = regexp.MustCompile(`^(` + consts.TagSnapshot + `|` + consts.TagPreRestore + `)_(\d{8}_\d{6})(?:_(\d+))?(\.tar\.gz|\.tar\.zst)$`)

// FormatName returns <tag>_<YYYYMMDD_HHMMSS>[_<seq>]<ext>. Timestamps are
// UTC so names sort in creation order across DST changes.
func FormatName(tag string, t time.Time, seq int, compression string) string {
	name := tag + "_" + t.UTC().Format(consts.TimestampLayout)
	if seq > 0 {
		name += "_" + strconv.Itoa(seq)
	}
	return name + archive.Extension(compression)
}

// ParseName extracts tag, timestamp and sequence from an archive file name.
func ParseName(name string) (Archive, error) {
	m := archiveNameRe.FindStringSubmatch(name)
	if m == nil {
		return Archive{}, fmt.Errorf("%q is not an archive name", name)
	}
	ts, err := time.ParseInLocation(consts.TimestampLayout, m[2], time.UTC)
	if err != nil {
		return Archive{}, fmt.Errorf("bad timestamp in %q: %w", name, err)
	}
	a := Archive{Name: name, Tag: m[1], CreatedAt: ts}
	if m[3] != "" {
		if a.Seq, err = strconv.Atoi(m[3]); err != nil {
			return Archive{}, fmt.Errorf("bad sequence in %q: %w", name, err)
		}
	}
	return a, nil
}

// SortNewestFirst orders by timestamp then sequence, both descending.
// Exact ties keep their listing order.
func SortNewestFirst(archives []Archive) {
	sort.SliceStable(archives, func(i, j int) bool {
		if !archives[i].CreatedAt.Equal(archives[j].CreatedAt) {
			return archives[i].CreatedAt.After(archives[j].CreatedAt)
		}
		return archives[i].Seq > archives[j].Seq
	})
}
