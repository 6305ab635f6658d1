package numdir

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"
)

// scanBatch is the number of directory entries read per ReadDir call.
const scanBatch = 64

// Entry is one directory entry named "{base}-{number}".
type Entry struct {
	Number uint16
	Name   string
}

// ListEntries returns the entries of parent that belong to the base series.
//
// Failing to open parent is returned as an error. The sequence itself never
// fails: names that are not UTF-8, lack the "{base}-" prefix or carry a
// suffix that is not a uint16 are skipped, and so are read errors on
// individual batches. Every range over the sequence reads the directory
// again. Order is whatever the platform returns.
func (a *Allocator) ListEntries(parent, base string) (iter.Seq[Entry], error) {
	d, err := a.fs.OpenDir(parent)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", parent, err)
	}
	_ = d.Close()

	prefix := base + "-"
	return func(yield func(Entry) bool) {
		d, err := a.fs.OpenDir(parent)
		if err != nil {
			a.logger.Debug().Err(err).Str("parent", parent).Msg("directory vanished between scans")
			return
		}
		defer d.Close()

		for {
			dirents, err := d.ReadDir(scanBatch)
			for _, dirent := range dirents {
				entry, ok := parseEntry(dirent.Name(), prefix)
				if !ok {
					continue
				}
				if !yield(entry) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && len(dirents) > 0 {
					continue
				}
				return
			}
			if len(dirents) == 0 {
				return
			}
		}
	}, nil
}

// parseEntry matches name against "{prefix}{uint16}".
func parseEntry(name, prefix string) (Entry, bool) {
	if !utf8.ValidString(name) {
		return Entry{}, false
	}
	suffix, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return Entry{}, false
	}
	n, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return Entry{}, false
	}
	return Entry{Number: uint16(n), Name: name}, true
}

// maxEntry returns the highest number in the series, or false if the series
// is empty.
func (a *Allocator) maxEntry(parent, base string) (uint16, bool, error) {
	entries, err := a.ListEntries(parent, base)
	if err != nil {
		return 0, false, err
	}
	var (
		current uint16
		found   bool
	)
	for entry := range entries {
		if !found || entry.Number > current {
			current = entry.Number
			found = true
		}
	}
	return current, found, nil
}
