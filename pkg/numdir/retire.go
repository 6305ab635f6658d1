package numdir

import (
	"fmt"
	"math"
	"path/filepath"
)

// halfRange splits the uint16 ring into a keep arc and a delete arc.
const halfRange = math.MaxUint16 / 2

// retirementWindow returns the first number to keep and the first number to
// delete for a series whose newest entry is current.
func retirementWindow(current uint16, keep uint8) (oldestToKeep, oldestToDelete uint16) {
	oldestToKeep = current - uint16(keep) + 1
	oldestToDelete = current + halfRange
	if oldestToKeep == oldestToDelete {
		panic(fmt.Sprintf("numdir: ambiguous retirement window for current=%d keep=%d", current, keep))
	}
	return oldestToKeep, oldestToDelete
}

// Obsolete reports whether number falls outside the window of keep entries
// ending at current. Numbers up to half the range ahead of current are never
// obsolete: they belong to allocations racing with this one.
func Obsolete(number, current uint16, keep uint8) bool {
	oldestToKeep, oldestToDelete := retirementWindow(current, keep)
	if oldestToKeep < oldestToDelete {
		return number < oldestToKeep || number >= oldestToDelete
	}
	return number < oldestToKeep && number >= oldestToDelete
}

// PlanRetirement lists the entries Retire would remove.
func (a *Allocator) PlanRetirement(parent, base string, current uint16, keep uint8) ([]Entry, error) {
	entries, err := a.ListEntries(parent, base)
	if err != nil {
		return nil, err
	}
	var obsolete []Entry
	for entry := range entries {
		if Obsolete(entry.Number, current, keep) {
			obsolete = append(obsolete, entry)
		}
	}
	return obsolete, nil
}

// Retire removes every entry of the base series in parent that is obsolete
// relative to current, keeping keep entries ending at current. A keep of 0
// removes current too.
//
// Removal continues past failures; all of them are reported together in a
// *RetirementError.
func (a *Allocator) Retire(parent, base string, current uint16, keep uint8) error {
	obsolete, err := a.PlanRetirement(parent, base, current, keep)
	if err != nil {
		return err
	}

	var failures []RemoveFailure
	for _, entry := range obsolete {
		path := filepath.Join(parent, entry.Name)
		if err := a.fs.RemoveAll(path); err != nil {
			a.logger.Warn().Err(err).Str("path", path).Msg("failed to remove obsolete directory")
			failures = append(failures, RemoveFailure{Path: path, Err: err})
			continue
		}
		a.logger.Info().Str("path", path).Msg("retired")
	}

	if len(failures) > 0 {
		return &RetirementError{Failures: failures}
	}
	return nil
}
