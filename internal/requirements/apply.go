package requirements

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// Installer is the slice of the operation engine that applying a document
// needs.
type Installer interface {
	Install(ctx context.Context, spec string) (bool, error)
}

// InstallDocument applies every entry of a document through the installer.
// It is partial-failure tolerant: a failed entry does not stop the rest,
// the returned flag is false if any single install failed, and the error
// aggregates per-entry failures. Cancellation and busy rejection abort the
// whole run.
func InstallDocument(ctx context.Context, inst Installer, doc *Document) (bool, error) {
	allOK := true
	var agg error
	for _, e := range doc.Entries() {
		ok, err := inst.Install(ctx, e.Spec())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, types.ErrBusy) {
				return false, multierr.Append(agg, err)
			}
			allOK = false
			agg = multierr.Append(agg, fmt.Errorf("install %s: %w", e.Spec(), err))
			continue
		}
		if !ok {
			allOK = false
			agg = multierr.Append(agg, fmt.Errorf("install %s failed", e.Spec()))
		}
	}
	return allOK, agg
}

// InstallFromFile parses, validates, and applies a requirements file. A
// document that fails validation is rejected before anything installs.
func InstallFromFile(ctx context.Context, inst Installer, path string) (bool, error) {
	doc, err := ParseFile(path)
	if err != nil {
		return false, err
	}
	if result := Validate(doc); !result.Valid {
		return false, types.NewConfigurationError(
			"requirements file %s is invalid: %s", path, result.Errors[0])
	}
	logging.Requirements("Applying %d entries from %s", doc.Len(), path)
	return InstallDocument(ctx, inst, doc)
}
