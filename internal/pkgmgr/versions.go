package pkgmgr

import (
	goversion "github.com/hashicorp/go-version"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// resolveAction compares the installed version against the latest known
// online version and derives the UI hint. Unparsable versions degrade
// silently to ActionStatus; version strings in the wild are too varied for
// a comparison failure to be worth surfacing as an error.
func resolveAction(installed, online string) types.PackageAction {
	if installed == "" || online == "" {
		return types.ActionStatus
	}
	iv, err := goversion.NewVersion(installed)
	if err != nil {
		return types.ActionStatus
	}
	ov, err := goversion.NewVersion(online)
	if err != nil {
		return types.ActionStatus
	}
	if ov.GreaterThan(iv) {
		return types.ActionUpdate
	}
	return types.ActionStatus
}

// annotateOnline folds an index lookup result into a record.
func annotateOnline(rec *types.PackageRecord, onlineVersion string) {
	if onlineVersion == "" {
		rec.Action = types.ActionStatus
		return
	}
	rec.Action = resolveAction(rec.Version, onlineVersion)
	if rec.Action == types.ActionUpdate {
		rec.AvailableVersion = onlineVersion
	}
}
