package dedupe

import (
	"fmt"
	"os"

	"mediadex/internal/report"
	"mediadex/internal/util"
)

// Safety check names, in execution order.
const (
	CheckKeepExists       = "keep-exists"
	CheckHasDeletions     = "has-deletions"
	CheckKeepIsBest       = "keep-is-best"
	CheckTargetsExist     = "targets-exist"
	CheckSurvivorRemains  = "survivor-remains"
	CheckDeletePermission = "delete-permission"
	CheckBackupSpace      = "backup-space"
)

// CheckResult is the outcome of one named safety check. A failed result
// with Warning set is advisory: it is reported but does not block the
// group, so a deliberately re-planned group is not permanently stuck.
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Warning bool   `json:"warning,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Validator runs the safety checklist that gates every deletion group.
type Validator struct {
	backupDir string
	logger    *report.EventLogger
}

// NewValidator creates a validator that checks backup capacity against
// the given destination directory.
func NewValidator(backupDir string, logger *report.EventLogger) *Validator {
	if logger == nil {
		logger = report.NullLogger()
	}
	return &Validator{backupDir: backupDir, logger: logger}
}

// Validate runs every check in order and returns all results. A group is
// executable only when no hard check failed; FirstFailure names the gate
// that blocked it. The keep-is-best check warns instead of blocking.
func (v *Validator) Validate(g Group) []CheckResult {
	results := []CheckResult{
		v.checkKeepExists(g),
		v.checkHasDeletions(g),
		v.checkKeepIsBest(g),
		v.checkTargetsExist(g),
		v.checkSurvivorRemains(g),
		v.checkDeletePermission(g),
		v.checkBackupSpace(g),
	}

	for _, r := range results {
		if !r.Passed {
			v.logger.LogValidate(g.Keep.File.Path, r.Name, r.Reason)
		}
	}
	return results
}

// FirstFailure returns the first failed hard check, or nil when the group
// is executable. Warning-class results never block.
func FirstFailure(results []CheckResult) *CheckResult {
	for i := range results {
		if !results[i].Passed && !results[i].Warning {
			return &results[i]
		}
	}
	return nil
}

// Warnings returns the advisory failures so callers can surface them.
func Warnings(results []CheckResult) []CheckResult {
	var out []CheckResult
	for _, r := range results {
		if !r.Passed && r.Warning {
			out = append(out, r)
		}
	}
	return out
}

func (v *Validator) checkKeepExists(g Group) CheckResult {
	r := CheckResult{Name: CheckKeepExists, Passed: true}
	if _, err := os.Lstat(g.Keep.File.Path); err != nil {
		r.Passed = false
		r.Reason = fmt.Sprintf("kept file %s is not on disk: %v", g.Keep.File.Path, err)
	}
	return r
}

func (v *Validator) checkHasDeletions(g Group) CheckResult {
	r := CheckResult{Name: CheckHasDeletions, Passed: true}
	if len(g.Deletes) == 0 {
		r.Passed = false
		r.Reason = "group has nothing to delete"
	}
	return r
}

// checkKeepIsBest is advisory: an outranked keep usually means the plan
// went stale, but a caller that re-planned deliberately may still proceed.
func (v *Validator) checkKeepIsBest(g Group) CheckResult {
	r := CheckResult{Name: CheckKeepIsBest, Passed: true, Warning: true}
	for _, d := range g.Deletes {
		if d.Score.Total > g.Keep.Score.Total {
			r.Passed = false
			r.Reason = fmt.Sprintf("%s scores %d, higher than kept %s at %d",
				d.File.Path, d.Score.Total, g.Keep.File.Path, g.Keep.Score.Total)
			return r
		}
	}
	return r
}

func (v *Validator) checkTargetsExist(g Group) CheckResult {
	r := CheckResult{Name: CheckTargetsExist, Passed: true}
	for _, d := range g.Deletes {
		if _, err := os.Lstat(d.File.Path); err != nil {
			r.Passed = false
			r.Reason = fmt.Sprintf("deletion target %s is not on disk: %v", d.File.Path, err)
			return r
		}
	}
	return r
}

func (v *Validator) checkSurvivorRemains(g Group) CheckResult {
	r := CheckResult{Name: CheckSurvivorRemains, Passed: true}
	for _, d := range g.Deletes {
		if d.File.Path == g.Keep.File.Path {
			r.Passed = false
			r.Reason = fmt.Sprintf("kept file %s is also marked for deletion", g.Keep.File.Path)
			return r
		}
	}
	return r
}

func (v *Validator) checkDeletePermission(g Group) CheckResult {
	r := CheckResult{Name: CheckDeletePermission, Passed: true}
	for _, d := range g.Deletes {
		if !util.CanRemove(d.File.Path) {
			r.Passed = false
			r.Reason = fmt.Sprintf("no write permission on the directory holding %s", d.File.Path)
			return r
		}
	}
	return r
}

func (v *Validator) checkBackupSpace(g Group) CheckResult {
	r := CheckResult{Name: CheckBackupSpace, Passed: true}

	var needed uint64
	for _, d := range g.Deletes {
		needed += uint64(d.File.SizeBytes)
	}

	free, err := util.FreeSpace(v.backupDir)
	if err != nil {
		r.Passed = false
		r.Reason = fmt.Sprintf("cannot determine free space at %s: %v", v.backupDir, err)
		return r
	}
	if free < needed {
		r.Passed = false
		r.Reason = fmt.Sprintf("backup destination %s has %d bytes free, need %d", v.backupDir, free, needed)
	}
	return r
}
