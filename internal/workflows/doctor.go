package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/secrets"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	VaultPath string

	// AuditPath is empty when auditing is disabled.
	AuditPath string
}

// Doctor runs health checks on an opened vault. It never prompts: the
// checks read only what is stored in clear (hash suffix, bundle layout,
// file modes).
//
// The doctor workflow checks:
//   - Vault file and directory permissions
//   - Master key presence and hash algorithm
//   - Ciphertext bundle layout of every record
//   - Audit log permissions
//
// Storage failures are reported as failed checks. The only error returned
// is a cancelled context.
func Doctor(ctx context.Context, v *Vault, opts DoctorOptions) (*DoctorResult, error) {
	checks := []func() CheckResult{
		func() CheckResult {
			return checkPrivatePermissions("Vault file permissions", "Vault file", opts.VaultPath, 0600)
		},
		func() CheckResult {
			return checkPrivatePermissions("Vault directory permissions", "Vault directory", filepath.Dir(opts.VaultPath), 0700)
		},
		func() CheckResult { return v.checkMasterKey(ctx) },
		func() CheckResult { return v.checkCiphertexts(ctx) },
		func() CheckResult { return checkAuditLog(opts.AuditPath) },
	}

	var results []CheckResult
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, check())
	}

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     calculateDoctorSummary(results),
		Suggestions: suggestions,
	}, nil
}

// checkPrivatePermissions warns when group or others can access path.
func checkPrivatePermissions(name, label, path string, want os.FileMode) CheckResult {
	info, err := os.Stat(path)
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Cannot inspect %s: %v", strings.ToLower(label), err),
			Suggestion: "Check that " + path + " exists and is accessible",
		}
	}

	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%s is accessible to other users (%04o)", label, mode),
			Suggestion: fmt.Sprintf("Run 'chmod %o %s' to fix permissions", want, path),
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("%s is private (%04o)", label, mode),
	}
}

func (v *Vault) checkMasterKey(ctx context.Context) CheckResult {
	const name = "Master key"

	stored, err := v.Store.MasterKey(ctx)
	if errors.Is(err, kerrors.ErrRecordNotFound) {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    "No master passphrase has been chosen yet",
			Suggestion: "Run 'kaitiaki' to choose a master passphrase",
		}
	}
	if err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: "Cannot read master key: " + err.Error()}
	}

	algorithm, err := secrets.IdentifyHash(stored)
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    "Master key hash format is not recognised",
			Suggestion: "Check that the vault path points at a kaitiaki vault",
		}
	}
	if algorithm.Legacy() {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Master key uses the legacy %s hash", algorithm),
			Suggestion: fmt.Sprintf("Log in once to upgrade the master key hash to %s", secrets.StrongestHashAlgorithm),
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Master key is hashed with %s", algorithm),
	}
}

func (v *Vault) checkCiphertexts(ctx context.Context) CheckResult {
	const name = "Ciphertexts"

	records, err := v.Store.List(ctx)
	if err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: "Cannot list records: " + err.Error()}
	}

	var malformed []string
	for _, r := range records {
		bundle, err := secrets.ParseBundle(r.Password)
		if err == nil {
			err = bundle.Validate()
		}
		if err != nil {
			v.Logger.Debugf("Record %d: %v", r.ID, err)
			malformed = append(malformed, strconv.FormatInt(r.ID, 10))
		}
	}

	if len(malformed) > 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("%d record(s) hold malformed ciphertext: %s", len(malformed), strings.Join(malformed, ", ")),
			Suggestion: "Delete the affected records and add them again",
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("All %d record(s) hold well-formed ciphertext", len(records)),
	}
}

func checkAuditLog(path string) CheckResult {
	const name = "Audit log"

	if path == "" {
		return CheckResult{Name: name, Status: CheckPass, Message: "Audit trail is disabled"}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return CheckResult{Name: name, Status: CheckPass, Message: "Audit log has no entries yet"}
	}
	return checkPrivatePermissions(name, "Audit log", path, 0600)
}

// calculateDoctorSummary counts check results by status.
func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
