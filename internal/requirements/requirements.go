// Package requirements implements the requirements-file lifecycle: parsing,
// validation, generation, and atomic persistence of the line-oriented
// `name[specifier version]` text format.
package requirements

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// Entry is one data line of a requirements document. Constraint keeps the
// specifier characters ("==1.24.0", ">=2.0") or is empty when unconstrained.
type Entry struct {
	Name       string
	Constraint string
}

// Spec returns the entry as a single install argument.
func (e Entry) Spec() string {
	return e.Name + e.Constraint
}

// Document is an ordered name -> constraint mapping. Names are unique with
// case-insensitive comparison; the first occurrence wins.
type Document struct {
	entries []Entry
	seen    map[string]struct{}
}

func NewDocument() *Document {
	return &Document{seen: make(map[string]struct{})}
}

// Add appends an entry unless the name was already present.
func (d *Document) Add(name, constraint string) bool {
	key := types.PackageKey(name)
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	d.entries = append(d.entries, Entry{Name: name, Constraint: constraint})
	return true
}

// Constraint reports the constraint recorded for a name.
func (d *Document) Constraint(name string) (string, bool) {
	if _, ok := d.seen[types.PackageKey(name)]; !ok {
		return "", false
	}
	for _, e := range d.entries {
		if types.PackageKey(e.Name) == types.PackageKey(name) {
			return e.Constraint, true
		}
	}
	return "", false
}

// Entries returns the entries in document order.
func (d *Document) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

func (d *Document) Len() int { return len(d.entries) }

// specifierChars are the characters that start a version constraint.
const specifierChars = "=><~!"

// Parse reads a requirements text. Comment lines (#), option lines (-) and
// blank lines are dropped. A data line splits at the first specifier
// character; everything from that character on is the constraint.
func Parse(text string) *Document {
	doc := NewDocument()
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		name, constraint := line, ""
		if idx := strings.IndexAny(line, specifierChars); idx >= 0 {
			name = strings.TrimSpace(line[:idx])
			constraint = strings.TrimSpace(line[idx:])
		}
		if name == "" {
			continue
		}
		doc.Add(name, constraint)
	}
	return doc
}

// ParseFile reads and parses a requirements file from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requirements file %s: %w", path, err)
	}
	return Parse(string(data)), nil
}

var (
	namePattern       = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	constraintPattern = regexp.MustCompile(`^[=><~!]+[\w.\-+]+.*$`)
)

// ValidationResult collects the outcome of validating a document. A
// malformed file is operator input, so problems come back as strings and
// never as an error value.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks every entry's name and constraint against the accepted
// grammar.
func Validate(doc *Document) ValidationResult {
	result := ValidationResult{Valid: true}
	for i, e := range doc.entries {
		if !namePattern.MatchString(e.Name) {
			result.Valid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("entry %d: invalid package name %q", i+1, e.Name))
		}
		if e.Constraint != "" && !constraintPattern.MatchString(e.Constraint) {
			result.Valid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("entry %d: invalid version constraint %q for %s", i+1, e.Constraint, e.Name))
		}
	}
	return result
}

// Generate renders an environment's package collection as a requirements
// document: a header block, then packages grouped by category with
// alphabetically sorted lines inside each group.
func Generate(env *types.Environment, includeVersions bool) string {
	records := env.Packages()

	groups := make(map[types.Category][]*types.PackageRecord)
	for _, rec := range records {
		cat := rec.Category
		if cat == "" {
			cat = types.CategoryUncategorized
		}
		groups[cat] = append(groups[cat], rec)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Requirements for environment: %s\n", env.Name)
	fmt.Fprintf(&b, "# Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	if env.PythonVersion != "" {
		fmt.Fprintf(&b, "# Python: %s\n", env.PythonVersion)
	}
	fmt.Fprintf(&b, "# Packages: %d\n", len(records))

	for _, cat := range types.Categories {
		recs := groups[cat]
		if len(recs) == 0 {
			continue
		}
		sort.Slice(recs, func(i, j int) bool {
			return types.PackageKey(recs[i].Name) < types.PackageKey(recs[j].Name)
		})
		fmt.Fprintf(&b, "\n# %s\n", cat)
		for _, rec := range recs {
			if includeVersions && rec.Version != "" {
				fmt.Fprintf(&b, "%s==%s\n", rec.Name, rec.Version)
			} else {
				fmt.Fprintf(&b, "%s\n", rec.Name)
			}
		}
	}
	return b.String()
}

// WriteFile persists content at path atomically: the bytes land in a
// temporary file that is renamed over the target, so a crash mid-write
// never leaves a truncated file at the canonical path.
func WriteFile(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create requirements directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".requirements-*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary requirements file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write requirements file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close requirements file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("set requirements file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace requirements file %s: %w", path, err)
	}
	logging.Requirements("Wrote requirements file %s", path)
	return nil
}

// GenerateToFile renders and atomically persists the environment's
// collection, recording the document path on the environment.
func GenerateToFile(env *types.Environment, path string, includeVersions bool) error {
	if err := WriteFile(path, Generate(env, includeVersions)); err != nil {
		return err
	}
	env.RequirementsPath = path
	return nil
}
