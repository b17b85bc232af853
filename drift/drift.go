// Package drift compares emitted artifacts with what is on disk and decides,
// per file, whether writing is needed and whether it is safe.
//
// A file is safe to overwrite only while the generator still owns it: it
// carries a marker in state=generated whose fingerprint matches its body.
// Anything else is a Conflict and is never written.
package drift

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/bridgegen/emit"
	"github.com/teranos/bridgegen/errors"
)

// LockFile is created in the output directory to serialise writers across processes.
const LockFile = ".bridgegen.lock"

// tempPrefix marks in-flight atomic writes.
const tempPrefix = ".bridgegen-"

// Outcome is the drift decision for one file.
type Outcome string

const (
	Unchanged Outcome = "unchanged"
	Stale     Outcome = "stale"
	Conflict  Outcome = "conflict"
)

// Result is the decision for one artifact or orphan.
type Result struct {
	Path    string // slash-separated, relative to the output directory
	Unit    string
	Outcome Outcome
	Reason  string

	// Artifact is the fresh content; nil for orphans.
	Artifact *emit.Artifact

	// Current is the on-disk content; nil when the file does not exist.
	Current []byte

	// Written and Removed report what Apply did.
	Written bool
	Removed bool
}

// Orphan reports whether the file is no longer produced by any unit.
func (r Result) Orphan() bool { return r.Artifact == nil }

// Detector decides outcomes for one output directory.
type Detector struct {
	Dir string

	// Running is the generator version. Nil (a development build) disables
	// the newer-major check.
	Running *semver.Version

	// Force downgrades bodies edited without re-marking to Stale. An explicit
	// state=edited is never overwritten.
	Force bool
}

// Check decides every artifact, then scans for orphans. Results are sorted
// by path.
func (d *Detector) Check(artifacts []emit.Artifact) ([]Result, error) {
	results := make([]Result, 0, len(artifacts))
	for i := range artifacts {
		r, err := d.Decide(&artifacts[i])
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	orphans, err := d.Orphans(artifacts)
	if err != nil {
		return nil, err
	}
	results = append(results, orphans...)
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}

// Decide reads the artifact's target and decides its outcome.
func (d *Detector) Decide(a *emit.Artifact) (Result, error) {
	current, exists, err := d.read(a.Path)
	if err != nil {
		return Result{}, err
	}
	outcome, reason := Decide(current, exists, *a, d.Running, d.Force)
	return Result{Path: a.Path, Unit: a.Unit, Outcome: outcome, Reason: reason, Artifact: a, Current: current}, nil
}

// Decide is the pure decision for fresh artifact a against the current
// content of its target.
func Decide(current []byte, exists bool, a emit.Artifact, running *semver.Version, force bool) (Outcome, string) {
	if !exists {
		return Stale, "missing"
	}
	if bytes.Equal(current, a.Content) {
		return Unchanged, ""
	}
	m, body, ok := emit.ParseMarker(current)
	if !ok {
		return Conflict, "no bridgegen marker; the file was not generated or its header was edited"
	}
	actual := emit.BodyFingerprint(normalizeEOL(body))
	if actual == a.Fingerprint {
		// Same body, different header: another generator version or a
		// developer-owned file that already matches.
		return Unchanged, ""
	}
	if reason, forceable, owned := ownership(m, actual, running); owned {
		if force && forceable {
			return Stale, reason + " (forced)"
		}
		return Conflict, reason
	}
	return Stale, "out of date"
}

// ownership reports whether the file left the generator's ownership and why.
// Only an unmarked body edit is forceable.
func ownership(m emit.Marker, actual string, running *semver.Version) (reason string, forceable, owned bool) {
	if m.State == emit.StateEdited {
		return "marked state=edited", false, true
	}
	if newerMajor(m.Version, running) {
		return "written by bridgegen " + m.Version + ", newer than " + running.String(), false, true
	}
	if m.Fingerprint != actual {
		return "edited without re-marking", true, true
	}
	return "", false, false
}

func newerMajor(version string, running *semver.Version) bool {
	if running == nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return v.Major() > running.Major()
}

// Orphans lists marked files in the output directory that no artifact
// produces any more. Untouched orphans are Stale; edited ones Conflict.
func (d *Detector) Orphans(artifacts []emit.Artifact) ([]Result, error) {
	entries, err := os.ReadDir(d.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.IO(d.Dir, err)
	}
	produced := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		produced[a.Path] = true
	}

	var out []Result
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || produced[name] || name == LockFile || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		current, exists, err := d.read(name)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		r, ours := decideOrphan(name, current, d.Running, d.Force)
		if ours {
			out = append(out, r)
		}
	}
	return out, nil
}

// decideOrphan decides a file no artifact produces. Files without a marker
// are not ours and are ignored.
func decideOrphan(path string, current []byte, running *semver.Version, force bool) (Result, bool) {
	m, body, ok := emit.ParseMarker(current)
	if !ok {
		return Result{}, false
	}
	r := Result{Path: path, Unit: m.Unit, Current: current, Outcome: Stale, Reason: "orphan"}
	actual := emit.BodyFingerprint(normalizeEOL(body))
	if reason, forceable, owned := ownership(m, actual, running); owned {
		r.Outcome, r.Reason = Conflict, "orphan "+reason
		if force && forceable {
			r.Outcome, r.Reason = Stale, "orphan "+reason+" (forced)"
		}
	}
	return r, true
}

func (d *Detector) read(path string) ([]byte, bool, error) {
	full := filepath.Join(d.Dir, filepath.FromSlash(path))
	content, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.IO(full, err)
	}
	return content, true, nil
}

// normalizeEOL undoes CRLF conversion by editors and checkouts so it does not
// read as a manual edit.
func normalizeEOL(b []byte) []byte {
	if !bytes.Contains(b, []byte("\r\n")) {
		return b
	}
	return bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
}
