// Package diffutil compares two sets of hotkey bindings for reload reports.
package diffutil

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeKind classifies one binding difference.
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Changed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "+"
	case Removed:
		return "-"
	default:
		return "~"
	}
}

// Binding is one line of a comparison: a unique name and its rendered
// details (keys, action, state).
type Binding struct {
	Name    string
	Details string
}

// Change is a single binding difference. Old is empty for Added, New for Removed.
type Change struct {
	Kind ChangeKind
	Name string
	Old  string
	New  string
}

func (c Change) String() string {
	switch c.Kind {
	case Added:
		return fmt.Sprintf("+ %s: %s", c.Name, c.New)
	case Removed:
		return fmt.Sprintf("- %s: %s", c.Name, c.Old)
	default:
		return fmt.Sprintf("~ %s: %s -> %s", c.Name, c.Old, c.New)
	}
}

const sep = "\t"

func render(bs []Binding) string {
	lines := make([]string, 0, len(bs))
	for _, b := range bs {
		lines = append(lines, b.Name+sep+b.Details+"\n")
	}
	sort.Strings(lines)
	return strings.Join(lines, "")
}

// Compare diffs the bindings line by line. A removal and an insertion with the
// same name collapse into one Changed entry. Changes are sorted by name.
func Compare(before, after []Binding) []Change {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 5 * time.Second

	a, b, lineArray := dmp.DiffLinesToChars(render(before), render(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	removed := make(map[string]string)
	added := make(map[string]string)
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			name, details, _ := strings.Cut(line, sep)
			if d.Type == diffmatchpatch.DiffDelete {
				removed[name] = details
			} else {
				added[name] = details
			}
		}
	}

	var changes []Change
	for name, details := range removed {
		if nd, ok := added[name]; ok {
			changes = append(changes, Change{Kind: Changed, Name: name, Old: details, New: nd})
			delete(added, name)
			continue
		}
		changes = append(changes, Change{Kind: Removed, Name: name, Old: details})
	}
	for name, details := range added {
		changes = append(changes, Change{Kind: Added, Name: name, New: details})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	return changes
}

// Summary renders changes for a notification: one count line followed by
// one line per change.
func Summary(changes []Change) string {
	if len(changes) == 0 {
		return "No hotkey changes."
	}
	var added, removed, changed int
	for _, c := range changes {
		switch c.Kind {
		case Added:
			added++
		case Removed:
			removed++
		case Changed:
			changed++
		}
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d added, %d removed, %d changed", added, removed, changed)
	for _, c := range changes {
		buf.WriteString("\n")
		buf.WriteString(c.String())
	}
	return buf.String()
}
