package dbmigrator

import (
	"sort"
	"strings"
)

const (
	// UpMarker is the optional line which may precede the up section of a
	// script.
	UpMarker = "-- Up"

	// DownMarker is the line separating the up section of a script from its
	// down section. Every script must contain it exactly once.
	DownMarker = "-- Down"
)

// Direction selects whether scripts are applied or reverted.
type Direction string

const (
	// Up applies scripts which have not been applied yet, in ascending name
	// order.
	Up Direction = "up"

	// Down reverts applied scripts, in descending name order.
	Down Direction = "down"
)

// ParseDirection converts "up" or "down" (any case) to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", Configurationf("unknown direction '%s'", s)
}

// Script is one migration file, split into the SQL which applies the change
// and the SQL which reverts it. Name is the file name including its
// extension, and is the identity recorded in the bookkeeping table.
type Script struct {
	Name string
	Up   string
	Down string
}

// Body returns the SQL to execute for the given direction.
func (s *Script) Body(direction Direction) string {
	if direction == Down {
		return s.Down
	}
	return s.Up
}

// ParseScript splits the contents of a script file on its "-- Down" marker
// line. A "-- Up" marker line in the first section is dropped.
func ParseScript(name, contents string) (*Script, error) {
	lines := strings.Split(contents, "\n")

	split := -1
	markers := 0
	for i, line := range lines {
		if isMarker(line, DownMarker) {
			markers++
			split = i
		}
	}
	if markers != 1 {
		return nil, &MalformedScriptError{File: name, Markers: markers}
	}

	up := make([]string, 0, split)
	for _, line := range lines[:split] {
		if isMarker(line, UpMarker) {
			continue
		}
		up = append(up, line)
	}

	return &Script{
		Name: name,
		Up:   strings.TrimSpace(strings.Join(up, "\n")),
		Down: strings.TrimSpace(strings.Join(lines[split+1:], "\n")),
	}, nil
}

func isMarker(line, marker string) bool {
	return strings.TrimSpace(line) == marker
}

// SortScripts orders scripts by name: ascending for Up, descending for Down.
func SortScripts(scripts []*Script, direction Direction) {
	sort.SliceStable(scripts, func(i, j int) bool {
		if direction == Down {
			return scripts[i].Name > scripts[j].Name
		}
		return scripts[i].Name < scripts[j].Name
	})
}

// matchesTarget reports whether a --to value refers to this script. The value
// may be the full file name or the file name without its extension.
func (s *Script) matchesTarget(target string) bool {
	if s.Name == target {
		return true
	}
	dot := strings.LastIndex(s.Name, ".")
	return dot > 0 && s.Name[:dot] == target
}
