package dbmigrator

import (
	"context"
	"sort"
	"time"
)

// ScriptStatus pairs a script with its bookkeeping record, if any. Missing is
// set for records whose script file is no longer in the directory.
type ScriptStatus struct {
	Name      string
	Applied   bool
	AppliedAt time.Time
	Missing   bool
}

// Status reports, in ascending name order, every script in dirPath and every
// recorded script, without changing the database.
func (m *Migrator) Status(ctx context.Context, db Queryer, dirPath string) ([]ScriptStatus, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if m.Dialect == nil {
		return nil, Configurationf("no dialect configured")
	}
	scripts, err := ScriptsFromDirectoryPath(dirPath, m.Dialect.Extensions())
	if err != nil {
		return nil, err
	}
	applied, err := m.GetAppliedScripts(ctx, db)
	if err != nil {
		return nil, err
	}

	statuses := make([]ScriptStatus, 0, len(scripts))
	seen := make(map[string]bool, len(scripts))
	for _, script := range scripts {
		seen[script.Name] = true
		status := ScriptStatus{Name: script.Name}
		if record, ok := applied[script.Name]; ok {
			status.Applied = true
			status.AppliedAt = record.AppliedAt
		}
		statuses = append(statuses, status)
	}
	for name, record := range applied {
		if !seen[name] {
			statuses = append(statuses, ScriptStatus{Name: name, Applied: true, AppliedAt: record.AppliedAt, Missing: true})
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses, nil
}
