package model

import "time"

// Layout is the static description of the source folder, the destination
// spreadsheet and the ranges and tabs a run touches. It is read-only during a
// run.
type Layout struct {
	DriveID       string
	FolderID      string
	SpreadsheetID string

	// SourceRange is read from every source document ("시트1"!B:D).
	SourceRange Range
	// TargetRange is replaced in each mapping's tab; its Sheet is ignored (A:C).
	TargetRange Range

	Mappings   []Mapping
	MasterTabs []MasterTab

	MetaSheet    string
	MetaRange    Range
	MetaOverride map[string]Column

	// PreferNameTimestamp ranks candidates by a YYMMDD[_HHMMSS] suffix in the
	// document name before their Drive timestamps.
	PreferNameTimestamp bool

	// Location is the timezone used for Master column period labels.
	Location *time.Location
}

// MappingForTab returns the mapping that populates tab.
func (l Layout) MappingForTab(tab string) (Mapping, bool) {
	for _, m := range l.Mappings {
		if m.TargetTab == tab {
			return m, true
		}
	}
	return Mapping{}, false
}

// MasterTab returns the Master tab configuration named tab.
func (l Layout) MasterTab(tab string) (MasterTab, bool) {
	for _, mt := range l.MasterTabs {
		if mt.Tab == tab {
			return mt, true
		}
	}
	return MasterTab{}, false
}
