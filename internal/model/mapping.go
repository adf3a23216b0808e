package model

import "strings"

// Mapping binds a source-name prefix to the destination tab it populates.
type Mapping struct {
	Prefix          string   `toml:"prefix" yaml:"prefix" json:"prefix"`
	TargetTab       string   `toml:"target_tab" yaml:"target_tab" json:"target_tab"`
	ExcludePrefixes []string `toml:"exclude_prefixes" yaml:"exclude_prefixes" json:"exclude_prefixes,omitempty"`
}

// Matches reports whether a document name belongs to this mapping: it must
// start with Prefix and with none of ExcludePrefixes.
func (m Mapping) Matches(name string) bool {
	if !strings.HasPrefix(name, m.Prefix) {
		return false
	}
	for _, ex := range m.ExcludePrefixes {
		if ex != "" && strings.HasPrefix(name, ex) {
			return false
		}
	}
	return true
}

// MasterTab describes a Master tab tracked through Master_Meta.
//
// SourceTab names the extract tab the Master column is derived from; MetaRow is
// the 1-based Master_Meta row holding the pointer (0 = locate by scanning).
type MasterTab struct {
	Tab       string `toml:"tab" yaml:"tab" json:"tab"`
	SourceTab string `toml:"source_tab" yaml:"source_tab" json:"source_tab,omitempty"`
	MetaRow   int    `toml:"meta_row" yaml:"meta_row" json:"meta_row,omitempty"`
}
