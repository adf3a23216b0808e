package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // timezone lookups in images without zoneinfo

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// File is the layout file: which documents feed which tabs and where the
// Master pointers live. Keys are the same in every supported format.
type File struct {
	DriveID       string `toml:"drive_id" yaml:"drive_id" json:"drive_id"`
	FolderID      string `toml:"folder_id" yaml:"folder_id" json:"folder_id"`
	TargetSheetID string `toml:"target_sheet_id" yaml:"target_sheet_id" json:"target_sheet_id"`

	SourceSheetName string `toml:"source_sheet_name" yaml:"source_sheet_name" json:"source_sheet_name"`
	SourceRange     string `toml:"source_range" yaml:"source_range" json:"source_range"`
	TargetRange     string `toml:"target_range" yaml:"target_range" json:"target_range"`

	Mappings   []model.Mapping   `toml:"mappings" yaml:"mappings" json:"mappings"`
	MasterTabs []model.MasterTab `toml:"master_tabs" yaml:"master_tabs" json:"master_tabs"`

	MasterMetaSheet    string            `toml:"master_meta_sheet" yaml:"master_meta_sheet" json:"master_meta_sheet"`
	MasterMetaRange    string            `toml:"master_meta_range" yaml:"master_meta_range" json:"master_meta_range"`
	MasterMetaRows     map[string]int    `toml:"master_meta_rows" yaml:"master_meta_rows" json:"master_meta_rows"`
	MasterMetaOverride map[string]string `toml:"master_meta_override" yaml:"master_meta_override" json:"master_meta_override"`

	MasterMaxRows         int `toml:"master_max_rows" yaml:"master_max_rows" json:"master_max_rows"`
	MasterChunkSize       int `toml:"master_chunk_size" yaml:"master_chunk_size" json:"master_chunk_size"`
	MasterFreezeChunkSize int `toml:"master_freeze_chunk_size" yaml:"master_freeze_chunk_size" json:"master_freeze_chunk_size"`

	PreferNameTimestamp bool   `toml:"prefer_name_timestamp" yaml:"prefer_name_timestamp" json:"prefer_name_timestamp"`
	Timezone            string `toml:"timezone" yaml:"timezone" json:"timezone"`
}

// File defaults.
const (
	DefaultSourceSheetName       = "시트1"
	DefaultSourceRange           = "B:D"
	DefaultTargetRange           = "A:C"
	DefaultMasterMetaSheet       = "Master_Meta"
	DefaultMasterMetaRange       = "A1:B10"
	DefaultMasterMaxRows         = 5000
	DefaultMasterChunkSize       = 500
	DefaultMasterFreezeChunkSize = 2000
	DefaultTimezone              = "Asia/Seoul"
)

// LoadFile decodes the layout file at path. The format follows the
// extension: .toml, .yaml/.yml or .json.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	f, err := ParseFile(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// ParseFile decodes data in the format named by ext and applies defaults.
func ParseFile(ext string, data []byte) (*File, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".toml", "":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	f.applyDefaults()
	return &f, nil
}

func (f *File) applyDefaults() {
	setDefault(&f.SourceSheetName, DefaultSourceSheetName)
	setDefault(&f.SourceRange, DefaultSourceRange)
	setDefault(&f.TargetRange, DefaultTargetRange)
	setDefault(&f.MasterMetaSheet, DefaultMasterMetaSheet)
	setDefault(&f.MasterMetaRange, DefaultMasterMetaRange)
	setDefault(&f.Timezone, DefaultTimezone)
	if f.MasterMaxRows == 0 {
		f.MasterMaxRows = DefaultMasterMaxRows
	}
	if f.MasterChunkSize == 0 {
		f.MasterChunkSize = DefaultMasterChunkSize
	}
	if f.MasterFreezeChunkSize == 0 {
		f.MasterFreezeChunkSize = DefaultMasterFreezeChunkSize
	}
	for i := range f.MasterTabs {
		if f.MasterTabs[i].MetaRow == 0 {
			f.MasterTabs[i].MetaRow = f.MasterMetaRows[f.MasterTabs[i].Tab]
		}
	}
}

func setDefault(s *string, v string) {
	if strings.TrimSpace(*s) == "" {
		*s = v
	}
}

// ApplyRunDefaults fills Master and freeze tuning the environment left unset.
// Freeze rows default to the Master row limit.
func (f *File) ApplyRunDefaults(run *model.RunConfig) {
	if run.Master.MaxRows == 0 {
		run.Master.MaxRows = f.MasterMaxRows
	}
	if run.Master.ChunkSize == 0 {
		run.Master.ChunkSize = f.MasterChunkSize
	}
	if run.Freeze.MaxRows == 0 {
		run.Freeze.MaxRows = run.Master.MaxRows
	}
	if run.Freeze.ChunkSize == 0 {
		run.Freeze.ChunkSize = f.MasterFreezeChunkSize
	}
}

// Layout validates the file and converts it to the engine's layout.
func (f *File) Layout() (model.Layout, error) {
	var ve model.ValidationError

	if f.TargetSheetID == "" {
		ve.Add("target_sheet_id", "is required")
	}
	if f.FolderID == "" && len(f.Mappings) > 0 {
		ve.Add("folder_id", "is required when mappings are configured")
	}

	source, err := model.ParseRange(f.SourceSheetName, f.SourceRange)
	if err != nil {
		ve.Add("source_range", err.Error())
	}
	target, err := model.ParseRange("", f.TargetRange)
	if err != nil {
		ve.Add("target_range", err.Error())
	}
	if err == nil && source.Width() != target.Width() && source.StartCol != "" {
		ve.Add("target_range", fmt.Sprintf("is %d columns wide but source_range is %d", target.Width(), source.Width()))
	}
	metaRange, err := model.ParseRange(f.MasterMetaSheet, f.MasterMetaRange)
	if err != nil {
		ve.Add("master_meta_range", err.Error())
	} else if metaRange.Width() < 2 {
		ve.Add("master_meta_range", "must span a tab column and a pointer column")
	}

	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		ve.Add("timezone", err.Error())
	}

	targets := make(map[string]bool)
	for i, m := range f.Mappings {
		field := fmt.Sprintf("mappings[%d]", i)
		if m.Prefix == "" {
			ve.Add(field+".prefix", "is required")
		}
		if m.TargetTab == "" {
			ve.Add(field+".target_tab", "is required")
			continue
		}
		if targets[m.TargetTab] {
			ve.Add(field+".target_tab", fmt.Sprintf("%q is mapped more than once", m.TargetTab))
		}
		targets[m.TargetTab] = true
	}

	masters := make(map[string]bool)
	metaRows := make(map[int]string)
	for i, mt := range f.MasterTabs {
		field := fmt.Sprintf("master_tabs[%d]", i)
		if mt.Tab == "" {
			ve.Add(field+".tab", "is required")
			continue
		}
		if masters[mt.Tab] {
			ve.Add(field+".tab", fmt.Sprintf("%q is listed more than once", mt.Tab))
		}
		masters[mt.Tab] = true
		if targets[mt.Tab] {
			ve.Add(field+".tab", fmt.Sprintf("%q is also an extract tab", mt.Tab))
		}
		if mt.SourceTab != "" && !targets[mt.SourceTab] {
			ve.Add(field+".source_tab", fmt.Sprintf("%q is not the target_tab of any mapping", mt.SourceTab))
		}
		if mt.MetaRow < 0 {
			ve.Add(field+".meta_row", "must not be negative")
		} else if mt.MetaRow > 0 {
			if other, dup := metaRows[mt.MetaRow]; dup {
				ve.Add(field+".meta_row", fmt.Sprintf("row %d is already used by %q", mt.MetaRow, other))
			}
			metaRows[mt.MetaRow] = mt.Tab
		}
	}
	for tab := range f.MasterMetaRows {
		if !masters[tab] {
			ve.Add("master_meta_rows", fmt.Sprintf("%q is not a master tab", tab))
		}
	}

	override := make(map[string]model.Column, len(f.MasterMetaOverride))
	for tab, v := range f.MasterMetaOverride {
		col, err := model.ParseColumn(v)
		if err != nil {
			ve.Add("master_meta_override."+tab, err.Error())
			continue
		}
		override[tab] = col
	}

	if f.MasterMaxRows < 0 {
		ve.Add("master_max_rows", "must not be negative")
	}
	if f.MasterChunkSize < 0 {
		ve.Add("master_chunk_size", "must not be negative")
	}
	if f.MasterFreezeChunkSize < 0 {
		ve.Add("master_freeze_chunk_size", "must not be negative")
	}

	if err := ve.Err(); err != nil {
		return model.Layout{}, err
	}
	return model.Layout{
		DriveID:             f.DriveID,
		FolderID:            f.FolderID,
		SpreadsheetID:       f.TargetSheetID,
		SourceRange:         source,
		TargetRange:         target,
		Mappings:            f.Mappings,
		MasterTabs:          f.MasterTabs,
		MetaSheet:           f.MasterMetaSheet,
		MetaRange:           metaRange,
		MetaOverride:        override,
		PreferNameTimestamp: f.PreferNameTimestamp,
		Location:            loc,
	}, nil
}
