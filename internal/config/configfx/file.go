package configfx

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// File is the on-disk TOML configuration. Zero values fall back to defaults.
type File struct {
	IndexPath        string       `toml:"index_path"`
	SessionDB        string       `toml:"session_db"`
	Debounce         Duration     `toml:"debounce"`
	PageSize         int          `toml:"page_size"`
	MaxSubResults    int          `toml:"max_sub_results"`
	ExcerptLength    int          `toml:"excerpt_length"`
	ShowEmptyFilters bool         `toml:"show_empty_filters"`
	PreloadRate      float64      `toml:"preload_rate"`
	Ranking          Ranking      `toml:"ranking"`
	MergeIndexes     []MergeIndex `toml:"merge_index"`
	Server           Server       `toml:"server"`
}

type Ranking struct {
	TitleBoost   float64 `toml:"title_boost"`
	ContentBoost float64 `toml:"content_boost"`
}

type MergeIndex struct {
	Path    string  `toml:"path"`
	BaseURL string  `toml:"base_url"`
	Weight  float64 `toml:"weight"`
}

type Server struct {
	Address string `toml:"address"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// LoadFile reads a configuration file. A missing file is not an error.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &f, nil
}
