package configfx

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/fx"
)

const (
	DefaultDebounce      = 300 * time.Millisecond
	DefaultPageSize      = 5
	DefaultMaxSubResults = 3
	DefaultExcerptLength = 30
	DefaultAddress       = ":8080"
)

// Config holds the application configuration
type Config struct {
	IndexPath        string
	SessionDB        string
	Debounce         time.Duration
	PageSize         int
	MaxSubResults    int
	ExcerptLength    int
	ShowEmptyFilters bool
	PreloadRate      float64
	TitleBoost       float64
	ContentBoost     float64
	MergeIndexes     []MergeIndex
	Address          string
}

// Params represents the parameters needed to create configuration
type Params struct {
	fx.In

	ConfigPath string `name:"configPath" optional:"true"`
	IndexPath  string `name:"indexPath"  optional:"true"`
	SessionDB  string `name:"sessionDB"  optional:"true"`
	Address    string `name:"address"    optional:"true"`
}

// NewConfig reads the config file and applies flag values on top of it.
func NewConfig(params Params) (*Config, error) {
	file, err := LoadFile(params.ConfigPath)
	if err != nil {
		return nil, err
	}

	config := &Config{
		IndexPath:        file.IndexPath,
		SessionDB:        file.SessionDB,
		Debounce:         file.Debounce.Duration,
		PageSize:         file.PageSize,
		MaxSubResults:    file.MaxSubResults,
		ExcerptLength:    file.ExcerptLength,
		ShowEmptyFilters: file.ShowEmptyFilters,
		PreloadRate:      file.PreloadRate,
		TitleBoost:       file.Ranking.TitleBoost,
		ContentBoost:     file.Ranking.ContentBoost,
		MergeIndexes:     file.MergeIndexes,
		Address:          file.Server.Address,
	}
	if params.IndexPath != "" {
		config.IndexPath = params.IndexPath
	}
	if params.SessionDB != "" {
		config.SessionDB = params.SessionDB
	}
	if params.Address != "" {
		config.Address = params.Address
	}

	// Set defaults
	if config.IndexPath == "" {
		config.IndexPath = filepath.Join(os.TempDir(), "pagesearch.bleve")
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.MaxSubResults <= 0 {
		config.MaxSubResults = DefaultMaxSubResults
	}
	if config.ExcerptLength <= 0 {
		config.ExcerptLength = DefaultExcerptLength
	}
	if config.TitleBoost <= 0 {
		config.TitleBoost = 2
	}
	if config.ContentBoost <= 0 {
		config.ContentBoost = 1
	}
	if config.Address == "" {
		config.Address = DefaultAddress
	}

	return config, nil
}

// Module provides configuration for the application
var Module = fx.Module("config",
	fx.Provide(NewConfig),
)
