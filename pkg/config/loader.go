package config

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/aerynos/carve/pkg/strategy"
	"github.com/aerynos/carve/pkg/telemetry"
)

// Loader parses strategy documents into the intermediate representation.
// One loader may parse many files; parser state accumulates so diagnostics
// reference the right source.
type Loader struct {
	parser *hclparse.Parser
	logger *telemetry.Logger
}

// NewLoader creates a strategy document loader. A nil logger disables
// load-progress logging.
func NewLoader(logger *telemetry.Logger) *Loader {
	if logger == nil {
		logger = telemetry.FromContext(context.Background())
	}
	return &Loader{
		parser: hclparse.NewParser(),
		logger: logger.NewComponentLogger("config-loader"),
	}
}

// LoadFile parses one strategy document.
func (l *Loader) LoadFile(path string) ([]*strategy.Strategy, error) {
	file, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %s", path, diags.Error())
	}

	var doc hclDocument
	diags = gohcl.DecodeBody(file.Body, nil, &doc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %s", path, diags.Error())
	}

	strategies := make([]*strategy.Strategy, 0, len(doc.Strategies))
	for _, hs := range doc.Strategies {
		s, err := translateStrategy(hs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		strategies = append(strategies, s)
	}

	l.logger.Debugf("loaded %d strategies from %s", len(strategies), path)
	return strategies, nil
}

// LoadPath loads strategy documents from a file or, recursively, from a
// directory of .hcl files. Directory entries are visited in sorted order
// so repeated loads see the same definition sequence.
func (l *Loader) LoadPath(path string) ([]*strategy.Strategy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return l.LoadFile(path)
	}

	files, err := findStrategyFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		l.logger.Warnf("no .hcl strategy files found under %s", path)
		return nil, nil
	}

	var all []*strategy.Strategy
	for _, file := range files {
		strategies, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		all = append(all, strategies...)
	}

	l.logger.Infof("loaded %d strategies from %d files under %s", len(all), len(files), path)
	return all, nil
}

// LoadPaths loads and concatenates strategy documents from several paths.
func (l *Loader) LoadPaths(paths []string) ([]*strategy.Strategy, error) {
	var all []*strategy.Strategy
	for _, path := range paths {
		strategies, err := l.LoadPath(path)
		if err != nil {
			return nil, err
		}
		all = append(all, strategies...)
	}
	return all, nil
}

// findStrategyFiles collects .hcl files under root, sorted by path.
func findStrategyFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".hcl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
