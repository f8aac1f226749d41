package engine

import (
	"os"
	"path/filepath"

	"github.com/localdocs/localdocs/internal/extract"
	"github.com/localdocs/localdocs/internal/indexer"
	"github.com/localdocs/localdocs/internal/store"
)

// discoverCandidates expands the configured target set into concrete
// document candidates, applying each Folder target's IncludeSubfolders
// setting and skipping files whose extension isn't a supported document
// kind.
func discoverCandidates(targets []store.Target) ([]indexer.Candidate, error) {
	seen := make(map[string]struct{})
	var out []indexer.Candidate

	add := func(path string) {
		kind, ok := extract.KindFromExt(filepath.Ext(path))
		if !ok {
			return
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		out = append(out, indexer.Candidate{Path: path, Kind: kind})
	}

	for _, t := range targets {
		switch t.Kind {
		case store.TargetKindFile:
			add(t.Path)
		case store.TargetKindFolder:
			if t.IncludeSubfolders {
				_ = filepath.WalkDir(t.Path, func(path string, d os.DirEntry, err error) error {
					if err != nil || d.IsDir() {
						return nil
					}
					add(path)
					return nil
				})
			} else {
				entries, err := os.ReadDir(t.Path)
				if err != nil {
					continue
				}
				for _, e := range entries {
					if !e.IsDir() {
						add(filepath.Join(t.Path, e.Name()))
					}
				}
			}
		}
	}

	return out, nil
}
