package indexer

import (
	"os"

	"github.com/localdocs/localdocs/internal/store"
)

// PreviewStatus classifies a candidate document against the store's
// current state.
type PreviewStatus string

const (
	PreviewNew     PreviewStatus = "new"
	PreviewIndexed PreviewStatus = "indexed"
	PreviewChanged PreviewStatus = "changed"
	PreviewMissing PreviewStatus = "missing"
)

// PreviewEntry is one row of a preview-index response.
type PreviewEntry struct {
	Path   string
	Kind   string
	Status PreviewStatus
	Size   int64
	MTime  int64
}

// Preview classifies each candidate without writing anything:
// "indexed" iff the stored fingerprint equals the recomputed
// one; "changed" iff the path is present but the fingerprint differs; "new"
// iff not present; "missing" iff the path does not exist on disk.
func Preview(st *store.Store, candidates []Candidate) ([]PreviewEntry, error) {
	out := make([]PreviewEntry, 0, len(candidates))

	for _, cand := range candidates {
		info, err := os.Stat(cand.Path)
		if err != nil || !info.Mode().IsRegular() {
			out = append(out, PreviewEntry{Path: cand.Path, Kind: string(cand.Kind), Status: PreviewMissing})
			continue
		}

		size := info.Size()
		mtime := info.ModTime().Unix()
		fingerprint := store.Fingerprint(cand.Path, size, mtime)

		existing, err := st.GetFile(cand.Path)
		if err != nil {
			return nil, err
		}

		status := PreviewNew
		if existing != nil {
			if existing.Fingerprint == fingerprint {
				status = PreviewIndexed
			} else {
				status = PreviewChanged
			}
		}

		out = append(out, PreviewEntry{
			Path: cand.Path, Kind: string(cand.Kind), Status: status,
			Size: size, MTime: mtime,
		})
	}

	return out, nil
}
