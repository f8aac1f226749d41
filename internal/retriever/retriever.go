// Package retriever implements hybrid retrieval: vector kNN fused with
// BM25 lexical ranking via reciprocal-rank fusion, an optional
// question-language filter, and Maximal Marginal Relevance diversification.
// The kNN and BM25 legs run concurrently via golang.org/x/sync/errgroup.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/localdocs/localdocs/internal/embedpipeline"
	"github.com/localdocs/localdocs/internal/lang"
	"github.com/localdocs/localdocs/internal/store"
)

// maxSnippetChars bounds a Source's snippet length.
const maxSnippetChars = 600

// Settings are the per-query retrieval parameters.
type Settings struct {
	TopK          int
	MaxDistance   float64 // 0 means unset (no cap)
	UseMMR        bool
	MMRLambda     float64
	MMRCandidates int
	RRFConstant   int
}

// Source is one retrieved passage.
type Source struct {
	FilePath string
	Page     int
	Snippet  string
	Distance float64
}

// Retriever runs hybrid retrieval against a Store using a Pipeline to embed
// the question (and, for MMR, the candidate texts).
type Retriever struct {
	store    *store.Store
	pipeline *embedpipeline.Pipeline
}

// New creates a Retriever.
func New(st *store.Store, pipeline *embedpipeline.Pipeline) *Retriever {
	return &Retriever{store: st, pipeline: pipeline}
}

type candidate struct {
	chunkID  int64
	filePath string
	page     int
	lang     string
	text     string
	distance float64
	score    float64
}

// Retrieve runs the full hybrid retrieval for question.
func (r *Retriever) Retrieve(ctx context.Context, question string, settings Settings) ([]Source, error) {
	rrfK := settings.RRFConstant
	if rrfK <= 0 {
		rrfK = 60
	}

	qVecs, err := r.pipeline.EmbedAll(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	q := qVecs[0]
	if q == nil {
		return nil, fmt.Errorf("could not embed question")
	}

	questionLang := lang.Detect(question)

	candidateK := settings.TopK
	if settings.UseMMR {
		mc := clamp(settings.MMRCandidates, 1, minInt(4*settings.TopK, 64))
		if mc > candidateK {
			candidateK = mc
		}
	}
	if candidateK < 1 {
		candidateK = 1
	}

	var knnResults []store.VectorCandidate
	var bm25Results []store.BM25Rank
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.store.KNN(q, candidateK)
		if err != nil {
			return err
		}
		knnResults = res
		return nil
	})
	g.Go(func() error {
		ftsQuery := BuildFTSQuery(question)
		if ftsQuery == "" {
			return nil
		}
		res, err := r.store.BM25(ftsQuery, candidateK)
		if err != nil {
			return err
		}
		bm25Results = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	_ = gctx

	candidates := make([]*candidate, 0, len(knnResults))
	for _, kr := range knnResults {
		if settings.MaxDistance > 0 && kr.Distance > settings.MaxDistance {
			continue
		}
		candidates = append(candidates, &candidate{
			chunkID: kr.ChunkID, filePath: kr.FilePath, page: kr.Page,
			lang: kr.Lang, text: kr.Text, distance: kr.Distance,
		})
	}

	// Language filter: revert to the unfiltered set if it would empty.
	if questionLang != "" {
		filtered := make([]*candidate, 0, len(candidates))
		for _, c := range candidates {
			if c.lang == questionLang {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	fuseRRF(candidates, bm25Results, rrfK)

	if settings.UseMMR && len(candidates) > settings.TopK {
		candidates, err = r.mmr(ctx, q, candidates, settings.TopK, clampFloat(settings.MMRLambda, 0, 1))
		if err != nil {
			return nil, err
		}
	} else {
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
		if len(candidates) > settings.TopK {
			candidates = candidates[:settings.TopK]
		}
	}

	out := make([]Source, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Source{
			FilePath: c.filePath,
			Page:     c.page,
			Snippet:  truncateRunes(c.text, maxSnippetChars),
			Distance: c.distance,
		})
	}
	return out, nil
}

// fuseRRF applies reciprocal-rank fusion: for each candidate in position
// vr (1-based, in the order kNN returned them), score = 1/(k+vr) plus
// 1/(k+fr) if present in the BM25 ranking at rank fr. Candidates are then
// reordered by score descending, ties broken by prior order (stable sort).
func fuseRRF(candidates []*candidate, bm25 []store.BM25Rank, k int) {
	bm25Rank := make(map[int64]int, len(bm25))
	for _, b := range bm25 {
		bm25Rank[b.ChunkID] = b.Rank
	}
	for vr, c := range candidates {
		score := 1.0 / float64(k+vr+1)
		if fr, ok := bm25Rank[c.chunkID]; ok {
			score += 1.0 / float64(k+fr)
		}
		c.score = score
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
}

// BuildFTSQuery turns a question into an FTS match expression: whitespace
// tokens, alphanumeric characters only per token, tokens shorter than 2
// chars discarded, each surviving token suffixed with "*", joined by space.
func BuildFTSQuery(question string) string {
	fields := strings.Fields(question)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		cleaned := keepAlphanumeric(f)
		if len([]rune(cleaned)) < 2 {
			continue
		}
		tokens = append(tokens, cleaned+"*")
	}
	return strings.Join(tokens, " ")
}

func keepAlphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
