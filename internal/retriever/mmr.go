package retriever

import "context"

// mmr embeds the candidates' texts in one batch,
// then greedily selects up to topK candidates maximizing
// lambda*cos(q, ci) - (1-lambda)*max(cos(ci, selected)), stopping early
// when no remaining candidate would improve on staying unselected, i.e.
// once topK is reached or candidates is exhausted.
func (r *Retriever) mmr(ctx context.Context, q []float32, candidates []*candidate, topK int, lambda float64) ([]*candidate, error) {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.text
	}
	vectors, err := r.pipeline.EmbedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	qSims := make([]float64, len(candidates))
	for i, v := range vectors {
		qSims[i] = cosine(q, v)
	}

	used := make([]bool, len(candidates))
	var selected []*candidate
	var selectedVecs [][]float32

	for len(selected) < topK && len(selected) < len(candidates) {
		bestIdx := -1
		bestScore := 0.0
		for i := range candidates {
			if used[i] {
				continue
			}
			maxSim := 0.0
			for _, sv := range selectedVecs {
				sim := cosine(vectors[i], sv)
				if sim > maxSim {
					maxSim = sim
				}
			}
			mmrScore := lambda*qSims[i] - (1-lambda)*maxSim
			if bestIdx == -1 || mmrScore > bestScore {
				bestIdx = i
				bestScore = mmrScore
			}
		}
		if bestIdx == -1 {
			break
		}
		used[bestIdx] = true
		selected = append(selected, candidates[bestIdx])
		selectedVecs = append(selectedVecs, vectors[bestIdx])
	}

	return selected, nil
}
