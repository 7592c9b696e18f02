package model

import "wordvec/internal/vecmath"

// Neighbor is a stored word and its cosine similarity to a query.
type Neighbor = vecmath.Scored

// Lookup returns the vector stored for word.
func (m *Model) Lookup(word string) (Vector, bool) {
	v, ok := m.vectors[word]
	return v, ok
}

// Cosine returns the similarity of two stored words. ok is false unless
// both are present.
func (m *Model) Cosine(a, b string) (float32, bool) {
	va, ok := m.vectors[a]
	if !ok {
		return 0, false
	}
	vb, ok := m.vectors[b]
	if !ok {
		return 0, false
	}
	return vecmath.Cosine(va, vb), true
}

// NearestNeighbors scores every stored word against query and returns them
// best first. Ties are broken by word; NaN scores (zero-norm vectors) sort
// last. query does not need to be a stored vector.
func (m *Model) NearestNeighbors(query Vector) []Neighbor {
	out := make([]Neighbor, 0, len(m.vectors))
	for w, v := range m.vectors {
		out = append(out, Neighbor{Word: w, Score: vecmath.Cosine(query, v)})
	}
	vecmath.Rank(out)
	return out
}

// TopK returns at most k neighbours of query, skipping words in exclude.
// k <= 0 returns the full ranking.
func (m *Model) TopK(query Vector, k int, exclude map[string]struct{}) []Neighbor {
	ranked := m.NearestNeighbors(query)
	out := ranked[:0]
	for _, n := range ranked {
		if _, skip := exclude[n.Word]; skip {
			continue
		}
		out = append(out, n)
		if k > 0 && len(out) == k {
			break
		}
	}
	return out
}

// Analogy returns Σpositive − Σnegative, e.g. king − man + woman.
// If any word is absent the vector is nil and missing lists the absent words.
func (m *Model) Analogy(positive, negative []string) (Vector, []string) {
	var missing []string
	collect := func(words []string) []Vector {
		vs := make([]Vector, 0, len(words))
		for _, w := range words {
			v, ok := m.vectors[w]
			if !ok {
				missing = append(missing, w)
				continue
			}
			vs = append(vs, v)
		}
		return vs
	}
	pos := collect(positive)
	neg := collect(negative)
	if len(missing) > 0 {
		return nil, missing
	}
	return vecmath.Combine(m.dim, pos, neg), nil
}
