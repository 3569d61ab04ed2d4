package embedder

import (
	"context"
	"hash/fnv"
	"math"
)

// FakeClient deterministically maps text to a vector by hashing tokens into
// buckets -- similar inputs land on similar vectors, which is enough for
// tests that exercise similarity search without a live provider.
type FakeClient struct {
	dimension int
}

func NewFakeClient(dimension int) *FakeClient {
	if dimension <= 0 {
		dimension = 8
	}
	return &FakeClient{dimension: dimension}
}

func (f *FakeClient) Dimension() int { return f.dimension }

func (f *FakeClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.embedOne(t)
	}
	return out, nil
}

func (f *FakeClient) embedOne(text string) []float32 {
	vec := make([]float32, f.dimension)
	var word []byte
	flush := func() {
		if len(word) == 0 {
			return
		}
		h := fnv.New32a()
		_, _ = h.Write(word)
		bucket := int(h.Sum32()) % f.dimension
		if bucket < 0 {
			bucket += f.dimension
		}
		vec[bucket]++
		word = word[:0]
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ' ' || c == '\t' || c == '\n' {
			flush()
			continue
		}
		word = append(word, c)
	}
	flush()
	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sumSq float32
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(float64(sumSq)))
	for i := range vec {
		vec[i] /= norm
	}
}
