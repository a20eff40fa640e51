package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const (
	// DefaultDimension is the vector dimension of the hash embedder.
	DefaultDimension = 256

	// probeCount is how many dimensions each token contributes to.
	// Multi-probe scattering lets related tokens partially overlap in
	// vector space instead of colliding on a single dimension.
	probeCount = 8

	// markerBonus is the fixed weight added for recognized structural
	// markers before normalization.
	markerBonus = 0.5

	// minTokenLen drops tokens shorter than this.
	minTokenLen = 2

	// probeMultiplier and probeIncrement advance the probe hash state
	// (standard 64-bit LCG constants).
	probeMultiplier = 6364136223846793005
	probeIncrement  = 1442695040888963407
)

// csharpStopwords are language keywords that carry no retrieval signal.
var csharpStopwords = map[string]bool{
	"public": true, "private": true, "protected": true, "internal": true,
	"static": true, "void": true, "class": true, "struct": true,
	"interface": true, "return": true, "new": true, "var": true,
	"int": true, "float": true, "double": true, "bool": true,
	"string": true, "if": true, "else": true, "for": true,
	"foreach": true, "while": true, "using": true, "namespace": true,
	"get": true, "set": true, "this": true, "base": true,
	"null": true, "true": true, "false": true, "override": true,
	"virtual": true, "readonly": true, "const": true, "out": true,
	"ref": true, "in": true, "is": true, "as": true,
}

// structuralMarkers bias similarity toward conventionally-related code:
// texts containing the same lifecycle method or common base-type name get
// a shared fixed contribution on a reserved dimension.
var structuralMarkers = map[string]int{
	"awake":            0,
	"start":            1,
	"update":           2,
	"fixedupdate":      3,
	"lateupdate":       4,
	"onenable":         5,
	"ondisable":        6,
	"ondestroy":        7,
	"oncollision":      8,
	"ontrigger":        9,
	"monobehaviour":    10,
	"scriptableobject": 11,
	"coroutine":        12,
	"rigidbody":        13,
	"transform":        14,
	"instantiate":      15,
}

// HashEmbedder is the deterministic, model-free default embedder. It maps
// text to a fixed-dimension unit vector via multi-probe feature hashing:
// a pure function with no external state, trivially substitutable by a
// learned embedding model behind the same interface.
type HashEmbedder struct {
	dim   int
	cache *Cache
}

// NewHashEmbedder creates a hash embedder with the given dimension.
// A non-positive dimension falls back to DefaultDimension.
func NewHashEmbedder(dim int, cache *Cache) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashEmbedder{dim: dim, cache: cache}
}

// Embed computes the embedding vector. Identical input text always yields
// an identical vector; the empty string yields the zero vector.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if h.cache != nil {
		if vec, ok := h.cache.Get(ComputeHash(text)); ok {
			return vec, nil
		}
	}

	vec := make([]float64, h.dim)

	for _, tok := range Tokenize(text) {
		h.scatter(vec, tok)
	}

	lower := strings.ToLower(text)
	for marker, dim := range structuralMarkers {
		if strings.Contains(lower, marker) {
			vec[dim%h.dim] += markerBonus
		}
	}

	out := normalize(vec)
	if h.cache != nil {
		h.cache.Set(ComputeHash(text), out)
	}
	return out, nil
}

// scatter adds a signed, decaying contribution for one token across
// probeCount dimensions.
func (h *HashEmbedder) scatter(vec []float64, token string) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(token))
	state := hasher.Sum64()

	for p := 0; p < probeCount; p++ {
		state = state*probeMultiplier + probeIncrement
		dim := int(state % uint64(len(vec)))
		sign := 1.0
		if state>>63 == 1 {
			sign = -1.0
		}
		vec[dim] += sign / float64(p+1)
	}
}

func (h *HashEmbedder) Dimension() int { return h.dim }
func (h *HashEmbedder) Name() string   { return ProviderHash }
func (h *HashEmbedder) Close() error   { return nil }

// Tokenize normalizes text into the token stream the embedder hashes:
// lowercase identifier tokens split on non-identifier characters, plus
// camelCase/PascalCase sub-words decomposed from the original text.
// Stopwords and tokens shorter than two characters are dropped.
func Tokenize(text string) []string {
	raw := splitIdentifiers(text)

	var tokens []string
	for _, tok := range raw {
		for _, sub := range SplitCamelCase(tok) {
			sub = strings.ToLower(sub)
			if len(sub) < minTokenLen || csharpStopwords[sub] {
				continue
			}
			tokens = append(tokens, sub)
		}
	}
	return tokens
}

// splitIdentifiers splits on any character that cannot appear in an
// identifier, preserving original case for camelCase decomposition.
func splitIdentifiers(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// SplitCamelCase decomposes camelCase/PascalCase identifiers into their
// sub-words. The original token is included so exact matches still score.
func SplitCamelCase(token string) []string {
	parts := []string{token}

	runes := []rune(token)
	start := 0
	var subs []string
	for i := 1; i < len(runes); i++ {
		boundary := (unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1])) ||
			runes[i] == '_' || runes[i-1] == '_'
		if boundary {
			sub := strings.Trim(string(runes[start:i]), "_")
			if sub != "" {
				subs = append(subs, sub)
			}
			start = i
		}
	}
	if start > 0 {
		sub := strings.Trim(string(runes[start:]), "_")
		if sub != "" {
			subs = append(subs, sub)
		}
	}

	return append(parts, subs...)
}

// normalize L2-normalizes the accumulated weights into a float32 unit
// vector. An all-zero input stays the zero vector.
func normalize(vec []float64) []float32 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}

	out := make([]float32, len(vec))
	if sum == 0 {
		return out
	}

	norm := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// CosineSimilarity computes the similarity of two vectors. For the unit
// vectors this package produces it equals their dot product. Mismatched
// dimensions return a neutral 0 rather than an error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
