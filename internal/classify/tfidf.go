package classify

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// maxTerms bounds the vocabulary used for message vectorization.
const maxTerms = 100

// vectorize converts documents into L2-normalized TF-IDF vectors over a
// vocabulary capped at maxTerms. Term selection and ordering are fully
// deterministic: terms are ranked by corpus frequency with alphabetical
// tie-breaks, so identical input always yields identical vectors.
func vectorize(docs []string) [][]float64 {
	tokenized := make([][]string, len(docs))
	corpusCount := make(map[string]int)
	docFreq := make(map[string]int)

	for i, doc := range docs {
		tokens := tokenize(doc)
		tokenized[i] = tokens
		seen := make(map[string]bool)
		for _, tok := range tokens {
			corpusCount[tok]++
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(corpusCount))
	for term := range corpusCount {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if corpusCount[terms[i]] != corpusCount[terms[j]] {
			return corpusCount[terms[i]] > corpusCount[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}

	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}

	n := float64(len(docs))
	vectors := make([][]float64, len(docs))
	for i, tokens := range tokenized {
		vec := make([]float64, len(terms))
		for _, tok := range tokens {
			if j, ok := index[tok]; ok {
				vec[j]++
			}
		}
		for j := range vec {
			if vec[j] == 0 {
				continue
			}
			// Smoothed IDF: ln((1+n)/(1+df)) + 1.
			idf := math.Log((1+n)/(1+float64(docFreq[terms[j]]))) + 1
			vec[j] *= idf
		}
		normalize(vec)
		vectors[i] = vec
	}
	return vectors
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

func tokenize(doc string) []string {
	return strings.FieldsFunc(strings.ToLower(doc), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
