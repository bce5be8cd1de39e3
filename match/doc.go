// Package match implements the inexact locality matchers used by the
// resolution pipeline.
//
// Two matchers are provided:
//
//   - Semantic: cosine similarity over precomputed embeddings of every
//     locality name and alias. Catches paraphrases and partial names that
//     string distance cannot ("santiago centro" vs "santiago").
//   - Fuzzy: string similarity scored as the better of a Levenshtein ratio
//     and Jaro-Winkler. Catches typos ("providencya" vs "providencia").
//
// Both matchers expect queries already normalized with core.Normalize and
// report misses rather than errors for anything short of a programming
// mistake, so the pipeline can always fall through to its next stage.
package match
