// Package resolve implements the staged pipeline that turns free-form
// location text into a canonical locality.
//
// Stages in order of cost:
//
//  1. Result cache (previously resolved queries, including negatives)
//  2. Exact lookup of the normalized query against the registry
//  3. Semantic similarity over locality embeddings
//  4. Fuzzy string matching for typos
//  5. LLM extraction of a locality phrase, whose output is rerun through
//     exact, semantic, and fuzzy lookups at a confidence discount
//
// A query no stage can place resolves to MethodNone rather than an error.
// Negative results are cached on the shortest TTL class so registry fixes
// propagate within minutes while still absorbing repeated junk queries.
package resolve
