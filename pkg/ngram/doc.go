/*
Package ngram provides a small, in-memory n-gram language model for
experimenting with corpus statistics in Go.

A Model is built from raw text. It normalises the text into tokens, builds
frequency tables for any requested order on demand, scores sequences with
log-space conditional probabilities, predicts the most likely next word and
samples new sentences with a variable-order back-off scheme.

All tables are immutable once built, so a Model may memoise them freely.
Randomness used for sampling is injectable, which keeps generation
reproducible in tests.
*/
package ngram
