/*
Package evaluation runs intrinsic evaluations of n-gram models.

A Suite is a named list of test sequences, usually loaded from a YAML file.
An Evaluator scores every sequence of a suite under each order in a
configured range and reports which order assigns each sequence the highest
likelihood. Longer orders multiply fewer conditional probabilities, so on
small corpora the best order tends to sit at the top of the range.
*/
package evaluation
