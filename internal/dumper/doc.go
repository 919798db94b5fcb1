// Package dumper drives a full report dump: the double loop over
// filtered time periods and markets, per-market fragment files, label
// mismatch detection, and the merge of each period's fragments into one
// consolidated CSV.
//
// Fragments make an interrupted run resumable. A fragment on disk is
// always complete, so a rerun skips the markets it already has and the
// final merge picks up whatever accumulated across runs.
package dumper
