// Package exporter writes report output files.
//
// CSVWriter covers the CSV side: per-market fragment files written
// all-or-nothing, and the merge of a period's fragments into one
// consolidated CSV. WorkbookFromCSV mirrors a consolidated CSV into an
// xlsx workbook for spreadsheet users.
//
// Fragment writes delete the partial file on any failure, so a fragment
// that exists on disk is always complete and a rerun can skip it.
package exporter
