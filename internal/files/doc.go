// Package files defines the on-disk layout of report output and the
// naming scheme for per-market fragment files.
//
// A report's output tree looks like:
//
//	{base}/{label}/~{reportID}/{encoded market}.csv   transient fragments
//	{base}/{label}/{reportID}.csv                     consolidated output
//
// Market names come from the reporting API and may contain characters
// that are unsafe in filenames, so fragment names are the URL-safe
// base64 encoding of the market name with padding stripped. Decoding is
// kept around for diagnostics.
package files
