// Package rangefilter implements positional index selection from
// comma-separated range specs such as "0,3-5,10-".
//
// A spec is a comma-separated list of tokens. Each token selects indexes:
//
//	"a-b"  half-open range [a, b)
//	"a-"   every index >= a
//	"-b"   every index < b
//	"a"    exactly a
//
// An empty spec selects every index. Filters evaluate membership for a
// single index or lazily thin out a sequence by position.
package rangefilter
