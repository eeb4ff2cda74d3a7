// Package shacl provides IRIs and graph predicates for SHACL validation reports.
//
// The IRI constants cover the W3C SHACL, PROV, SKOS-XL and eccenca vocabularies
// used when reading and annotating validation reports. The dotted predicates are
// used when validation results are published as graph entities.
//
// Import this package to auto-register predicates:
//
//	import _ "github.com/c360studio/semshacl/vocabulary/shacl"
package shacl
