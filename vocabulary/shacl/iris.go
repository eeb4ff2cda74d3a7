package shacl

import "github.com/c360studio/semstreams/vocabulary"

// Namespace IRIs.
const (
	SH     = "http://www.w3.org/ns/shacl#"
	PROV   = "http://www.w3.org/ns/prov#"
	RDF    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS   = "http://www.w3.org/2000/01/rdf-schema#"
	XSD    = "http://www.w3.org/2001/XMLSchema#"
	SKOS   = "http://www.w3.org/2004/02/skos/core#"
	SKOSXL = "http://www.w3.org/2008/05/skos-xl#"
	OWL    = "http://www.w3.org/2002/07/owl#"
	VOID   = "http://rdfs.org/ns/void#"
	SHUI   = "https://vocab.eccenca.com/shui/"
	DI     = "https://vocab.eccenca.com/di/"
	DSM    = "https://vocab.eccenca.com/dsm/"
)

// Namespace is the base IRI for semshacl graph entity predicates.
const Namespace = "https://semshacl.dev/ontology/shacl/"

// SHACL report vocabulary.
const (
	ValidationReport          = SH + "ValidationReport"
	ValidationResult          = SH + "ValidationResult"
	Conforms                  = SH + "conforms"
	Result                    = SH + "result"
	FocusNode                 = SH + "focusNode"
	ResultPath                = SH + "resultPath"
	Value                     = SH + "value"
	SourceShape               = SH + "sourceShape"
	SourceConstraintComponent = SH + "sourceConstraintComponent"
	ResultMessage             = SH + "resultMessage"
	ResultSeverity            = SH + "resultSeverity"
	Detail                    = SH + "detail"
)

// Provenance, typing and label properties.
const (
	ProvWasDerivedFrom  = vocabulary.ProvWasDerivedFrom
	ProvWasInformedBy   = PROV + "wasInformedBy"
	ProvGeneratedAtTime = vocabulary.ProvGeneratedAtTime

	RDFType   = RDF + "type"
	RDFSLabel = vocabulary.RdfsLabel

	SkosPrefLabel     = vocabulary.SkosPrefLabel
	SkosXLPrefLabel   = SKOSXL + "prefLabel"
	SkosXLLiteralForm = SKOSXL + "literalForm"

	XSDDateTime = XSD + "dateTime"
	XSDBoolean  = XSD + "boolean"
	XSDString   = XSD + "string"
)

// eccenca and graph class IRIs.
const (
	ShuiConforms        = SHUI + "conforms"
	ShuiShapeCatalog    = SHUI + "ShapeCatalog"
	DIDataset           = DI + "Dataset"
	VoidDataset         = VOID + "Dataset"
	OWLOntology         = OWL + "Ontology"
	DSMThesaurusProject = DSM + "ThesaurusProject"
)

// DataGraphTypes lists the graph classes accepted for data graphs.
var DataGraphTypes = []string{
	DIDataset,
	VoidDataset,
	ShuiShapeCatalog,
	OWLOntology,
	DSMThesaurusProject,
}

// ShapesGraphTypes lists the graph classes accepted for shapes graphs.
var ShapesGraphTypes = []string{ShuiShapeCatalog}

// OntologyGraphTypes lists the graph classes accepted for ontology graphs.
var OntologyGraphTypes = []string{OWLOntology}

// ResultColumns are the validation result properties emitted as tabular
// columns, in output order.
var ResultColumns = []string{
	FocusNode,
	ResultPath,
	Value,
	SourceShape,
	SourceConstraintComponent,
	ResultMessage,
	ResultSeverity,
}

// MetaColumns follow ResultColumns in every output row.
var MetaColumns = []string{
	Conforms,
	ProvWasDerivedFrom,
	ProvWasInformedBy,
	ProvGeneratedAtTime,
}
