package shacl

import "github.com/c360studio/semstreams/vocabulary"

// Validation result predicates.
const (
	// ResultFocusNode is the node that failed validation.
	ResultFocusNode = "shacl.result.focus_node"

	// ResultPathPredicate is the property path of the failing value.
	ResultPathPredicate = "shacl.result.path"

	// ResultValue is the offending value, rendered as text.
	ResultValue = "shacl.result.value"

	// ResultSourceShape is the shape that produced the result.
	ResultSourceShape = "shacl.result.source_shape"

	// ResultConstraint is the constraint component IRI.
	ResultConstraint = "shacl.result.constraint_component"

	// ResultMessagePredicate is the human-readable validation message.
	ResultMessagePredicate = "shacl.result.message"

	// ResultSeverityPredicate is the severity IRI (sh:Violation, sh:Warning, sh:Info).
	ResultSeverityPredicate = "shacl.result.severity"

	// ResultLabel is the generated result label.
	ResultLabel = "shacl.result.label"
)

// Report predicates.
const (
	// ReportConforms records whether the data graph conformed.
	ReportConforms = "shacl.report.conforms"

	// ReportDataGraph is the validated data graph IRI.
	ReportDataGraph = "shacl.report.data_graph"

	// ReportShapesGraph is the shapes graph IRI.
	ReportShapesGraph = "shacl.report.shapes_graph"

	// ReportGeneratedAt is the report generation timestamp.
	ReportGeneratedAt = "shacl.report.generated_at"

	// ReportRun links a result to the validation run that produced it.
	ReportRun = "shacl.report.run"
)

func init() {
	vocabulary.Register(ResultFocusNode,
		vocabulary.WithDescription("Focus node of a SHACL validation result"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(FocusNode))

	vocabulary.Register(ResultPathPredicate,
		vocabulary.WithDescription("Result path of a SHACL validation result"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(ResultPath))

	vocabulary.Register(ResultValue,
		vocabulary.WithDescription("Value node that caused the validation result"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Value))

	vocabulary.Register(ResultSourceShape,
		vocabulary.WithDescription("Shape that produced the validation result"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(SourceShape))

	vocabulary.Register(ResultConstraint,
		vocabulary.WithDescription("Constraint component that produced the validation result"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(SourceConstraintComponent))

	vocabulary.Register(ResultMessagePredicate,
		vocabulary.WithDescription("Validation result message"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(ResultMessage))

	vocabulary.Register(ResultSeverityPredicate,
		vocabulary.WithDescription("Validation result severity"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(ResultSeverity))

	vocabulary.Register(ResultLabel,
		vocabulary.WithDescription("Generated label of a validation result"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(vocabulary.RdfsLabel))

	vocabulary.Register(ReportConforms,
		vocabulary.WithDescription("Whether the data graph conforms to the shapes graph"),
		vocabulary.WithDataType("bool"),
		vocabulary.WithIRI(Conforms))

	vocabulary.Register(ReportDataGraph,
		vocabulary.WithDescription("Data graph the report was derived from"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(vocabulary.ProvWasDerivedFrom))

	vocabulary.Register(ReportShapesGraph,
		vocabulary.WithDescription("Shapes graph that informed the report"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(ProvWasInformedBy))

	vocabulary.Register(ReportGeneratedAt,
		vocabulary.WithDescription("Report generation time"),
		vocabulary.WithDataType("time.Time"),
		vocabulary.WithIRI(vocabulary.ProvGeneratedAtTime))

	vocabulary.Register(ReportRun,
		vocabulary.WithDescription("Validation run identifier"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"run"))
}
