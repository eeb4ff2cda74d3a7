package shacl

import (
	"testing"

	"github.com/c360studio/semstreams/vocabulary"
)

func TestPredicatesRegistered(t *testing.T) {
	predicates := []string{
		ResultFocusNode,
		ResultPathPredicate,
		ResultValue,
		ResultSourceShape,
		ResultConstraint,
		ResultMessagePredicate,
		ResultSeverityPredicate,
		ResultLabel,
		ReportConforms,
		ReportDataGraph,
		ReportShapesGraph,
		ReportGeneratedAt,
		ReportRun,
	}

	for _, pred := range predicates {
		t.Run(pred, func(t *testing.T) {
			meta := vocabulary.GetPredicateMetadata(pred)
			if meta == nil || meta.Description == "" {
				t.Fatalf("predicate %s not registered or missing description", pred)
			}
			if meta.StandardIRI == "" {
				t.Errorf("predicate %s has no IRI mapping", pred)
			}
		})
	}
}

func TestResultColumns(t *testing.T) {
	if len(ResultColumns) != 7 {
		t.Fatalf("expected 7 result columns, got %d", len(ResultColumns))
	}
	if ResultColumns[0] != FocusNode || ResultColumns[6] != ResultSeverity {
		t.Errorf("unexpected column order: %v", ResultColumns)
	}
	if len(MetaColumns) != 4 || MetaColumns[0] != Conforms {
		t.Errorf("unexpected meta columns: %v", MetaColumns)
	}
}
