package importer

import (
	"context"

	"github.com/mmdatafocus/catalog_backend/matching"
	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/mmdatafocus/catalog_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const scorePlaces = 4

// Validate classifies every row against the full catalog of kind. Row-level
// problems become invalid verdicts; only a catalog read error fails the call.
func (s *Service) Validate(ctx context.Context, businessId string, kind models.EntityKind, rows []IncomingRow) (*ValidationReport, error) {
	ctx, span := tracer.Start(ctx, "importer.Validate")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)), attribute.Int("rows", len(rows)))

	catalog, err := s.LoadCatalog(ctx, businessId, kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	classify := s.classifier(catalog)
	plan := PlanFor(kind)
	report := &ValidationReport{
		Kind:    kind,
		Rows:    make([]RowVerdict, 0, len(rows)),
		Catalog: catalog,
	}
	for _, row := range rows {
		rv := RowVerdict{Row: row.Index + 1}
		name, ok := plan.Name(row.Fields)
		if !ok {
			rv.Verdict = matching.VerdictInvalid
			rv.Message = "missing " + plan.NameField
		} else {
			rv.Name = name
			v := classify(name)
			rv.Verdict = v.Kind
			rv.SuggestedAction = v.Action
			if v.HasMatch() {
				rv.Match = v.Match
				score := utils.RoundScore(v.Score, scorePlaces)
				rv.Score = &score
			}
			if v.Kind == matching.VerdictInvalid {
				rv.Message = plan.NameField + " is empty"
			}
		}
		report.Totals.add(rv.Verdict)
		report.Rows = append(report.Rows, rv)
	}

	s.logger().WithFields(logrus.Fields{
		"module":      moduleName,
		"business_id": businessId,
		"kind":        kind,
		"total":       report.Totals.Total,
		"exact":       report.Totals.Exact,
		"first_token": report.Totals.FirstToken,
		"fuzzy":       report.Totals.Fuzzy,
		"new":         report.Totals.New,
		"errors":      report.Totals.Errors,
	}).Info("import rows validated")
	return report, nil
}

// classifier picks the full scan or, for large catalogs, the token index.
func (s *Service) classifier(catalog []*models.CatalogEntity) func(string) matching.Verdict[*models.CatalogEntity] {
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = matching.DefaultThreshold
	}
	if s.IndexMinCatalog > 0 && len(catalog) >= s.IndexMinCatalog {
		idx := matching.NewIndex(catalog, s.IndexFallback)
		return func(name string) matching.Verdict[*models.CatalogEntity] {
			return matching.ClassifyIndexed(name, idx, threshold)
		}
	}
	return func(name string) matching.Verdict[*models.CatalogEntity] {
		return matching.ClassifyWithThreshold(name, catalog, threshold)
	}
}

func (t *ValidationTotals) add(kind matching.VerdictKind) {
	t.Total++
	switch kind {
	case matching.VerdictExact:
		t.Exact++
	case matching.VerdictFirstToken:
		t.FirstToken++
	case matching.VerdictFuzzy:
		t.Fuzzy++
	case matching.VerdictNew:
		t.New++
	default:
		t.Errors++
	}
}
