package validation_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tdrs/internal/casefile"
	"tdrs/internal/validation"
	dErrors "tdrs/pkg/domain-errors"
	"tdrs/pkg/requestcontext"
	"tdrs/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	records  *casefile.InMemoryStore
	cases    *casefile.Service
	ledger   *validation.InMemoryLedger
	service  *validation.Service
	january  casefile.Month
	february casefile.Month
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 2, 10, 14, 30, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.records = casefile.NewInMemoryStore()
	s.cases = casefile.NewService(s.records, casefile.WithLogger(logger))
	s.ledger = validation.NewInMemoryLedger()
	s.records.OnFamilyDeleted(s.ledger.DetachFamily)

	catalog, err := validation.EmbeddedCatalog()
	s.Require().NoError(err)
	s.service = validation.NewService(s.records, s.ledger, catalog, validation.WithLogger(logger))

	q := &casefile.Quarter{Label: "2024Q1"}
	s.Require().NoError(s.records.CreateQuarter(s.ctx, q))
	s.january = casefile.Month{QuarterID: q.ID, Label: "202401"}
	s.Require().NoError(s.records.CreateMonth(s.ctx, &s.january))
	s.february = casefile.Month{QuarterID: q.ID, Label: "202402"}
	s.Require().NoError(s.records.CreateMonth(s.ctx, &s.february))
}

func (s *ServiceSuite) TestInvalidDispositionProducesOneFatalFinding() {
	family, err := s.cases.SaveFamily(s.ctx, s.january.ID, testutil.FamilyValues("00000000001", "disposition", "9"), "alice")
	s.Require().NoError(err)

	result, err := s.service.RunValidation(s.ctx, "alice", "202401")
	s.Require().NoError(err)

	s.Equal(1, result.Version)
	s.False(result.Clean)
	s.Require().Len(result.Findings, 1)
	f := result.Findings[0]
	s.Equal("T1-008", f.EditCode)
	s.Equal("9", f.ItemNumber)
	s.Equal(validation.SeverityFatal, f.Severity)
	s.Require().NotNil(f.FamilyID)
	s.Equal(family.ID, *f.FamilyID)
	s.Equal("202401", f.ReportMonth)
	s.Equal("alice", f.CreatedBy)
	s.Equal(time.Date(2024, 2, 10, 14, 30, 0, 0, time.UTC), f.CreatedAt)
}

func (s *ServiceSuite) TestRerunAddsVersionWithSameFindings() {
	_, err := s.cases.SaveFamily(s.ctx, s.january.ID, testutil.FamilyValues("1", "disposition", "9"), "alice")
	s.Require().NoError(err)
	f2, err := s.cases.SaveFamily(s.ctx, s.january.ID, testutil.FamilyValues("2"), "alice")
	s.Require().NoError(err)
	_, err = s.cases.SaveAdult(s.ctx, f2.ID, testutil.AdultValues("123456789", "marital_status", "8"), "alice")
	s.Require().NoError(err)

	first, err := s.service.RunValidation(s.ctx, "alice", "202401")
	s.Require().NoError(err)
	second, err := s.service.RunValidation(s.ctx, "bob", "202401")
	s.Require().NoError(err)

	s.Equal(first.Version+1, second.Version)
	s.Equal(stripAudit(first.Findings), stripAudit(second.Findings))

	stored, err := s.service.ListFindings(s.ctx, "202401", first.Version, validation.SortEditCode)
	s.Require().NoError(err)
	s.Len(stored, 2, "earlier version is kept")
}

func (s *ServiceSuite) TestCleanRunWritesNoErrorSentinel() {
	f, err := s.cases.SaveFamily(s.ctx, s.january.ID, testutil.FamilyValues("1"), "alice")
	s.Require().NoError(err)
	_, err = s.cases.SaveChild(s.ctx, f.ID, testutil.ChildValues("987654321"), "alice")
	s.Require().NoError(err)

	for version := 1; version <= 2; version++ {
		result, err := s.service.RunValidation(s.ctx, "alice", "202401")
		s.Require().NoError(err)
		s.Equal(version, result.Version)
		s.True(result.Clean)
		s.Require().Len(result.Findings, 1)
		sentinel := result.Findings[0]
		s.Equal(validation.NoErrorCode, sentinel.EditCode)
		s.Equal(validation.SeverityNoError, sentinel.Severity)
		s.Nil(sentinel.FamilyID)
	}
}

func (s *ServiceSuite) TestUnknownMonthWritesNothing() {
	_, err := s.service.RunValidation(s.ctx, "alice", "209912")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	stats, err := s.service.MonthStats(s.ctx)
	s.Require().NoError(err)
	s.Empty(stats)
}

func (s *ServiceSuite) TestRunIsScopedToReportMonth() {
	_, err := s.cases.SaveFamily(s.ctx, s.february.ID, testutil.FamilyValues("1", "disposition", "9"), "alice")
	s.Require().NoError(err)

	result, err := s.service.RunValidation(s.ctx, "alice", "202401")
	s.Require().NoError(err)
	s.True(result.Clean, "february records are not scanned for january")
}

func (s *ServiceSuite) TestListFindingsSorts() {
	f, err := s.cases.SaveFamily(s.ctx, s.january.ID, testutil.FamilyValues("1", "family_type", "7"), "alice")
	s.Require().NoError(err)
	_, err = s.cases.SaveAdult(s.ctx, f.ID, testutil.AdultValues("123456789", "relationship_to_hoh", "42"), "alice")
	s.Require().NoError(err)
	_, err = s.cases.SaveFamily(s.ctx, s.january.ID, testutil.FamilyValues("2", "disposition", "5"), "alice")
	s.Require().NoError(err)

	result, err := s.service.RunValidation(s.ctx, "alice", "202401")
	s.Require().NoError(err)

	byDefault, err := s.service.ListFindings(s.ctx, "202401", result.Version, validation.SortDefault)
	s.Require().NoError(err)
	s.Equal([]string{"9", "12", "38"}, items(byDefault))

	byCode, err := s.service.ListFindings(s.ctx, "202401", result.Version, validation.SortEditCode)
	s.Require().NoError(err)
	s.Equal([]string{"T1-008", "T1-011", "T1-033"}, editCodes(byCode))

	_, err = s.service.ListFindings(s.ctx, "202401", result.Version, "severity desc")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.service.ListFindings(s.ctx, "202401", result.Version+1, validation.SortDefault)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestMonthStatsReportsLatestVersion() {
	_, err := s.cases.SaveFamily(s.ctx, s.january.ID, testutil.FamilyValues("1", "disposition", "9"), "alice")
	s.Require().NoError(err)
	_, err = s.service.RunValidation(s.ctx, "alice", "202401")
	s.Require().NoError(err)
	_, err = s.service.RunValidation(s.ctx, "alice", "202401")
	s.Require().NoError(err)
	_, err = s.service.RunValidation(s.ctx, "alice", "202402")
	s.Require().NoError(err)

	stats, err := s.service.MonthStats(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stats, 2)
	s.Equal(validation.MonthStats{
		ReportMonth: "202401", Version: 2, Fatal: 1, NoError: 0,
		LastRunAt: time.Date(2024, 2, 10, 14, 30, 0, 0, time.UTC),
	}, stats[0])
	s.Equal("202402", stats[1].ReportMonth)
	s.Equal(1, stats[1].NoError)
}

func (s *ServiceSuite) TestDeletedFamilyKeepsFindings() {
	f, err := s.cases.SaveFamily(s.ctx, s.january.ID, testutil.FamilyValues("1", "disposition", "9"), "alice")
	s.Require().NoError(err)
	a, err := s.cases.SaveAdult(s.ctx, f.ID, testutil.AdultValues("123456789", "marital_status", "8"), "alice")
	s.Require().NoError(err)
	other, err := s.cases.SaveFamily(s.ctx, s.january.ID, testutil.FamilyValues("2", "family_type", "7"), "alice")
	s.Require().NoError(err)
	result, err := s.service.RunValidation(s.ctx, "alice", "202401")
	s.Require().NoError(err)

	byCode := findingsByCode(result.Findings)
	s.Require().NotNil(byCode["T1-032"].AdultID)
	s.Equal(a.ID, *byCode["T1-032"].AdultID)

	s.Require().NoError(s.records.DeleteFamily(s.ctx, f.ID))

	stored, err := s.service.ListFindings(s.ctx, "202401", result.Version, validation.SortDefault)
	s.Require().NoError(err)
	s.Len(stored, 3)
	byCode = findingsByCode(stored)
	s.Nil(byCode["T1-008"].FamilyID)
	s.Nil(byCode["T1-032"].FamilyID)
	s.Nil(byCode["T1-032"].AdultID)
	s.Require().NotNil(byCode["T1-011"].FamilyID, "other families keep their reference")
	s.Equal(other.ID, *byCode["T1-011"].FamilyID)
}

func findingsByCode(findings []validation.Finding) map[string]validation.Finding {
	out := make(map[string]validation.Finding, len(findings))
	for _, f := range findings {
		out[f.EditCode] = f
	}
	return out
}

func stripAudit(findings []validation.Finding) []validation.Finding {
	out := make([]validation.Finding, 0, len(findings))
	for _, f := range findings {
		f.ID, f.Version, f.CreatedBy, f.CreatedAt = 0, 0, "", time.Time{}
		out = append(out, f)
	}
	return out
}

func items(findings []validation.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.ItemNumber)
	}
	return out
}

func editCodes(findings []validation.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.EditCode)
	}
	return out
}
