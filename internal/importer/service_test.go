package importer_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"

	"tdrs/internal/casefile"
	"tdrs/internal/importer"
	"tdrs/internal/schema"
	dErrors "tdrs/pkg/domain-errors"
	"tdrs/pkg/requestcontext"
	"tdrs/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	records *casefile.InMemoryStore
	cases   *casefile.Service
	uploads *importer.InMemoryStore
	service *importer.Service
	month   casefile.Month
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.records = casefile.NewInMemoryStore()
	s.cases = casefile.NewService(s.records, casefile.WithLogger(logger))
	s.uploads = importer.NewInMemoryStore()
	s.service = importer.NewService(s.cases, s.uploads, importer.WithLogger(logger))

	q := &casefile.Quarter{Label: "2024Q1"}
	s.Require().NoError(s.records.CreateQuarter(s.ctx, q))
	s.month = casefile.Month{QuarterID: q.ID, Label: "202401"}
	s.Require().NoError(s.records.CreateMonth(s.ctx, &s.month))
}

// csvFile renders rows under the full header for modelType.
func (s *ServiceSuite) csvFile(modelType importer.ModelType, rows ...schema.Values) []byte {
	columns, err := importer.Columns(modelType)
	s.Require().NoError(err)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	s.Require().NoError(w.Write(columns))
	for _, r := range rows {
		s.Require().NoError(w.Write(cells(columns, r)))
	}
	w.Flush()
	s.Require().NoError(w.Error())
	return buf.Bytes()
}

func cells(columns []string, v schema.Values) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = v[c]
	}
	return out
}

func (s *ServiceSuite) request(modelType importer.ModelType, name string, body []byte) importer.Request {
	return importer.Request{
		ReportMonth: "202401",
		ModelType:   modelType,
		FileName:    name,
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
		User:        "alice",
	}
}

func withParent(caseNumber string, v schema.Values) schema.Values {
	v[importer.ParentColumn] = caseNumber
	return v
}

func (s *ServiceSuite) TestImportFamilies() {
	body := s.csvFile(importer.ModelFamily,
		testutil.FamilyValues("1"),
		testutil.FamilyValues("2"),
	)

	result, err := s.service.Import(s.ctx, s.request(importer.ModelFamily, "families.csv", body))
	s.Require().NoError(err)

	s.Equal(2, result.Upload.TotalRows)
	s.Equal(2, result.Upload.SavedRows)
	s.Equal(0, result.Upload.FailedRows)
	s.Empty(result.Errors)
	s.Equal("alice", result.Upload.CreatedBy)
	s.Equal(s.month.ID, result.Upload.MonthID)
	s.NotEmpty(result.Upload.Checksum)

	families, err := s.records.FamiliesOfMonth(s.ctx, s.month.ID)
	s.Require().NoError(err)
	s.Require().Len(families, 2)
	s.Equal("00000000001", families[0].CaseNumber())
}

func (s *ServiceSuite) TestInvalidRowIsRecordedAndSkipped() {
	_, err := s.cases.SaveFamily(s.ctx, s.month.ID, testutil.FamilyValues("1"), "alice")
	s.Require().NoError(err)

	body := s.csvFile(importer.ModelAdult,
		withParent("1", testutil.AdultValues("111111111")),
		withParent("1", testutil.AdultValues("222222222")),
		withParent("1", testutil.AdultValues("33333X333")),
		withParent("1", testutil.AdultValues("444444444")),
	)

	result, err := s.service.Import(s.ctx, s.request(importer.ModelAdult, "adults.csv", body))
	s.Require().NoError(err)

	s.Equal(4, result.Upload.TotalRows)
	s.Equal(3, result.Upload.SavedRows)
	s.Equal(1, result.Upload.FailedRows)
	s.Require().Len(result.Errors, 1)

	ie := result.Errors[0]
	s.Equal(3, ie.RowNumber)
	s.Equal(importer.ModelAdult, ie.ModelType)
	s.Equal("33333X333", ie.RowData["ssn"])
	s.Contains(ie.Message, "ssn")

	adults, err := s.records.AdultsOfMonth(s.ctx, s.month.ID)
	s.Require().NoError(err)
	s.Len(adults, 3)

	stored, err := s.service.Errors(s.ctx, result.Upload.ID)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(3, stored[0].RowNumber)

	upload, err := s.service.Upload(s.ctx, result.Upload.ID)
	s.Require().NoError(err)
	s.Equal(3, upload.SavedRows)
}

func (s *ServiceSuite) TestUnknownParentFamilyFailsTheRow() {
	body := s.csvFile(importer.ModelChild,
		withParent("77", testutil.ChildValues("987654321")),
		withParent("", testutil.ChildValues("987654322")),
	)

	result, err := s.service.Import(s.ctx, s.request(importer.ModelChild, "children.csv", body))
	s.Require().NoError(err)

	s.Equal(0, result.Upload.SavedRows)
	s.Require().Len(result.Errors, 2)
	s.Contains(result.Errors[0].Message, "not found")
	s.Contains(result.Errors[1].Message, importer.ParentColumn)
}

func (s *ServiceSuite) TestHeaderMismatchRejectsFile() {
	columns, err := importer.Columns(importer.ModelFamily)
	s.Require().NoError(err)
	header := append(columns[1:], "favourite_colour")
	body := []byte(strings.Join(header, ",") + "\n")

	_, err = s.service.Import(s.ctx, s.request(importer.ModelFamily, "families.csv", body))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "missing columns: case_number")
	s.Contains(err.Error(), "unexpected columns: favourite_colour")

	_, err = s.service.Upload(s.ctx, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "no upload is recorded")
}

func (s *ServiceSuite) TestHeaderOrderDoesNotMatter() {
	columns, err := importer.Columns(importer.ModelFamily)
	s.Require().NoError(err)
	family := testutil.FamilyValues("5")

	reversed := make([]string, len(columns))
	for i, c := range columns {
		reversed[len(columns)-1-i] = c
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	s.Require().NoError(w.Write(reversed))
	s.Require().NoError(w.Write(cells(reversed, family)))
	w.Flush()

	result, err := s.service.Import(s.ctx, s.request(importer.ModelFamily, "families.csv", buf.Bytes()))
	s.Require().NoError(err)
	s.Equal(1, result.Upload.SavedRows)
}

func (s *ServiceSuite) TestGates() {
	body := s.csvFile(importer.ModelFamily, testutil.FamilyValues("1"))

	tests := []struct {
		name string
		req  importer.Request
		code dErrors.Code
	}{
		{"extension", s.request(importer.ModelFamily, "families.txt", body), dErrors.CodeValidation},
		{"model type", s.request("household", "families.csv", body), dErrors.CodeValidation},
		{"unknown month", func() importer.Request {
			r := s.request(importer.ModelFamily, "families.csv", body)
			r.ReportMonth = "209901"
			return r
		}(), dErrors.CodeNotFound},
		{"declared size", func() importer.Request {
			r := s.request(importer.ModelFamily, "families.csv", body)
			r.Size = importer.DefaultMaxBytes + 1
			return r
		}(), dErrors.CodeValidation},
		{"legacy workbook", s.request(importer.ModelFamily, "families.xls", []byte("\xd0\xcf\x11\xe0 not a zip")), dErrors.CodeValidation},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Import(s.ctx, tt.req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tt.code), err.Error())
		})
	}

	families, err := s.records.FamiliesOfMonth(s.ctx, s.month.ID)
	s.Require().NoError(err)
	s.Empty(families)
}

func (s *ServiceSuite) TestBodyOverLimitIsRejected() {
	service := importer.NewService(s.cases, s.uploads, importer.WithMaxBytes(64))
	body := s.csvFile(importer.ModelFamily, testutil.FamilyValues("1"))

	req := s.request(importer.ModelFamily, "families.csv", body)
	req.Size = 0
	_, err := service.Import(s.ctx, req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "64 byte limit")
}

func (s *ServiceSuite) TestImportWorkbook() {
	columns, err := importer.Columns(importer.ModelFamily)
	s.Require().NoError(err)

	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	write := func(rowNum int, values []string) {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		s.Require().NoError(err)
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		s.Require().NoError(wb.SetSheetRow(sheet, cell, &row))
	}
	write(1, columns)
	write(2, cells(columns, testutil.FamilyValues("1")))
	write(3, cells(columns, testutil.FamilyValues("2", "disposition", "x")))
	buf, err := wb.WriteToBuffer()
	s.Require().NoError(err)

	result, err := s.service.Import(s.ctx, s.request(importer.ModelFamily, "families.xlsx", buf.Bytes()))
	s.Require().NoError(err)
	s.Equal(2, result.Upload.TotalRows)
	s.Equal(1, result.Upload.SavedRows)
	s.Require().Len(result.Errors, 1)
	s.Equal(2, result.Errors[0].RowNumber)
}

func (s *ServiceSuite) TestExtraCellsFailTheRow() {
	columns, err := importer.Columns(importer.ModelFamily)
	s.Require().NoError(err)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	s.Require().NoError(w.Write(columns))
	s.Require().NoError(w.Write(append(cells(columns, testutil.FamilyValues("1")), "stray")))
	s.Require().NoError(w.Write(append(cells(columns, testutil.FamilyValues("2")), "", " ")))
	w.Flush()

	result, err := s.service.Import(s.ctx, s.request(importer.ModelFamily, "families.csv", buf.Bytes()))
	s.Require().NoError(err)

	s.Equal(1, result.Upload.SavedRows)
	s.Equal(1, result.Upload.FailedRows)
	s.Require().Len(result.Errors, 1)
	s.Equal(1, result.Errors[0].RowNumber)
	s.Contains(result.Errors[0].Message, "header has")
}

// flakyCases fails SaveFamily with a store error once failAt saves were attempted.
type flakyCases struct {
	*casefile.Service
	calls  int
	failAt int
}

func (c *flakyCases) SaveFamily(ctx context.Context, monthID int64, raw schema.Values, user string) (*casefile.Family, error) {
	c.calls++
	if c.calls == c.failAt {
		return nil, errors.New("connection reset")
	}
	return c.Service.SaveFamily(ctx, monthID, raw, user)
}

func (s *ServiceSuite) TestStoppedImportKeepsCounts() {
	service := importer.NewService(&flakyCases{Service: s.cases, failAt: 3}, s.uploads,
		importer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	body := s.csvFile(importer.ModelFamily,
		testutil.FamilyValues("1"),
		testutil.FamilyValues("2", "disposition", "x"),
		testutil.FamilyValues("3"),
		testutil.FamilyValues("4"),
	)

	_, err := service.Import(s.ctx, s.request(importer.ModelFamily, "families.csv", body))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	upload, err := service.Upload(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(4, upload.TotalRows)
	s.Equal(1, upload.SavedRows)
	s.Equal(1, upload.FailedRows)

	families, err := s.records.FamiliesOfMonth(s.ctx, s.month.ID)
	s.Require().NoError(err)
	s.Len(families, 1)
}
