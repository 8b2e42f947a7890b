//go:build integration

package importer_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tdrs/internal/casefile"
	"tdrs/internal/importer"
	txcontext "tdrs/pkg/platform/tx"
	"tdrs/pkg/testutil"
	"tdrs/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	records  *casefile.PostgresStore
	service  *importer.Service
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.records = casefile.NewPostgres(s.postgres.DB)
	s.service = importer.NewService(casefile.NewService(s.records), importer.NewPostgres(s.postgres.DB),
		importer.WithTx(txcontext.NewRunner(s.postgres.DB, 30*time.Second)),
	)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "import_errors", "file_uploads", "children", "adults", "families", "months", "quarters"))

	q := &casefile.Quarter{Label: "2024Q1"}
	s.Require().NoError(s.records.CreateQuarter(ctx, q))
	s.Require().NoError(s.records.CreateMonth(ctx, &casefile.Month{QuarterID: q.ID, Label: "202401"}))
}

func (s *PostgresStoreSuite) TestDuplicateRowFailsAlone() {
	ctx := context.Background()
	columns, err := importer.Columns(importer.ModelFamily)
	s.Require().NoError(err)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	s.Require().NoError(w.Write(columns))
	for _, cn := range []string{"1", "2", "1", "3"} {
		v := testutil.FamilyValues(cn)
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = v[c]
		}
		s.Require().NoError(w.Write(row))
	}
	w.Flush()

	result, err := s.service.Import(ctx, importer.Request{
		ReportMonth: "202401",
		ModelType:   importer.ModelFamily,
		FileName:    "families.csv",
		Size:        int64(buf.Len()),
		Body:        &buf,
		User:        "alice",
	})
	s.Require().NoError(err)
	s.Equal(3, result.Upload.SavedRows)
	s.Equal(1, result.Upload.FailedRows)

	errs, err := s.service.Errors(ctx, result.Upload.ID)
	s.Require().NoError(err)
	s.Require().Len(errs, 1)
	s.Equal(3, errs[0].RowNumber)
	s.Equal("1", errs[0].RowData["case_number"])
	s.Contains(errs[0].Message, "already exists")

	upload, err := s.service.Upload(ctx, result.Upload.ID)
	s.Require().NoError(err)
	s.Equal(4, upload.TotalRows)
	s.Equal(3, upload.SavedRows)
}
