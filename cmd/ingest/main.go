// Command ingest loads one CSV or spreadsheet file of family, adult or child
// records into a report month and prints the upload summary as JSON.
//
//	ingest -month 202401 -model adult -file adults.csv -user alice
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tdrs/internal/casefile"
	"tdrs/internal/importer"
	"tdrs/internal/platform/config"
	"tdrs/internal/platform/logger"
	"tdrs/internal/platform/postgres"
	txcontext "tdrs/pkg/platform/tx"
	"tdrs/pkg/requestcontext"
)

type summary struct {
	UploadID   int64         `json:"upload_id"`
	File       string        `json:"file"`
	Checksum   string        `json:"checksum"`
	TotalRows  int           `json:"total_rows"`
	SavedRows  int           `json:"saved_rows"`
	FailedRows int           `json:"failed_rows"`
	Errors     []rejectedRow `json:"errors,omitempty"`
}

type rejectedRow struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func main() {
	month := flag.String("month", "", "report month, YYYYMM")
	model := flag.String("model", "", "family, adult or child")
	file := flag.String("file", "", "path to a .csv, .xls or .xlsx file")
	user := flag.String("user", requestcontext.SystemUser, "user recorded on saved rows")
	flag.Parse()

	if *month == "" || *model == "" || *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, *month, importer.ModelType(*model), *file, *user); err != nil {
		fmt.Fprintln(os.Stderr, "ingest:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, month string, model importer.ModelType, path, user string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, postgres.Config{URL: cfg.DatabaseURL, MaxOpenConns: 4})
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db, log); err != nil {
			return err
		}
	}

	tx := txcontext.NewRunner(db, cfg.TxTimeout)
	cases := casefile.NewService(casefile.NewPostgres(db), casefile.WithLogger(log), casefile.WithTx(tx))
	service := importer.NewService(cases, importer.NewPostgres(db),
		importer.WithLogger(log),
		importer.WithTx(tx),
		importer.WithMaxBytes(cfg.ImportMaxBytes),
	)

	ctx = requestcontext.WithTime(requestcontext.WithUser(ctx, user), time.Now().UTC())
	result, err := service.Import(ctx, importer.Request{
		ReportMonth: month,
		ModelType:   model,
		FileName:    filepath.Base(path),
		Size:        info.Size(),
		Body:        f,
		User:        user,
	})
	if err != nil {
		return err
	}

	rejected := make([]rejectedRow, 0, len(result.Errors))
	for _, e := range result.Errors {
		rejected = append(rejected, rejectedRow{Row: e.RowNumber, Message: e.Message})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary{
		UploadID:   result.Upload.ID,
		File:       result.Upload.FileName,
		Checksum:   result.Upload.Checksum,
		TotalRows:  result.Upload.TotalRows,
		SavedRows:  result.Upload.SavedRows,
		FailedRows: result.Upload.FailedRows,
		Errors:     rejected,
	})
}
