package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
	"github.com/ndthanh/qltv-api/pkg/export"
)

type exportBorrowReader interface {
	List(ctx context.Context, filter models.BorrowFilter) ([]models.BorrowDetail, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (io.ReadCloser, error)
}

type downloadSigner interface {
	Generate(artifactID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

type renderFunc func(export.Dataset) ([]byte, error)

// ExportService renders borrow ledger exports and serves them through signed
// download tokens.
type ExportService struct {
	borrows   exportBorrowReader
	storage   exportStorage
	signer    downloadSigner
	renderers map[string]renderFunc
	validator *validator.Validate
	logger    *zap.Logger
	baseURL   string
}

// NewExportService constructs an ExportService.
func NewExportService(borrows exportBorrowReader, storage exportStorage, signer downloadSigner, validate *validator.Validate, logger *zap.Logger, baseURL string) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	csvExporter := export.NewCSVExporter()
	pdfExporter := export.NewPDFExporter()
	return &ExportService{
		borrows: borrows,
		storage: storage,
		signer:  signer,
		renderers: map[string]renderFunc{
			"csv": csvExporter.Render,
			"pdf": func(data export.Dataset) ([]byte, error) {
				return pdfExporter.Render(data, "Borrow Ledger")
			},
		},
		validator: validate,
		logger:    logger,
		baseURL:   baseURL,
	}
}

// ExportBorrows renders the active ledger in the requested format, stores the
// artifact and returns a signed download link.
func (s *ExportService) ExportBorrows(ctx context.Context, req dto.ExportRequest) (*dto.ExportArtifact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	render, ok := s.renderers[req.Format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	borrows, err := s.borrows.List(ctx, models.BorrowFilter{Status: models.BorrowStatus(req.Status)})
	if err != nil {
		return nil, err
	}

	payload, err := render(borrowDataset(borrows))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	artifactID := uuid.NewString()
	relPath := fmt.Sprintf("borrows/%s.%s", artifactID, req.Format)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(artifactID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	s.logger.Info("export rendered",
		zap.String("artifact_id", artifactID),
		zap.String("format", req.Format),
		zap.Int("rows", len(borrows)))

	return &dto.ExportArtifact{
		ArtifactID:  artifactID,
		Format:      req.Format,
		RowCount:    len(borrows),
		DownloadURL: s.baseURL + "/exports/download?token=" + token,
		ExpiresAt:   expiresAt,
	}, nil
}

// Download resolves a signed token to the stored artifact stream.
func (s *ExportService) Download(ctx context.Context, token string) (io.ReadCloser, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	reader, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export artifact not found")
	}
	return reader, relPath, nil
}

func borrowDataset(borrows []models.BorrowDetail) export.Dataset {
	const dateLayout = "2006-01-02"
	rows := make([]map[string]string, 0, len(borrows))
	for _, b := range borrows {
		returned := ""
		if b.ReturnDate != nil {
			returned = b.ReturnDate.Format(dateLayout)
		}
		librarian := ""
		if b.LibrarianName != nil {
			librarian = *b.LibrarianName
		}
		rows = append(rows, map[string]string{
			"Borrow ID":   strconv.FormatInt(b.BorrowID, 10),
			"Student":     b.StudentName,
			"Email":       b.StudentEmail,
			"Book":        b.BookTitle,
			"Borrowed":    b.BorrowDate.Format(dateLayout),
			"Due":         b.DueDate.Format(dateLayout),
			"Returned":    returned,
			"Status":      string(b.BookStatus),
			"Fine":        strconv.FormatInt(b.FineAmount, 10),
			"Reviewed By": librarian,
		})
	}
	return export.Dataset{
		Headers: []string{"Borrow ID", "Student", "Email", "Book", "Borrowed", "Due", "Returned", "Status", "Fine", "Reviewed By"},
		Rows:    rows,
	}
}
