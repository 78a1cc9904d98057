package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horizon-etudes/backoffice-api/internal/dto"
	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/internal/repository"
	"github.com/horizon-etudes/backoffice-api/pkg/config"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
	"github.com/horizon-etudes/backoffice-api/pkg/export"
	"github.com/horizon-etudes/backoffice-api/pkg/storage"
)

const dashboardCacheKey = "stats:dashboard"

type statsStore interface {
	CountAppointmentsByStatus(ctx context.Context) ([]models.StatusCount, error)
	CountProceduresByStatus(ctx context.Context) ([]models.StatusCount, error)
	CountOccupyingAppointments(ctx context.Context, date time.Time) (int, error)
	UpcomingLoad(ctx context.Context, from, to time.Time) ([]models.DateCount, error)
	CountAppointmentsCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountNewContactMessages(ctx context.Context) (int, error)
	ListAppointmentsForExport(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
}

// StatsService aggregates the admin dashboard numbers and generates
// downloadable appointment exports.
type StatsService struct {
	repo      statsStore
	cache     *CacheService
	metrics   *MetricsService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	files     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	statsCfg  config.StatsConfig
	exports   config.ExportsConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStatsService builds the service. Storage and signer may be nil when
// exports are disabled.
func NewStatsService(
	repo statsStore,
	cache *CacheService,
	metrics *MetricsService,
	files *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	statsCfg config.StatsConfig,
	exports config.ExportsConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *StatsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		files:     files,
		signer:    signer,
		statsCfg:  statsCfg,
		exports:   exports,
		validator: validate,
		logger:    logger,
	}
}

// Dashboard returns the aggregate admin view, cached for a short TTL so
// repeated dashboard polls stay cheap.
func (s *StatsService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	var cached models.DashboardStats
	if hit, _ := s.cache.Get(ctx, dashboardCacheKey, &cached); hit {
		return &cached, nil
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	byStatus, err := s.repo.CountAppointmentsByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate appointments")
	}
	procByStatus, err := s.repo.CountProceduresByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate procedures")
	}
	todayCount, err := s.repo.CountOccupyingAppointments(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count today's appointments")
	}
	load, err := s.repo.UpcomingLoad(ctx, today, today.AddDate(0, 0, 14))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute upcoming load")
	}
	recent, err := s.repo.CountAppointmentsCreatedSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count recent bookings")
	}
	newContacts, err := s.repo.CountNewContactMessages(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count contact messages")
	}

	stats := &models.DashboardStats{
		AppointmentsByStatus: statusMap(byStatus),
		AppointmentsToday:    todayCount,
		UpcomingLoad:         load,
		ProceduresByStatus:   statusMap(procByStatus),
		NewContactMessages:   newContacts,
		CreatedLast7Days:     recent,
		GeneratedAt:          now,
	}

	if err := s.cache.Set(ctx, dashboardCacheKey, stats, s.statsCfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
	}
	return stats, nil
}

// System returns the runtime metrics snapshot shown on the admin health
// panel.
func (s *StatsService) System() models.SystemMetrics {
	if s.metrics == nil {
		return models.SystemMetrics{GeneratedAt: time.Now().UTC()}
	}
	return s.metrics.Snapshot()
}

// ExportAppointments renders the matching appointments as CSV or PDF,
// stores the file and returns a signed download URL.
func (s *StatsService) ExportAppointments(ctx context.Context, req dto.ExportAppointmentsRequest) (*dto.ExportResult, error) {
	if !s.exports.Enabled || s.files == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}

	filter := models.AppointmentFilter{}
	if req.Status != "" {
		filter.Statuses = []models.AppointmentStatus{models.AppointmentStatus(req.Status)}
	}
	if req.DateFrom != "" {
		from, err := time.Parse(models.DateFormat, req.DateFrom)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date_from must use the YYYY-MM-DD format")
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := time.Parse(models.DateFormat, req.DateTo)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must use the YYYY-MM-DD format")
		}
		filter.DateTo = &to
	}

	appointments, err := s.repo.ListAppointmentsForExport(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments for export")
	}

	dataset := appointmentDataset(appointments)

	var payload []byte
	switch req.Format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, "Rendez-vous")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	jobID := uuid.NewString()
	fileName := fmt.Sprintf("appointments-%s-%s.%s", time.Now().UTC().Format("20060102-150405"), jobID[:8], req.Format)
	if _, err := s.files.Save(fileName, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(jobID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	return &dto.ExportResult{
		FileName:    fileName,
		Format:      req.Format,
		RowCount:    len(dataset.Rows),
		DownloadURL: "/api/v1/stats/exports/download?token=" + token,
		ExpiresAt:   expiresAt,
	}, nil
}

// OpenExport resolves a signed token back to the stored file.
func (s *StatsService) OpenExport(token string) (string, error) {
	if !s.exports.Enabled || s.files == nil || s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	return s.files.Path(relPath), nil
}

// CleanupExports removes export files past the signed-URL TTL.
func (s *StatsService) CleanupExports() (int, error) {
	if s.files == nil {
		return 0, nil
	}
	deleted, err := s.files.CleanupOlderThan(s.exports.SignedURLTTL)
	if err != nil {
		return 0, err
	}
	return len(deleted), nil
}

func statusMap(rows []models.StatusCount) map[string]int {
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out
}

func appointmentDataset(appointments []models.Appointment) export.Dataset {
	headers := []string{"Date", "Heure", "Nom", "Email", "Telephone", "Destination", "Filiere", "Statut", "Avis"}
	rows := make([]map[string]string, 0, len(appointments))
	for i := range appointments {
		a := &appointments[i]
		avis := ""
		if a.AvisAdmin != nil {
			avis = string(*a.AvisAdmin)
		}
		rows = append(rows, map[string]string{
			"Date":        a.Date.Format(models.DateFormat),
			"Heure":       a.TimeSlot,
			"Nom":         a.FirstName + " " + a.LastName,
			"Email":       a.Email,
			"Telephone":   a.Phone,
			"Destination": string(a.Destination),
			"Filiere":     string(a.StudyField),
			"Statut":      string(a.Status),
			"Avis":        avis,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

var _ statsStore = (*repository.StatsRepository)(nil)
