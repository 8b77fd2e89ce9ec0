package store

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/quickclicks/board/models"
)

// ReportStore manages abuse reports and their resolution.
type ReportStore struct {
	db *gorm.DB
}

func NewReportStore(db *gorm.DB) *ReportStore {
	return &ReportStore{db: db}
}

// DB exposes the underlying handle for callers that compose queries.
func (s *ReportStore) DB() *gorm.DB {
	return s.db
}

// NewReportInput carries a validated report submission.
type NewReportInput struct {
	TargetType string
	TargetID   uint
	ReporterID uint
	Category   string
	Reason     string
	Details    string
}

// CreateReport verifies that the target exists before recording the
// report. Reports against deleted content are still accepted; the target
// may have been deleted between the user seeing it and reporting it.
func (s *ReportStore) CreateReport(in NewReportInput) (*models.Report, error) {
	if err := s.targetExists(in.TargetType, in.TargetID); err != nil {
		return nil, err
	}
	report := &models.Report{
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		ReporterID: in.ReporterID,
		Category:   in.Category,
		Reason:     in.Reason,
		Details:    in.Details,
		Status:     models.StatusOpen,
	}
	if err := s.db.Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportStore) targetExists(targetType string, targetID uint) error {
	var err error
	switch targetType {
	case models.TargetThread:
		err = s.db.Select("id").First(&models.Thread{}, targetID).Error
	case models.TargetComment:
		err = s.db.Select("id").First(&models.Comment{}, targetID).Error
	case models.TargetUser:
		err = s.db.Select("id").First(&models.User{}, targetID).Error
	case models.TargetReport:
		err = s.db.Select("id").First(&models.Report{}, targetID).Error
	default:
		return ErrNotFound
	}
	if err != nil {
		return ErrNotFound
	}
	return nil
}

// GetReport fetches one report by id.
func (s *ReportStore) GetReport(id uint) (*models.Report, error) {
	var report models.Report
	if err := s.db.First(&report, id).Error; err != nil {
		return nil, ErrNotFound
	}
	return &report, nil
}

// IsResolvedStatus groups the free-form status string: anything that is
// not empty and not "open" (case-insensitive) counts as resolved, so
// legacy statuses like "closed" or "dealt-with" sort into the right bucket.
func IsResolvedStatus(status string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(status))
	return trimmed != "" && trimmed != models.StatusOpen
}

// ListReports returns reports newest first, filtered by resolution bucket
// when onlyOpen or onlyResolved is set.
func (s *ReportStore) ListReports(onlyOpen, onlyResolved bool) ([]models.Report, error) {
	var reports []models.Report
	if err := s.db.Order("created_at desc, id desc").Find(&reports).Error; err != nil {
		return nil, err
	}
	if !onlyOpen && !onlyResolved {
		return reports, nil
	}
	filtered := reports[:0]
	for _, report := range reports {
		resolved := IsResolvedStatus(report.Status)
		if (onlyOpen && !resolved) || (onlyResolved && resolved) {
			filtered = append(filtered, report)
		}
	}
	return filtered, nil
}

// Resolve closes a report with the given status and note. Resolving an
// already resolved report just updates the note and timestamp.
func (s *ReportStore) Resolve(id, actorID uint, status, note string) (*models.Report, error) {
	var report models.Report
	if err := s.db.First(&report, id).Error; err != nil {
		return nil, ErrNotFound
	}
	if status == "" {
		status = "resolved"
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":          status,
		"resolution_note": note,
		"resolved_at":     now,
		"resolved_by_id":  actorID,
	}
	if err := s.db.Model(&report).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// BulkResolve closes many reports in one pass and returns the ids that
// were still open beforehand.
func (s *ReportStore) BulkResolve(ids []uint, actorID uint, status, note string) ([]uint, error) {
	if status == "" {
		status = "resolved"
	}
	var openIDs []uint
	var reports []models.Report
	if err := s.db.Where("id IN ?", ids).Find(&reports).Error; err != nil {
		return nil, err
	}
	for _, report := range reports {
		if !IsResolvedStatus(report.Status) {
			openIDs = append(openIDs, report.ID)
		}
	}
	now := time.Now()
	err := s.db.Model(&models.Report{}).Where("id IN ?", ids).Updates(map[string]interface{}{
		"status":          status,
		"resolution_note": note,
		"resolved_at":     now,
		"resolved_by_id":  actorID,
	}).Error
	if err != nil {
		return nil, err
	}
	return openIDs, nil
}
