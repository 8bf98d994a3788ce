// Package gormstore implements the store contracts on postgres through gorm.
// The *gorm.DB handed in must be opened with TranslateError so unique
// violations surface as gorm.ErrDuplicatedKey.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vpass/src/models"
	"vpass/src/models/scopes"
	"vpass/src/types"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, types.ErrNotFound)
	}
	return err
}

type PassStore struct {
	db *gorm.DB
}

func NewPassStore(db *gorm.DB) *PassStore {
	return &PassStore{db: db}
}

func (s *PassStore) Create(ctx context.Context, pass *models.Pass) error {
	if pass.ID == uuid.Nil {
		pass.ID = uuid.New()
	}
	pass.Version = 0
	if err := s.db.WithContext(ctx).Omit("Creator", "Approver").Create(pass).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("pass code %s: %w", pass.PassCode, types.ErrDuplicatePassCode)
		}
		log.Printf("[PassStore] create failed: %s", err.Error())
		return err
	}
	return nil
}

func (s *PassStore) Get(ctx context.Context, id uuid.UUID) (*models.Pass, error) {
	var pass models.Pass
	if err := s.db.WithContext(ctx).First(&pass, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "pass "+id.String())
	}
	return &pass, nil
}

func (s *PassStore) FindByCode(ctx context.Context, tenantID uint, code string) (*models.Pass, error) {
	var pass models.Pass
	if err := s.db.WithContext(ctx).
		Scopes(scopes.WithTenant(tenantID)).
		Where("pass_code = ?", code).
		First(&pass).
		Error; err != nil {
		return nil, notFound(err, "pass code "+code)
	}
	return &pass, nil
}

// Update writes the mutable columns only when the stored version still
// matches pass.Version.
func (s *PassStore) Update(ctx context.Context, pass *models.Pass) error {
	result := s.db.WithContext(ctx).
		Model(&models.Pass{}).
		Where("id = ? AND version = ?", pass.ID, pass.Version).
		Updates(map[string]any{
			"status":           pass.Status,
			"rejection_reason": pass.RejectionReason,
			"approved_by":      pass.ApprovedBy,
			"processed_at":     pass.ProcessedAt,
			"version":          pass.Version + 1,
		})
	if result.Error != nil {
		log.Printf("[PassStore] update of %s failed: %s", pass.ID, result.Error.Error())
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Pass{}).Where("id = ?", pass.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("pass %s: %w", pass.ID, types.ErrNotFound)
		}
		return fmt.Errorf("pass %s at version %d: %w", pass.ID, pass.Version, types.ErrConcurrentModification)
	}
	pass.Version++
	return nil
}

func (s *PassStore) ListOverdueApproved(ctx context.Context, now time.Time) ([]*models.Pass, error) {
	var passes []*models.Pass
	err := s.db.WithContext(ctx).
		Scopes(scopes.WithPassStatus(types.PASS_APPROVED)).
		Where("visit_date_time < ?", now).
		Order("visit_date_time").
		Find(&passes).
		Error
	return passes, err
}

func (s *PassStore) ListByTenant(ctx context.Context, tenantID uint, status types.PassStatus, page, size int) ([]*models.Pass, error) {
	passes := []*models.Pass{}
	err := s.db.WithContext(ctx).
		Scopes(scopes.WithTenant(tenantID), scopes.WithPassStatus(status), scopes.Paginate(page, size)).
		Order("created_at DESC").
		Find(&passes).
		Error
	return passes, err
}

func (s *PassStore) ListByCreator(ctx context.Context, tenantID, userID uint, page, size int) ([]*models.Pass, error) {
	passes := []*models.Pass{}
	err := s.db.WithContext(ctx).
		Scopes(scopes.WithTenant(tenantID), scopes.WithCreator(userID), scopes.Paginate(page, size)).
		Order("created_at DESC").
		Find(&passes).
		Error
	return passes, err
}

func (s *PassStore) ListVisitingBetween(ctx context.Context, tenantID uint, from, to time.Time, status types.PassStatus, page, size int) ([]*models.Pass, error) {
	passes := []*models.Pass{}
	err := s.db.WithContext(ctx).
		Scopes(scopes.WithTenant(tenantID), scopes.VisitingBetween(from, to), scopes.WithPassStatus(status), scopes.Paginate(page, size)).
		Order("visit_date_time").
		Find(&passes).
		Error
	return passes, err
}

func (s *PassStore) CountVisitingBetween(ctx context.Context, tenantID uint, from, to time.Time, status types.PassStatus) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Pass{}).
		Scopes(scopes.WithTenant(tenantID), scopes.VisitingBetween(from, to), scopes.WithPassStatus(status)).
		Count(&count).
		Error
	return count, err
}

type AuditLog struct {
	db *gorm.DB
}

func NewAuditLog(db *gorm.DB) *AuditLog {
	return &AuditLog{db: db}
}

func (a *AuditLog) Append(ctx context.Context, entry *models.EmailAuditLog) error {
	return a.db.WithContext(ctx).Create(entry).Error
}

func (a *AuditLog) UpdateStatus(ctx context.Context, correlationID uuid.UUID, status types.EmailStatus, failureReason *string, processedAt time.Time) error {
	result := a.db.WithContext(ctx).
		Model(&models.EmailAuditLog{}).
		Where("correlation_id = ? AND status = ?", correlationID, types.EMAIL_PENDING).
		Updates(map[string]any{
			"status":         status,
			"failure_reason": failureReason,
			"processed_at":   processedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("audit entry %s is not pending: %w", correlationID, types.ErrConcurrentModification)
	}
	return nil
}

func (a *AuditLog) ListByPass(ctx context.Context, passID uuid.UUID) ([]models.EmailAuditLog, error) {
	rows := []models.EmailAuditLog{}
	err := a.db.WithContext(ctx).
		Where("associated_pass_id = ?", passID).
		Order("created_at").
		Find(&rows).
		Error
	return rows, err
}

type UserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", id))
	}
	return &user, nil
}

func (d *UserDirectory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).Where(&models.User{Email: email}).First(&user).Error; err != nil {
		return nil, notFound(err, "user "+email)
	}
	return &user, nil
}

func (d *UserDirectory) GetTenantAdmin(ctx context.Context, tenantID uint) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).
		Scopes(scopes.WithTenant(tenantID)).
		Where("role = ?", types.ROLE_ADMIN).
		Order("id").
		First(&user).
		Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("admin for tenant %d", tenantID))
	}
	return &user, nil
}

func (d *UserDirectory) CreateUser(ctx context.Context, user *models.User) error {
	if err := d.db.WithContext(ctx).Omit("Tenant").Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("email %s already registered: %w", user.Email, types.ErrValidation)
		}
		return err
	}
	return nil
}

type TrailStore struct {
	db *gorm.DB
}

func NewTrailStore(db *gorm.DB) *TrailStore {
	return &TrailStore{db: db}
}

func (t *TrailStore) Record(ctx context.Context, entry *models.TrailLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return t.db.WithContext(ctx).Create(entry).Error
}

type JobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

func (j *JobStore) Park(ctx context.Context, job *models.JobTask) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = types.JOB_PENDING
	}
	return j.db.WithContext(ctx).Create(job).Error
}

func (j *JobStore) Pending(ctx context.Context, now time.Time, limit int) ([]models.JobTask, error) {
	var jobs []models.JobTask
	err := j.db.WithContext(ctx).
		Scopes(scopes.WithPendingStatus).
		Where("runs_at <= ?", now).
		Order("runs_at").
		Limit(limit).
		Find(&jobs).
		Error
	return jobs, err
}

func (j *JobStore) MarkDone(ctx context.Context, id uuid.UUID) error {
	return j.db.WithContext(ctx).
		Model(&models.JobTask{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   types.JOB_DONE,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

// MarkFailed reschedules the job at retryAt. A zero retryAt gives up on it.
func (j *JobStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error {
	values := map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": reason,
	}
	if retryAt.IsZero() {
		values["status"] = types.JOB_FAILED
	} else {
		values["runs_at"] = retryAt
	}
	return j.db.WithContext(ctx).
		Model(&models.JobTask{}).
		Where("id = ?", id).
		Updates(values).Error
}
