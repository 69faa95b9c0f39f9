package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/logger"
)

// OTPCleanupJobParams configure the expired login code sweep.
type OTPCleanupJobParams struct {
	Logger *logger.Logger
	DB     txRunner
}

// NewOTPCleanupJob clears login codes whose expiry has passed. Verification
// already rejects stale codes; this keeps them from lingering at rest.
func NewOTPCleanupJob(params OTPCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	return &otpCleanupJob{
		logg: params.Logger,
		db:   params.DB,
		now:  time.Now,
	}, nil
}

type otpCleanupJob struct {
	logg *logger.Logger
	db   txRunner
	now  func() time.Time
}

func (j *otpCleanupJob) Name() string { return "otp-cleanup" }

func (j *otpCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	var cleared int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("otp_code IS NOT NULL AND otp_expiry < ?", cutoff).
			Updates(map[string]any{
				"otp_code":   nil,
				"otp_expiry": nil,
			})
		if result.Error != nil {
			return result.Error
		}
		cleared = result.RowsAffected
		return nil
	})
	if err != nil {
		return fmt.Errorf("otp cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"codes_cleared": cleared,
	})
	j.logg.Info(logCtx, "expired login codes cleared")
	return nil
}
