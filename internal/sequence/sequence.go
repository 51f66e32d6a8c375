package sequence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/repo"
	"github.com/GolfLocker/golf-locker-pos/pkg/db"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
)

const dayLayout = "20060102"

// Repository hands out receipt and return numbers from per-day counters.
type Repository struct {
	repo.Base
}

// NewRepository constructs a sequence repository.
func NewRepository(conn *gorm.DB) Repository {
	return Repository{Base: repo.NewBase(conn)}
}

// NextTx increments the counter for the prefix and day inside the supplied
// transaction and returns the formatted number, e.g. GL-20240105-001. The
// increment only becomes visible when the surrounding transaction commits, so
// an aborted checkout never burns a number for other readers.
func (r Repository) NextTx(tx *gorm.DB, prefix string, day time.Time) (string, error) {
	value, err := r.NextValueTx(tx, counterName(prefix, day), 0)
	if err != nil {
		return "", err
	}
	return Format(prefix, day, value), nil
}

// NextValueTx increments the named counter inside the supplied transaction
// and returns the new value. A missing counter starts at seed, so the first
// call yields seed+1. The counter row serializes allocators: a concurrent
// transaction blocks on the row until this one commits.
func (r Repository) NextValueTx(tx *gorm.DB, name string, seed int64) (int64, error) {
	res := tx.Model(&models.Counter{}).
		Where("name = ?", name).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, res.Error)
	}

	if res.RowsAffected == 0 {
		err := tx.Create(&models.Counter{Name: name, Value: seed + 1}).Error
		if err != nil {
			if !db.IsUniqueViolation(err, "") {
				return 0, fmt.Errorf("seed counter %s: %w", name, err)
			}
			// another register created it first, retry the increment
			res = tx.Model(&models.Counter{}).
				Where("name = ?", name).
				UpdateColumn("value", gorm.Expr("value + 1"))
			if res.Error != nil {
				return 0, fmt.Errorf("increment counter %s: %w", name, res.Error)
			}
		}
	}

	var counter models.Counter
	if err := tx.First(&counter, "name = ?", name).Error; err != nil {
		return 0, fmt.Errorf("read counter %s: %w", name, err)
	}
	return counter.Value, nil
}

// Peek returns the current counter value without incrementing. Zero when the
// day has not issued a number yet.
func (r Repository) Peek(ctx context.Context, prefix string, day time.Time) (int64, error) {
	var counter models.Counter
	err := r.DB(ctx).First(&counter, "name = ?", counterName(prefix, day)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return counter.Value, nil
}

// Format renders a sequence number in the receipt format.
func Format(prefix string, day time.Time, value int64) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, day.Format(dayLayout), value)
}

func counterName(prefix string, day time.Time) string {
	return fmt.Sprintf("%s_SEQ_%s", prefix, day.Format(dayLayout))
}
