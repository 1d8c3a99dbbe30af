package database

import (
	"strings"
	"time"

	"github.com/actionsum/lastapp/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

const defaultListLimit = 50

// Repository handles all database operations for observations and attempts
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateActivationEvent inserts a new observed transition
func (r *Repository) CreateActivationEvent(event *models.ActivationEvent) error {
	event.AppID = strings.ToLower(event.AppID)
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert activation event")
	}
	return nil
}

// CreateSwitchAttempt inserts the outcome of one switch request
func (r *Repository) CreateSwitchAttempt(attempt *models.SwitchAttempt) error {
	result := r.db.Create(attempt)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert switch attempt")
	}
	return nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// RecentEvents returns the newest activation events first
func (r *Repository) RecentEvents(limit int) ([]*models.ActivationEvent, error) {
	var events []*models.ActivationEvent
	result := r.db.Order("timestamp DESC").Order("id DESC").Limit(clampLimit(limit)).Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query activation events")
	}
	return events, nil
}

// RecentAttempts returns the newest switch attempts first
func (r *Repository) RecentAttempts(limit int) ([]*models.SwitchAttempt, error) {
	var attempts []*models.SwitchAttempt
	result := r.db.Order("timestamp DESC").Order("id DESC").Limit(clampLimit(limit)).Find(&attempts)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query switch attempts")
	}
	return attempts, nil
}

// GetLatestEvent retrieves the most recent activation event, or nil
func (r *Repository) GetLatestEvent() (*models.ActivationEvent, error) {
	var event models.ActivationEvent
	result := r.db.Where("kind = ?", "activation").Order("timestamp DESC").First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest event")
	}
	return &event, nil
}

// AppActivationCounts aggregates activations per application since a given time
func (r *Repository) AppActivationCounts(since time.Time) ([]models.AppCount, error) {
	var rows []struct {
		AppID       string
		Activations int64
		LastSeen    string
	}

	result := r.db.Model(&models.ActivationEvent{}).
		Select("app_id, COUNT(*) as activations, MAX(timestamp) as last_seen").
		Where("kind = ? AND timestamp >= ?", "activation", since).
		Group("app_id").
		Order("activations DESC").
		Order("app_id ASC").
		Scan(&rows)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query app counts")
	}

	counts := make([]models.AppCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, models.AppCount{
			AppID:       row.AppID,
			Activations: row.Activations,
			LastSeen:    parseSQLiteTime(row.LastSeen),
		})
	}
	return counts, nil
}

// DeleteOldEvents deletes events older than a specified date (soft delete)
func (r *Repository) DeleteOldEvents(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.ActivationEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old events")
	}
	return result.RowsAffected, nil
}

// Clear removes all events and attempts from the database
func (r *Repository) Clear() error {
	for _, table := range []string{"activation_events", "switch_attempts"} {
		if result := r.db.Exec("DELETE FROM " + table); result.Error != nil {
			return errors.Wrapf(result.Error, "failed to clear %s", table)
		}
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

// MAX() over a datetime column comes back from SQLite as text
func parseSQLiteTime(s string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
