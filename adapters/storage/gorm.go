package storage

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/elum-utils/wordfilter/models"
)

// FilterWord is the gorm model of one filter rule.
type FilterWord struct {
	Word        string `gorm:"column:Word;primaryKey;size:255"`
	Replacement string `gorm:"column:Replacement;size:255"`
}

// TableName keeps the table shared with SQLAdapter.
func (FilterWord) TableName() string { return defaultRulesTable }

// FilterWarning is the gorm model of one player's warning record.
type FilterWarning struct {
	UUID            string       `gorm:"column:UUID;primaryKey;size:128"`
	PlayerName      string       `gorm:"column:PlayerName;size:255"`
	WarningCount    int          `gorm:"column:WarningCount;not null"`
	LastWarningTime sql.NullTime `gorm:"column:LastWarningTime"`
}

// TableName keeps the table shared with SQLAdapter.
func (FilterWarning) TableName() string { return defaultWarningsTable }

// GormAdapter stores both relations through gorm.
type GormAdapter struct {
	db *gorm.DB
}

// NewGormAdapter creates an adapter over db.
func NewGormAdapter(db *gorm.DB) (*GormAdapter, error) {
	if db == nil {
		return nil, errors.New("storage: gorm db is nil")
	}
	return &GormAdapter{db: db}, nil
}

// Migrate creates or updates both tables.
func (g *GormAdapter) Migrate(ctx context.Context) error {
	return g.db.WithContext(ctx).AutoMigrate(&FilterWord{}, &FilterWarning{})
}

func (g *GormAdapter) UpsertRule(ctx context.Context, rule models.Rule) error {
	row := FilterWord{Word: rule.Word, Replacement: rule.Replacement}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).
		Error
}

func (g *GormAdapter) DeleteRule(ctx context.Context, word string) error {
	return g.db.WithContext(ctx).
		Where("Word = ?", word).
		Delete(&FilterWord{}).
		Error
}

func (g *GormAdapter) GetRules(ctx context.Context) ([]models.Rule, error) {
	var rows []FilterWord
	if err := g.db.WithContext(ctx).Order("Word").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Rule, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Rule{Word: r.Word, Replacement: r.Replacement})
	}
	return out, nil
}

func (g *GormAdapter) UpsertWarning(ctx context.Context, w models.PlayerWarning) error {
	row := FilterWarning{
		UUID:         w.PlayerID,
		PlayerName:   w.PlayerName,
		WarningCount: w.Count,
	}
	if !w.LastWarning.IsZero() {
		row.LastWarningTime = sql.NullTime{Time: w.LastWarning, Valid: true}
	}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).
		Error
}

func (g *GormAdapter) GetWarning(ctx context.Context, playerID string) (models.PlayerWarning, bool, error) {
	var row FilterWarning
	err := g.db.WithContext(ctx).
		Where("UUID = ?", playerID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PlayerWarning{}, false, nil
		}
		return models.PlayerWarning{}, false, err
	}
	return row.toModel(), true, nil
}

func (g *GormAdapter) GetWarnings(ctx context.Context) ([]models.PlayerWarning, error) {
	var rows []FilterWarning
	if err := g.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.PlayerWarning, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (r FilterWarning) toModel() models.PlayerWarning {
	w := models.PlayerWarning{
		PlayerID:   r.UUID,
		PlayerName: r.PlayerName,
		Count:      r.WarningCount,
	}
	if r.LastWarningTime.Valid {
		w.LastWarning = r.LastWarningTime.Time
	}
	return w
}
