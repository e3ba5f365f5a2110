package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/i474232898/electricity-weather-aggregation/internal/energy"
)

const priceBatchSize = 1000

type priceRow struct {
	ID           uint      `gorm:"primaryKey"`
	RecordedAt   time.Time `gorm:"not null;uniqueIndex:ux_electricity_prices_recorded_at_country,priority:1"`
	Country      string    `gorm:"size:2;not null;uniqueIndex:ux_electricity_prices_recorded_at_country,priority:2"`
	Price        float64   `gorm:"not null"`
	RecordedOn   time.Time `gorm:"type:date;not null;index"`
	RecordedHour int       `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (priceRow) TableName() string { return "electricity_prices" }

type weatherRow struct {
	ID                 uint      `gorm:"primaryKey"`
	Date               time.Time `gorm:"type:date;not null;uniqueIndex:ux_weather_data_date"`
	AverageTemperature *float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (weatherRow) TableName() string { return "weather_data" }

var (
	_ schema.Tabler = priceRow{}
	_ schema.Tabler = weatherRow{}
)

// sqlDate scans a DATE column regardless of whether the driver hands it over
// as time.Time or as text.
type sqlDate struct {
	time.Time
}

func (d *sqlDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = energy.DateOf(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into date", src)
	}
}

func (d *sqlDate) parse(s string) error {
	if len(s) < len(energy.DateLayout) {
		return fmt.Errorf("cannot parse %q as date", s)
	}
	t, err := energy.ParseDate(s[:len(energy.DateLayout)])
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// GormStore implements the price and weather stores on top of GORM.
type GormStore struct {
	db  *DB
	log *zap.Logger
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *DB, log *zap.Logger) *GormStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &GormStore{db: db, log: log.Named("store")}
}

// UpsertAll writes records in batches, updating the price of existing
// (recorded_at, country) keys. Later duplicates in records win.
func (s *GormStore) UpsertAll(ctx context.Context, records []energy.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	// A single INSERT ... ON CONFLICT cannot touch the same row twice.
	index := make(map[priceKey]int, len(records))
	rows := make([]priceRow, 0, len(records))
	for _, r := range records {
		at := r.RecordedAt.UTC()
		row := priceRow{
			RecordedAt:   at,
			Country:      r.Country,
			Price:        r.Price,
			RecordedOn:   energy.DateOf(at),
			RecordedHour: at.Hour(),
		}
		k := priceKey{recordedAt: at.UnixNano(), country: r.Country}
		if i, ok := index[k]; ok {
			rows[i] = row
			continue
		}
		index[k] = len(rows)
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recorded_at"}, {Name: "country"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
		}).
		CreateInBatches(rows, priceBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert prices: %w", err)
	}

	s.log.Debug("upserted prices", zap.Int("count", len(rows)))
	return nil
}

// FindByRecordedRange returns prices with from <= recorded_at < to.
func (s *GormStore) FindByRecordedRange(ctx context.Context, from, to time.Time) ([]energy.PriceRecord, error) {
	var rows []priceRow
	err := s.db.WithContext(ctx).
		Where("recorded_at >= ? AND recorded_at < ?", from.UTC(), to.UTC()).
		Order("recorded_at, country").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}

	result := make([]energy.PriceRecord, 0, len(rows))
	for _, r := range rows {
		result = append(result, energy.PriceRecord{
			RecordedAt: r.RecordedAt.UTC(),
			Country:    r.Country,
			Price:      r.Price,
		})
	}
	return result, nil
}

// FindDatesWithoutWeather returns distinct price dates lacking a weather row, ascending.
func (s *GormStore) FindDatesWithoutWeather(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT p.recorded_on
		FROM electricity_prices p
		WHERE NOT EXISTS (
			SELECT 1 FROM weather_data w WHERE w.date = p.recorded_on
		)
		ORDER BY p.recorded_on`).Rows()
	if err != nil {
		return nil, fmt.Errorf("query dates without weather: %w", err)
	}
	defer rows.Close()

	dates := make([]time.Time, 0)
	for rows.Next() {
		var d sqlDate
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d.Time)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query dates without weather: %w", err)
	}
	return dates, nil
}

// FindRecordedHours returns the distinct UTC hours with prices on date, ascending.
func (s *GormStore) FindRecordedHours(ctx context.Context, date time.Time) ([]int, error) {
	hours := make([]int, 0)
	err := s.db.WithContext(ctx).
		Model(&priceRow{}).
		Distinct("recorded_hour").
		Where("recorded_on = ?", energy.DateOf(date)).
		Order("recorded_hour").
		Pluck("recorded_hour", &hours).Error
	if err != nil {
		return nil, fmt.Errorf("query recorded hours: %w", err)
	}
	return hours, nil
}

// Upsert writes the weather row of a date, replacing the temperature of an existing one.
func (s *GormStore) Upsert(ctx context.Context, record energy.WeatherRecord) error {
	row := weatherRow{
		Date:               energy.DateOf(record.Date),
		AverageTemperature: record.AverageTemperature,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"average_temperature", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert weather %s: %w", energy.FormatDate(record.Date), err)
	}
	return nil
}

// FindByDateRange returns weather rows with from <= date <= to, ascending.
func (s *GormStore) FindByDateRange(ctx context.Context, from, to time.Time) ([]energy.WeatherRecord, error) {
	var rows []weatherRow
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", energy.DateOf(from), energy.DateOf(to)).
		Order("date").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query weather: %w", err)
	}

	result := make([]energy.WeatherRecord, 0, len(rows))
	for _, r := range rows {
		result = append(result, energy.WeatherRecord{
			Date:               energy.DateOf(r.Date),
			AverageTemperature: r.AverageTemperature,
		})
	}
	return result, nil
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *GormStore) Close() error {
	return s.db.Close()
}
