package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TradeModel is the table row of a closed trade.
type TradeModel struct {
	ID                uint      `gorm:"primaryKey"`
	TradeID           string    `gorm:"size:64;not null;uniqueIndex"`
	Symbol            string    `gorm:"size:32;not null;index"`
	Direction         string    `gorm:"size:8;not null"`
	EntryPrice        float64   `gorm:"not null"`
	EntryTime         time.Time `gorm:"not null"`
	ExitPrice         float64   `gorm:"not null"`
	ExitTime          time.Time `gorm:"not null;index"`
	Quantity          float64   `gorm:"not null"`
	Leverage          int       `gorm:"not null"`
	StopLoss          float64
	TakeProfit        float64
	EntryReason       string `gorm:"size:32"`
	EntryScore        float64
	ExitReason        string  `gorm:"size:32;not null"`
	PnL               float64 `gorm:"not null"`
	PnLPercent        float64 `gorm:"not null"`
	LevelWasEffective bool
	MaxFavorable      float64
	MaxAdverse        float64
	SupportPrice      *float64
	ResistancePrice   *float64
}

func (TradeModel) TableName() string {
	return "trades"
}

// Open opens a sqlite database at the given path and migrates the trade table.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("could not open database '%s': %w", path, err)
	}
	if err := db.AutoMigrate(&TradeModel{}); err != nil {
		return nil, fmt.Errorf("could not migrate trades table: %w", err)
	}
	return db, nil
}

// Ledger stores closed trades in a sql table.
type Ledger struct {
	db     *gorm.DB
	symbol string
}

var _ storage.Ledger = (*Ledger)(nil)

// NewLedger creates a ledger for the given symbol.
func NewLedger(db *gorm.DB, symbol string) *Ledger {
	return &Ledger{db: db, symbol: symbol}
}

func (l *Ledger) Append(trade model.ClosedTrade) error {
	row := toModel(l.symbol, trade)
	if err := l.db.WithContext(context.Background()).Create(&row).Error; err != nil {
		return fmt.Errorf("could not append trade '%s': %w", trade.TradeID, err)
	}
	return nil
}

func (l *Ledger) Recent(n int) ([]model.ClosedTrade, error) {
	var rows []TradeModel
	q := l.db.WithContext(context.Background()).
		Where("symbol = ?", l.symbol).
		Order("exit_time DESC").
		Order("id DESC")
	if n > 0 {
		q = q.Limit(n)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("could not query trades: %w", err)
	}
	trades := make([]model.ClosedTrade, len(rows))
	for i, row := range rows {
		// oldest first
		trades[len(rows)-1-i] = toTrade(row)
	}
	return trades, nil
}

func toModel(symbol string, t model.ClosedTrade) TradeModel {
	m := TradeModel{
		TradeID:           t.TradeID,
		Symbol:            symbol,
		Direction:         string(t.Direction),
		EntryPrice:        t.EntryPrice,
		EntryTime:         t.EntryTime,
		ExitPrice:         t.ExitPrice,
		ExitTime:          t.ExitTime,
		Quantity:          t.Quantity,
		Leverage:          t.Leverage,
		StopLoss:          t.StopLoss,
		TakeProfit:        t.TakeProfit,
		EntryReason:       string(t.EntryReason),
		EntryScore:        t.EntryScore,
		ExitReason:        string(t.ExitReason),
		PnL:               t.PnL,
		PnLPercent:        t.PnLPercent,
		LevelWasEffective: t.LevelWasEffective,
		MaxFavorable:      t.MaxFavorable,
		MaxAdverse:        t.MaxAdverse,
	}
	if t.Support != nil {
		p := t.Support.Price
		m.SupportPrice = &p
	}
	if t.Resistance != nil {
		p := t.Resistance.Price
		m.ResistancePrice = &p
	}
	return m
}

func toTrade(m TradeModel) model.ClosedTrade {
	t := model.ClosedTrade{
		Position: model.Position{
			TradeID:      m.TradeID,
			Direction:    model.Direction(m.Direction),
			EntryPrice:   m.EntryPrice,
			EntryTime:    m.EntryTime,
			Quantity:     m.Quantity,
			StopLoss:     m.StopLoss,
			TakeProfit:   m.TakeProfit,
			EntryReason:  model.EntryReason(m.EntryReason),
			EntryScore:   m.EntryScore,
			Leverage:     m.Leverage,
			MaxFavorable: m.MaxFavorable,
			MaxAdverse:   m.MaxAdverse,
		},
		ExitPrice:         m.ExitPrice,
		ExitTime:          m.ExitTime,
		PnL:               m.PnL,
		PnLPercent:        m.PnLPercent,
		ExitReason:        model.ExitReason(m.ExitReason),
		LevelWasEffective: m.LevelWasEffective,
	}
	if m.SupportPrice != nil {
		t.Support = &model.Level{Price: *m.SupportPrice}
	}
	if m.ResistancePrice != nil {
		t.Resistance = &model.Level{Price: *m.ResistancePrice}
	}
	return t
}
