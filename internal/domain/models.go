package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MaterialType string

const (
	MaterialPlastic MaterialType = "plastic"
	MaterialPaper   MaterialType = "paper"
	MaterialGlass   MaterialType = "glass"
	MaterialOrganic MaterialType = "organic"
	MaterialMetal   MaterialType = "metal"
	MaterialOther   MaterialType = "other"
)

// Materials lists every known material type in display order.
var Materials = []MaterialType{
	MaterialPlastic,
	MaterialPaper,
	MaterialGlass,
	MaterialOrganic,
	MaterialMetal,
	MaterialOther,
}

func (m MaterialType) Valid() bool {
	switch m {
	case MaterialPlastic, MaterialPaper, MaterialGlass, MaterialOrganic, MaterialMetal, MaterialOther:
		return true
	}
	return false
}

type ReportStatus string

const (
	StatusPending  ReportStatus = "pending"
	StatusVerified ReportStatus = "verified"
	StatusRejected ReportStatus = "rejected"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

type Report struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	MaterialType MaterialType    `json:"material_type"`
	QuantityKg   decimal.Decimal `json:"quantity_kg"`
	Location     string          `json:"location"`
	Status       ReportStatus    `json:"status"`
	ReportedAt   time.Time       `json:"reported_at"` // stored in UTC
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Points     int64     `json:"points"` // never decreases
	StreakDays int       `json:"streak_days"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
