package models

import "time"

// ReceiptScanUsage counts premium receipt scans per license per calendar month.
// UsageMonth is always the first day of the month in UTC.
type ReceiptScanUsage struct {
	LicenseKey   string    `gorm:"column:license_key;primaryKey"`
	UsageMonth   time.Time `gorm:"column:usage_month;type:date;primaryKey"`
	ScanCount    int       `gorm:"column:scan_count;not null;default:0"`
	MonthlyLimit int       `gorm:"column:monthly_limit;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ReceiptScanUsage) TableName() string { return "receipt_scan_usage" }
