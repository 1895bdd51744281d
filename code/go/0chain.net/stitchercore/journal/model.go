package journal

import "time"

const TableNameAssemblyLog = "assembly_logs"

// AssemblyLog is one finished assembly attempt. The journal is write-only
// bookkeeping; transfer state is always read from the filesystem.
type AssemblyLog struct {
	ID         int64     `gorm:"column:id;primaryKey" json:"id"`
	TransferID string    `gorm:"column:transfer_id;size:128;not null;index:idx_assembly_logs_transfer" json:"transfer_id"`
	Result     string    `gorm:"column:result;size:32;not null" json:"result"`
	Chunks     int       `gorm:"column:chunks" json:"chunks"`
	Size       int64     `gorm:"column:size" json:"size"`
	DurationMs int64     `gorm:"column:duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `gorm:"column:created_at;index:idx_assembly_logs_created" json:"created_at"`
}

func (AssemblyLog) TableName() string {
	return TableNameAssemblyLog
}

// Summary aggregates assembly attempts by result.
type Summary struct {
	Result string `gorm:"column:result" json:"result"`
	Count  int64  `gorm:"column:count" json:"count"`
	Bytes  int64  `gorm:"column:bytes" json:"bytes"`
}
