package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList stores a bounded list of ISBNs as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}
}

type ImportJob struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	LibraryID      string `gorm:"type:text;not null;index"`
	RequestedBy    string `gorm:"type:text;not null"`
	SourceFileName string `gorm:"type:text;not null"`
	SourceBlobKey  string `gorm:"type:text;not null"`

	TotalISBNCount  int        `gorm:"not null;default:0"`
	ChunkSize       int        `gorm:"not null"`
	TotalChunks     int        `gorm:"not null;default:0"`
	ProcessedChunks int        `gorm:"not null;default:0"`
	CurrentPosition int        `gorm:"not null;default:0"`
	SuccessCount    int        `gorm:"not null;default:0"`
	FailedCount     int        `gorm:"not null;default:0"`
	FailedISBNs     StringList `gorm:"column:failed_isbns;type:jsonb;not null;default:'[]'"`

	Status              string `gorm:"type:text;not null;index"`
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
	ErrorMessage        *string `gorm:"type:text"`
	NotificationSent    bool    `gorm:"not null;default:false"`

	LeaseExpiresAt *time.Time
	Version        int64 `gorm:"not null;default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ImportJob) TableName() string {
	return "import_jobs"
}
