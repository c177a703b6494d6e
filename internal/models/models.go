package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/pagecraft-dev/pagecraft/internal/assert"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
		assert.Length("id", b.ID, 26)
	}
	return nil
}

// Setting is the singleton row holding server-generated secrets
type Setting struct {
	BaseModel
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // generated on first start when JWT_SECRET is unset
}

// Auth providers
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// User is an account, either password based or created by a social sync
type User struct {
	BaseModel
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-"` // empty for social-only accounts
	Name         string    `json:"name"`
	Image        string    `json:"image"`
	Provider     string    `json:"provider" gorm:"not null;default:email"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// RefreshToken tracks an issued refresh credential. ID is the JWT "jti".
// Rows are rotated on every refresh and removed on logout.
type RefreshToken struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Portfolio is a user's site. Content is the editor document, stored as-is.
type Portfolio struct {
	BaseModel
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Title     string    `json:"title" gorm:"not null"`
	Slug      string    `json:"slug" gorm:"uniqueIndex;not null"`
	Template  string    `json:"template"`
	Content   Document  `json:"content"`
	Published bool      `json:"published" gorm:"not null;default:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// SEOSetting holds search metadata for one portfolio
type SEOSetting struct {
	PortfolioID  string    `json:"portfolio_id" gorm:"primaryKey;type:varchar(26)"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Keywords     []string  `json:"keywords" gorm:"serializer:json"`
	OGImage      string    `json:"og_image"`
	CanonicalURL string    `json:"canonical_url"`
	NoIndex      bool      `json:"no_index" gorm:"not null;default:false"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Portfolio *Portfolio `json:"-" gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE"`
}

// RecentItem records that a user picked some content of a given type.
// (user_id, type, content) is unique: recording it again bumps UsedAt.
type RecentItem struct {
	BaseModel
	UserID  string    `json:"user_id" gorm:"not null;uniqueIndex:idx_recent_user_type_content,priority:1"`
	Type    string    `json:"type" gorm:"not null;uniqueIndex:idx_recent_user_type_content,priority:2"`
	Content string    `json:"content" gorm:"not null;uniqueIndex:idx_recent_user_type_content,priority:3"`
	UsedAt  time.Time `json:"used_at" gorm:"index;not null"`
}

// Document is an opaque JSON value persisted as text
type Document json.RawMessage

// GormDataType implements schema.GormDataTypeInterface
func (Document) GormDataType() string {
	return "text"
}

// Value implements driver.Valuer
func (d Document) Value() (driver.Value, error) {
	if len(d) == 0 {
		return "{}", nil
	}
	return string(d), nil
}

// Scan implements sql.Scanner
func (d *Document) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = nil
	case string:
		*d = Document(v)
	case []byte:
		*d = append(Document(nil), v...)
	default:
		return fmt.Errorf("unsupported document type %T", value)
	}
	return nil
}

// MarshalJSON emits the stored document verbatim
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("{}"), nil
	}
	return d, nil
}

// UnmarshalJSON keeps the raw bytes
func (d *Document) UnmarshalJSON(data []byte) error {
	*d = append((*d)[:0], data...)
	return nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&Setting{}, &User{}, &RefreshToken{}, &Portfolio{}, &SEOSetting{}, &RecentItem{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
