// Package models declares the tables the admin panel manages.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ProductType classifies products.
type ProductType string

const (
	ProductOrdinary ProductType = "ordinary"
	ProductVIP      ProductType = "vip"
)

// Status toggles a Config entry.
type Status string

const (
	StatusOn  Status = "on"
	StatusOff Status = "off"
)

// ErrInvalidField is returned by validation hooks.
var ErrInvalidField = errors.New("models: invalid field")

// Admin is a user allowed to sign in to the admin panel.
type Admin struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:50;uniqueIndex;not null"`
	Password  string `gorm:"size:200;not null" admin:"-"`
	Email     string `gorm:"size:200"`
	Avatar    string `gorm:"size:200"`
	Intro     string `gorm:"type:text"`
	LastLogin *time.Time
	CreatedAt time.Time
}

// SetPassword stores the bcrypt hash of plain.
func (a *Admin) SetPassword(plain string) error {
	hash, err := HashPassword(plain)
	if err != nil {
		return err
	}
	a.Password = hash
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (a *Admin) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(plain)) == nil
}

func (a *Admin) BeforeSave(tx *gorm.DB) error {
	a.Username = strings.TrimSpace(a.Username)
	if a.Username == "" || len(a.Username) > 50 {
		return fmt.Errorf("%w: username must be 1-50 characters", ErrInvalidField)
	}
	return nil
}

// Category groups products.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Slug      string `gorm:"size:200;uniqueIndex;not null"`
	Name      string `gorm:"size:200;not null"`
	CreatedAt time.Time
}

// Product is a catalogue entry.
type Product struct {
	ID         uint        `gorm:"primaryKey"`
	Name       string      `gorm:"size:50;not null"`
	ViewNum    int         `gorm:"not null;default:0"`
	Sort       int         `gorm:"not null;default:0"`
	IsReviewed bool        `gorm:"not null;default:false"`
	Type       ProductType `gorm:"size:10;not null;default:ordinary"`
	Image      string      `gorm:"size:200"`
	Body       string      `gorm:"type:text"`
	Categories []Category  `gorm:"many2many:product_categories;"`
	CreatedAt  time.Time
}

func (p *Product) BeforeSave(tx *gorm.DB) error {
	switch p.Type {
	case "":
		p.Type = ProductOrdinary
	case ProductOrdinary, ProductVIP:
	default:
		return fmt.Errorf("%w: product type %q", ErrInvalidField, p.Type)
	}
	return nil
}

// Config is a labelled JSON setting that can be switched on or off.
type Config struct {
	ID     uint   `gorm:"primaryKey"`
	Label  string `gorm:"size:200;not null"`
	Key    string `gorm:"size:20;uniqueIndex;not null"`
	Value  string `gorm:"type:text;not null;default:'{}'"`
	Status Status `gorm:"size:3;not null;default:on"`
}

func (c *Config) BeforeSave(tx *gorm.DB) error {
	switch c.Status {
	case "":
		c.Status = StatusOn
	case StatusOn, StatusOff:
	default:
		return fmt.Errorf("%w: config status %q", ErrInvalidField, c.Status)
	}
	return nil
}

// All lists every model schema generation creates, in dependency order.
func All() []any {
	return []any{&Admin{}, &Category{}, &Product{}, &Config{}}
}

// HashPassword returns the bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: empty password", ErrInvalidField)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("models: hash password: %w", err)
	}
	return string(hash), nil
}
