package models

import (
	"time"

	"gorm.io/gorm"
)

// Model is the base model with common fields for all database entities
type Model struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// AuthorizationLevel represents the level of access for an API key
type AuthorizationLevel int

const (
	// NoAuthLevel represents public access with no authentication
	NoAuthLevel AuthorizationLevel = 0
	// ViewerAuthLevel represents read-only access
	ViewerAuthLevel AuthorizationLevel = 1
	// WriterAuthLevel represents read-write access
	WriterAuthLevel AuthorizationLevel = 2
	// SudoAuthLevel represents administrative access
	SudoAuthLevel AuthorizationLevel = 3
)

// APIKey represents an API token with associated access level
type APIKey struct {
	Model
	Key                string             `json:"key" gorm:"uniqueIndex;Column:key"`
	Name               string             `json:"name" gorm:"Column:name"`
	AuthorizationLevel AuthorizationLevel `json:"authorization_level" gorm:"Column:authorization_level"`
	ExpiresAt          *time.Time         `json:"expires_at" gorm:"Column:expires_at"`
	LastUsedAt         *time.Time         `json:"last_used_at" gorm:"Column:last_used_at"`
}

// House model represents a home owning a set of spaces
type House struct {
	Model
	Name    string `json:"name" gorm:"Column:name"`
	Address string `json:"address" gorm:"Column:address"`
	UserID  uint   `json:"user_id" gorm:"Column:user_id"`
}

// Space model represents a room or area within a house
type Space struct {
	Model
	Name    string `json:"name" gorm:"Column:name"`
	House   *House `json:"house,omitempty" gorm:"foreignKey:HouseID"`
	HouseID uint   `json:"house_id" gorm:"Column:house_id"`
}

// DeviceType model classifies devices; the rated wattage for a type is
// resolved through the configuration table, not stored here
type DeviceType struct {
	Model
	Name string `json:"name" gorm:"uniqueIndex;Column:name"`
}

// Device model represents a physical device in the system.
// PowerStatus is owned by the CRUD/acknowledgement layer; the core reads
// it for context and only touches it through the best-effort presumed-off
// path on disconnect.
type Device struct {
	Model
	UID         string      `json:"uid" gorm:"uniqueIndex;Column:uid"`
	Name        string      `json:"name" gorm:"Column:name"`
	Type        *DeviceType `json:"type,omitempty" gorm:"foreignKey:TypeID"`
	TypeID      uint        `json:"type_id" gorm:"Column:type_id"`
	Space       *Space      `json:"space,omitempty" gorm:"foreignKey:SpaceID"`
	SpaceID     *uint       `json:"space_id" gorm:"Column:space_id"`
	UserID      uint        `json:"user_id" gorm:"Column:user_id"`
	PowerStatus bool        `json:"power_status" gorm:"Column:power_status"`
	Active      bool        `json:"active" gorm:"Column:active"`
	Attributes  string      `json:"attributes" gorm:"Column:attributes;type:text"`
}

// AlertKind identifies the condition that raised an alert
type AlertKind string

const (
	// AlertGasHigh is raised when a reported gas level exceeds the threshold
	AlertGasHigh AlertKind = "gas_high"
	// AlertTempHigh is raised when a reported temperature exceeds the threshold
	AlertTempHigh AlertKind = "temp_high"
)

// AlertStatus tracks whether an alert has been handled
type AlertStatus string

const (
	AlertStatusUnresolved AlertStatus = "unresolved"
	AlertStatusResolved   AlertStatus = "resolved"
)

// Alert model represents a threshold violation raised from a sensor reading
type Alert struct {
	Model
	Device   *Device     `json:"device,omitempty" gorm:"foreignKey:DeviceID"`
	DeviceID uint        `json:"device_id" gorm:"Column:device_id;index"`
	SpaceID  *uint       `json:"space_id" gorm:"Column:space_id"`
	Kind     AlertKind   `json:"kind" gorm:"Column:kind"`
	Message  string      `json:"message" gorm:"Column:message"`
	Value    float64     `json:"value" gorm:"Column:value"`
	Status   AlertStatus `json:"status" gorm:"Column:status;default:'unresolved'"`
	RaisedAt time.Time   `json:"raised_at" gorm:"Column:raised_at"`
}
