package services

import (
	"github.com/festalaurea/booking-backend/internal/models"
)

// UserRef identifies the authenticated caller of a service operation
type UserRef struct {
	ID   int64
	Type models.UserType
}
