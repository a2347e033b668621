// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/agilemeets/meeting-service/internal/domain/models"
)

// RoomService is the contract to the external online-meeting room
// provider. A missing room means the provider terminated it (for example
// after an inactivity timeout) and surfaces as a not-found error.
type RoomService interface {
	GetRoom(ctx context.Context, name string) (*models.Room, error)
}
