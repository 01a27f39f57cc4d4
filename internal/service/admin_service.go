package service

import (
    "context"
    "fmt"

    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/policy"
    "github.com/iliyamo/room-reservation/internal/repository"
)

// AdminService backs the admin-wide listings.
type AdminService struct {
    users        repository.UserStore
    rooms        *RoomService
    reservations *ReservationService
}

func NewAdminService(users repository.UserStore, rooms *RoomService, reservations *ReservationService) *AdminService {
    return &AdminService{users: users, rooms: rooms, reservations: reservations}
}

// Users lists every registered principal.
func (s *AdminService) Users(ctx context.Context, p model.Principal) ([]model.User, error) {
    if !policy.Allowed(policy.Request{Op: policy.AdminList, Principal: p}) {
        return nil, forbidden("admin only")
    }
    users, err := s.users.ListUsers(ctx)
    if err != nil {
        return nil, fmt.Errorf("list users: %w", err)
    }
    return users, nil
}

// Rooms lists every room, including INACTIVE ones.
func (s *AdminService) Rooms(ctx context.Context, p model.Principal) ([]model.Room, error) {
    return s.rooms.ListAll(ctx, p)
}

// Reservations lists every reservation.
func (s *AdminService) Reservations(ctx context.Context, p model.Principal) ([]model.Reservation, error) {
    return s.reservations.ListAll(ctx, p)
}
