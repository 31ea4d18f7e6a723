package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lodgepos_backend/internal/database"
	"lodgepos_backend/internal/models"
	"lodgepos_backend/internal/repositories"
	"lodgepos_backend/pkg/utils"
)

// --- Custom Service Errors for Guests ---
var (
	ErrGuestNotFound       = fmt.Errorf("%w: guest not found", utils.ErrNotFound)
	ErrGuestNotActive      = fmt.Errorf("%w: guest is not active", utils.ErrConflict)
	ErrGuestAlreadyRoomed  = fmt.Errorf("%w: guest already has a room", utils.ErrConflict)
	ErrGuestHasUnpaidSales = fmt.Errorf("%w: guest has unsettled sales", utils.ErrConflict)
	ErrLoyaltyNegative     = fmt.Errorf("%w: loyalty points cannot go negative", utils.ErrConflict)
)

// --- Guest DTOs ---

// RegisterGuestRequest is used for checking a guest in.
type RegisterGuestRequest struct {
	FullName    string  `json:"full_name" validate:"required"`
	PhoneNumber *string `json:"phone_number"`
	RoomID      *int64  `json:"room_id"` // Optional immediate room assignment
	Notes       *string `json:"notes"`
}

// --- GuestService Interface ---
type GuestService interface {
	RegisterGuest(req RegisterGuestRequest) (*models.Guest, error)
	GetGuest(guestID int64) (*models.Guest, error)
	ListGuests(filters models.GuestFilters) ([]models.Guest, int, error)
	CheckoutGuest(guestID int64) (*models.Guest, error)
	AdjustLoyaltyPoints(guestID int64, delta int) (*models.Guest, error)
}

// --- guestService Implementation ---
type guestService struct {
	guestRepo repositories.GuestRepository
	roomRepo  repositories.RoomRepository
	saleRepo  repositories.SaleRepository
	roomSvc   RoomService
	db        *sql.DB
}

// NewGuestService creates a new instance of GuestService.
func NewGuestService(
	gr repositories.GuestRepository,
	rr repositories.RoomRepository,
	sr repositories.SaleRepository,
	rs RoomService,
	db *sql.DB,
) GuestService {
	return &guestService{
		guestRepo: gr,
		roomRepo:  rr,
		saleRepo:  sr,
		roomSvc:   rs,
		db:        db,
	}
}

func (s *guestService) RegisterGuest(req RegisterGuestRequest) (*models.Guest, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if utils.IsEmpty(req.FullName) {
		return nil, fmt.Errorf("%w: guest name cannot be empty", ErrValidation)
	}

	guest := models.Guest{
		FullName:      strings.TrimSpace(req.FullName),
		PhoneNumber:   utils.TrimToNil(req.PhoneNumber),
		Status:        models.GuestStatusActive,
		LoyaltyPoints: 0,
		Notes:         utils.TrimToNil(req.Notes),
	}
	id, err := s.guestRepo.CreateGuest(s.db, &guest)
	if err != nil {
		return nil, fmt.Errorf("failed to create guest: %w", err)
	}
	utils.LogInfo("guest registered", map[string]interface{}{
		"guest_id": id,
		"name":     guest.FullName,
	})

	if req.RoomID != nil {
		if _, err := s.roomSvc.AssignRoom(*req.RoomID, id); err != nil {
			return nil, fmt.Errorf("guest %d created but room assignment failed: %w", id, err)
		}
	}
	return s.GetGuest(id)
}

func (s *guestService) GetGuest(guestID int64) (*models.Guest, error) {
	guest, err := s.guestRepo.GetGuestByID(guestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: guest ID %d", ErrGuestNotFound, guestID)
		}
		return nil, fmt.Errorf("failed to get guest by ID: %w", err)
	}
	if guest.RoomID != nil {
		room, err := s.roomRepo.GetRoomByID(*guest.RoomID)
		if err == nil {
			guest.Room = room
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to get room for guest %d: %w", guestID, err)
		}
	}
	return guest, nil
}

func (s *guestService) ListGuests(filters models.GuestFilters) ([]models.Guest, int, error) {
	guests, totalCount, err := s.guestRepo.GetGuests(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get guests: %w", err)
	}
	return guests, totalCount, nil
}

// CheckoutGuest flips the guest to checked_out and releases the linked room
// in the same transaction. Settlement comes first: any sale with an open
// balance blocks the checkout.
func (s *guestService) CheckoutGuest(guestID int64) (*models.Guest, error) {
	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		guest, err := s.guestRepo.GetGuestByIDForUpdate(tx, guestID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: guest ID %d", ErrGuestNotFound, guestID)
			}
			return fmt.Errorf("failed to lock guest %d: %w", guestID, err)
		}
		if guest.Status != models.GuestStatusActive {
			return fmt.Errorf("%w: guest ID %d", ErrGuestNotActive, guestID)
		}

		unsettled, err := s.saleRepo.CountSalesWithBalanceByGuest(tx, guestID)
		if err != nil {
			return fmt.Errorf("failed to count unsettled sales for guest %d: %w", guestID, err)
		}
		if unsettled > 0 {
			return fmt.Errorf("%w: guest %s has %d unsettled sales", ErrGuestHasUnpaidSales, guest.FullName, unsettled)
		}

		now := time.Now()
		if guest.RoomID != nil {
			room, err := s.roomRepo.GetRoomByIDForUpdate(tx, *guest.RoomID)
			if err == nil {
				if err := s.roomRepo.UpdateRoomOccupancy(tx, room.ID, false, nil, now); err != nil {
					return fmt.Errorf("failed to release room %d: %w", room.ID, err)
				}
			} else if !errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("failed to lock room %d: %w", *guest.RoomID, err)
			}
			if err := s.guestRepo.UpdateGuestRoom(tx, guestID, nil, now); err != nil {
				return fmt.Errorf("failed to unlink room for guest %d: %w", guestID, err)
			}
		}
		if err := s.guestRepo.UpdateGuestStatus(tx, guestID, models.GuestStatusCheckedOut, now); err != nil {
			return fmt.Errorf("failed to update guest %d status: %w", guestID, err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	utils.LogInfo("guest checked out", map[string]interface{}{"guest_id": guestID})
	return s.GetGuest(guestID)
}

// AdjustLoyaltyPoints applies a signed delta under a row lock; the balance
// can never end up below zero.
func (s *guestService) AdjustLoyaltyPoints(guestID int64, delta int) (*models.Guest, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: loyalty delta cannot be zero", ErrValidation)
	}

	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		guest, err := s.guestRepo.GetGuestByIDForUpdate(tx, guestID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: guest ID %d", ErrGuestNotFound, guestID)
			}
			return fmt.Errorf("failed to lock guest %d: %w", guestID, err)
		}

		newPoints := guest.LoyaltyPoints + delta
		if newPoints < 0 {
			return fmt.Errorf("%w: balance %d with delta %+d", ErrLoyaltyNegative, guest.LoyaltyPoints, delta)
		}
		if err := s.guestRepo.UpdateGuestLoyalty(tx, guestID, newPoints, time.Now()); err != nil {
			return fmt.Errorf("failed to update loyalty points for guest %d: %w", guestID, err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.GetGuest(guestID)
}
