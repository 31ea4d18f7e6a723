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

// --- Custom Service Errors for Rooms ---
var (
	ErrRoomNotFound    = fmt.Errorf("%w: room not found", utils.ErrNotFound)
	ErrRoomLabelExists = fmt.Errorf("%w: room label already exists", utils.ErrConflict)
	ErrRoomOccupied    = fmt.Errorf("%w: room is occupied", utils.ErrConflict)
	ErrRoomVacant      = fmt.Errorf("%w: room is not occupied", utils.ErrConflict)
)

// --- Room DTOs ---

// CreateRoomRequest is used for registering a room.
type CreateRoomRequest struct {
	Label     string  `json:"label" validate:"required"`
	DailyRate float64 `json:"daily_rate" validate:"gte=0"`
	Notes     *string `json:"notes"`
}

// UpdateRoomRequest carries optional fields; nil means unchanged.
type UpdateRoomRequest struct {
	Label     *string  `json:"label"`
	DailyRate *float64 `json:"daily_rate"`
	Notes     *string  `json:"notes"`
}

// --- RoomService Interface ---
type RoomService interface {
	CreateRoom(req CreateRoomRequest) (*models.Room, error)
	UpdateRoom(roomID int64, req UpdateRoomRequest) (*models.Room, error)
	GetRoom(roomID int64) (*models.Room, error)
	ListRooms(filters models.RoomFilters) ([]models.Room, int, error)
	AssignRoom(roomID, guestID int64) (*models.Room, error)
	ReleaseRoom(roomID int64) (*models.Room, error)
	DeleteRoom(roomID int64) error
}

// --- roomService Implementation ---
type roomService struct {
	roomRepo  repositories.RoomRepository
	guestRepo repositories.GuestRepository
	db        *sql.DB
}

// NewRoomService creates a new instance of RoomService.
func NewRoomService(rr repositories.RoomRepository, gr repositories.GuestRepository, db *sql.DB) RoomService {
	return &roomService{
		roomRepo:  rr,
		guestRepo: gr,
		db:        db,
	}
}

func (s *roomService) CreateRoom(req CreateRoomRequest) (*models.Room, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if utils.IsEmpty(req.Label) {
		return nil, fmt.Errorf("%w: room label cannot be empty", ErrValidation)
	}
	room := models.Room{
		Label:          strings.TrimSpace(req.Label),
		DailyRateCents: utils.CentsFromAmount(req.DailyRate),
		Occupied:       false,
		Notes:          utils.TrimToNil(req.Notes),
	}
	id, err := s.roomRepo.CreateRoom(s.db, &room)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %q", ErrRoomLabelExists, room.Label)
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return s.roomRepo.GetRoomByID(id)
}

func (s *roomService) UpdateRoom(roomID int64, req UpdateRoomRequest) (*models.Room, error) {
	room, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: room ID %d", ErrRoomNotFound, roomID)
		}
		return nil, fmt.Errorf("failed to get room for update: %w", err)
	}

	if req.Label != nil {
		if utils.IsEmpty(*req.Label) {
			return nil, fmt.Errorf("%w: room label cannot be empty if provided", ErrValidation)
		}
		room.Label = strings.TrimSpace(*req.Label)
	}
	if req.DailyRate != nil {
		if *req.DailyRate < 0 {
			return nil, fmt.Errorf("%w: daily_rate cannot be negative", ErrValidation)
		}
		room.DailyRateCents = utils.CentsFromAmount(*req.DailyRate)
	}
	if req.Notes != nil {
		room.Notes = utils.TrimToNil(req.Notes)
	}

	if err := s.roomRepo.UpdateRoom(s.db, room); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %q", ErrRoomLabelExists, room.Label)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: room ID %d", ErrRoomNotFound, roomID)
		}
		return nil, fmt.Errorf("failed to update room: %w", err)
	}
	return s.roomRepo.GetRoomByID(roomID)
}

func (s *roomService) GetRoom(roomID int64) (*models.Room, error) {
	room, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: room ID %d", ErrRoomNotFound, roomID)
		}
		return nil, fmt.Errorf("failed to get room by ID: %w", err)
	}
	return room, nil
}

func (s *roomService) ListRooms(filters models.RoomFilters) ([]models.Room, int, error) {
	rooms, totalCount, err := s.roomRepo.GetRooms(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get rooms: %w", err)
	}
	return rooms, totalCount, nil
}

// AssignRoom couples both sides of the occupancy link in one transaction:
// rooms.occupied + rooms.guest_id and guests.room_id always change together.
func (s *roomService) AssignRoom(roomID, guestID int64) (*models.Room, error) {
	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		room, err := s.roomRepo.GetRoomByIDForUpdate(tx, roomID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: room ID %d", ErrRoomNotFound, roomID)
			}
			return fmt.Errorf("failed to lock room %d: %w", roomID, err)
		}
		if room.Occupied {
			return fmt.Errorf("%w: room %q", ErrRoomOccupied, room.Label)
		}

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
		if guest.RoomID != nil {
			return fmt.Errorf("%w: guest %s is already in room %d", ErrGuestAlreadyRoomed, guest.FullName, *guest.RoomID)
		}

		now := time.Now()
		if err := s.roomRepo.UpdateRoomOccupancy(tx, roomID, true, &guestID, now); err != nil {
			return fmt.Errorf("failed to mark room %d occupied: %w", roomID, err)
		}
		if err := s.guestRepo.UpdateGuestRoom(tx, guestID, &roomID, now); err != nil {
			return fmt.Errorf("failed to link guest %d to room %d: %w", guestID, roomID, err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	utils.LogInfo("room assigned", map[string]interface{}{
		"room_id":  roomID,
		"guest_id": guestID,
	})
	return s.roomRepo.GetRoomByID(roomID)
}

// ReleaseRoom clears both sides of the occupancy link.
func (s *roomService) ReleaseRoom(roomID int64) (*models.Room, error) {
	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		room, err := s.roomRepo.GetRoomByIDForUpdate(tx, roomID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: room ID %d", ErrRoomNotFound, roomID)
			}
			return fmt.Errorf("failed to lock room %d: %w", roomID, err)
		}
		if !room.Occupied {
			return fmt.Errorf("%w: room %q", ErrRoomVacant, room.Label)
		}

		now := time.Now()
		if room.GuestID != nil {
			if _, err := s.guestRepo.GetGuestByIDForUpdate(tx, *room.GuestID); err == nil {
				if err := s.guestRepo.UpdateGuestRoom(tx, *room.GuestID, nil, now); err != nil {
					return fmt.Errorf("failed to unlink guest %d from room %d: %w", *room.GuestID, roomID, err)
				}
			} else if !errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("failed to lock guest %d: %w", *room.GuestID, err)
			}
		}
		if err := s.roomRepo.UpdateRoomOccupancy(tx, roomID, false, nil, now); err != nil {
			return fmt.Errorf("failed to mark room %d vacant: %w", roomID, err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	utils.LogInfo("room released", map[string]interface{}{"room_id": roomID})
	return s.roomRepo.GetRoomByID(roomID)
}

func (s *roomService) DeleteRoom(roomID int64) error {
	room, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: room ID %d", ErrRoomNotFound, roomID)
		}
		return fmt.Errorf("failed to get room for deletion: %w", err)
	}
	if room.Occupied {
		return fmt.Errorf("%w: room %q cannot be deleted while occupied", ErrRoomOccupied, room.Label)
	}
	if err := s.roomRepo.DeleteRoom(s.db, roomID); err != nil {
		if errors.Is(err, repositories.ErrForeignKeyViolation) {
			return fmt.Errorf("%w: room %q is still referenced by a guest", utils.ErrConflict, room.Label)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: room ID %d", ErrRoomNotFound, roomID)
		}
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}
