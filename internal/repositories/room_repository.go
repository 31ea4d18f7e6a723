package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"lodgepos_backend/internal/models"
	"strings"
	"time"
)

// RoomRepository defines the interface for room-related database operations.
type RoomRepository interface {
	CreateRoom(executor SQLExecutor, room *models.Room) (int64, error)
	GetRoomByID(id int64) (*models.Room, error)
	GetRoomByIDForUpdate(executor SQLExecutor, id int64) (*models.Room, error)
	GetRooms(filters models.RoomFilters) ([]models.Room, int, error) // Rooms, total count, error
	UpdateRoom(executor SQLExecutor, room *models.Room) error
	UpdateRoomOccupancy(executor SQLExecutor, roomID int64, occupied bool, guestID *int64, updatedAt time.Time) error
	DeleteRoom(executor SQLExecutor, id int64) error
}

type roomRepository struct {
	db *sql.DB
}

// NewRoomRepository creates a new instance of RoomRepository.
func NewRoomRepository(db *sql.DB) RoomRepository {
	return &roomRepository{db: db}
}

// CreateRoom inserts a new room into the database.
func (r *roomRepository) CreateRoom(executor SQLExecutor, room *models.Room) (int64, error) {
	query := `INSERT INTO rooms (label, daily_rate_cents, occupied, guest_id, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`

	currentTime := time.Now()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = currentTime
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = currentTime
	}

	err := executor.QueryRow(query,
		room.Label, room.DailyRateCents, room.Occupied, room.GuestID, room.Notes,
		room.CreatedAt, room.UpdatedAt,
	).Scan(&room.ID)

	if err != nil {
		if isUniqueViolation(err, "rooms_label_key") {
			return 0, fmt.Errorf("%w: room label '%s' already exists", ErrDuplicateKey, room.Label)
		}
		return 0, fmt.Errorf("%w: creating room: %v", ErrDatabaseError, err)
	}
	return room.ID, nil
}

const roomSelectQuery = `SELECT id, label, daily_rate_cents, occupied, guest_id, notes, created_at, updated_at
          FROM rooms`

// GetRoomByID retrieves a room by its ID.
func (r *roomRepository) GetRoomByID(id int64) (*models.Room, error) {
	return scanRoomRow(r.db.QueryRow(roomSelectQuery+` WHERE id = $1`, id), id)
}

// GetRoomByIDForUpdate retrieves a room and locks the row until the
// surrounding transaction ends.
func (r *roomRepository) GetRoomByIDForUpdate(executor SQLExecutor, id int64) (*models.Room, error) {
	return scanRoomRow(executor.QueryRow(roomSelectQuery+` WHERE id = $1 FOR UPDATE`, id), id)
}

func scanRoomRow(row scanner, id int64) (*models.Room, error) {
	room := &models.Room{}
	err := row.Scan(
		&room.ID, &room.Label, &room.DailyRateCents, &room.Occupied, &room.GuestID,
		&room.Notes, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting room by ID %d: %v", ErrDatabaseError, id, err)
	}
	return room, nil
}

// GetRooms retrieves a list of rooms with pagination and an optional occupancy filter.
func (r *roomRepository) GetRooms(filters models.RoomFilters) ([]models.Room, int, error) {
	rooms := []models.Room{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
        SELECT
            rm.id, rm.label, rm.daily_rate_cents, rm.occupied, rm.guest_id,
            rm.notes, rm.created_at, rm.updated_at,
            g.full_name as guest_name,
            COUNT(*) OVER() as total_count
        FROM rooms rm
        LEFT JOIN guests g ON rm.guest_id = g.id
    `)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.Occupied != nil {
		conditions = append(conditions, fmt.Sprintf("rm.occupied = $%d", argCounter))
		args = append(args, *filters.Occupied)
		argCounter++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY rm.label ASC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying rooms: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rm models.Room
		var guestName sql.NullString

		err := rows.Scan(
			&rm.ID, &rm.Label, &rm.DailyRateCents, &rm.Occupied, &rm.GuestID,
			&rm.Notes, &rm.CreatedAt, &rm.UpdatedAt,
			&guestName,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning room: %v", ErrDatabaseError, err)
		}

		if rm.GuestID != nil {
			guest := models.Guest{ID: *rm.GuestID}
			if guestName.Valid {
				guest.FullName = guestName.String
			}
			rm.Guest = &guest
		}
		rooms = append(rooms, rm)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating room rows: %v", ErrDatabaseError, err)
	}
	return rooms, totalCount, nil
}

// UpdateRoom updates an existing room in the database.
func (r *roomRepository) UpdateRoom(executor SQLExecutor, room *models.Room) error {
	query := `UPDATE rooms SET
	            label = $1, daily_rate_cents = $2, occupied = $3, guest_id = $4,
	            notes = $5, updated_at = $6
	          WHERE id = $7`

	room.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		room.Label, room.DailyRateCents, room.Occupied, room.GuestID,
		room.Notes, room.UpdatedAt, room.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "rooms_label_key") {
			return fmt.Errorf("%w: room label '%s' already exists", ErrDuplicateKey, room.Label)
		}
		return fmt.Errorf("%w: updating room ID %d: %v", ErrDatabaseError, room.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for updating room ID %d: %v", ErrDatabaseError, room.ID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRoomOccupancy sets the occupancy flag and occupant link of a room.
func (r *roomRepository) UpdateRoomOccupancy(executor SQLExecutor, roomID int64, occupied bool, guestID *int64, updatedAt time.Time) error {
	query := `UPDATE rooms SET occupied = $1, guest_id = $2, updated_at = $3 WHERE id = $4`
	result, err := executor.Exec(query, occupied, guestID, updatedAt, roomID)
	if err != nil {
		if isForeignKeyViolation(err, "rooms_guest_id_fkey") {
			return fmt.Errorf("%w: guest %v referenced by room ID %d", ErrForeignKeyViolation, guestID, roomID)
		}
		return fmt.Errorf("%w: updating occupancy for room ID %d: %v", ErrDatabaseError, roomID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for occupancy update room ID %d: %v", ErrDatabaseError, roomID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRoom removes a room from the database.
func (r *roomRepository) DeleteRoom(executor SQLExecutor, id int64) error {
	query := `DELETE FROM rooms WHERE id = $1`
	result, err := executor.Exec(query, id)
	if err != nil {
		if isForeignKeyViolation(err, "") {
			return fmt.Errorf("%w: room ID %d is still referenced by other records", ErrForeignKeyViolation, id)
		}
		return fmt.Errorf("%w: deleting room ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for deleting room ID %d: %v", ErrDatabaseError, id, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
