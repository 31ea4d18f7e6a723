package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"lodgepos_backend/internal/models"
	"strings"
	"time"
)

// GuestRepository defines the interface for guest-related database operations.
type GuestRepository interface {
	CreateGuest(executor SQLExecutor, guest *models.Guest) (int64, error)
	GetGuestByID(id int64) (*models.Guest, error)
	GetGuestByIDForUpdate(executor SQLExecutor, id int64) (*models.Guest, error)
	GetGuests(filters models.GuestFilters) ([]models.Guest, int, error) // Guests, total count, error
	UpdateGuest(executor SQLExecutor, guest *models.Guest) error
	UpdateGuestStatus(executor SQLExecutor, guestID int64, status models.GuestStatus, updatedAt time.Time) error
	UpdateGuestRoom(executor SQLExecutor, guestID int64, roomID *int64, updatedAt time.Time) error
	UpdateGuestLoyalty(executor SQLExecutor, guestID int64, points int, updatedAt time.Time) error
}

type guestRepository struct {
	db *sql.DB
}

// NewGuestRepository creates a new instance of GuestRepository.
func NewGuestRepository(db *sql.DB) GuestRepository {
	return &guestRepository{db: db}
}

// CreateGuest inserts a new guest into the database.
func (r *guestRepository) CreateGuest(executor SQLExecutor, guest *models.Guest) (int64, error) {
	query := `INSERT INTO guests (full_name, phone_number, status, loyalty_points, room_id, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`

	currentTime := time.Now()
	if guest.CreatedAt.IsZero() {
		guest.CreatedAt = currentTime
	}
	if guest.UpdatedAt.IsZero() {
		guest.UpdatedAt = currentTime
	}
	if guest.Status == "" {
		guest.Status = models.GuestStatusActive
	}

	err := executor.QueryRow(query,
		guest.FullName, guest.PhoneNumber, guest.Status, guest.LoyaltyPoints,
		guest.RoomID, guest.Notes, guest.CreatedAt, guest.UpdatedAt,
	).Scan(&guest.ID)

	if err != nil {
		if isForeignKeyViolation(err, "guests_room_id_fkey") {
			return 0, fmt.Errorf("%w: room %v referenced by new guest", ErrForeignKeyViolation, guest.RoomID)
		}
		return 0, fmt.Errorf("%w: creating guest: %v", ErrDatabaseError, err)
	}
	return guest.ID, nil
}

// GetGuestByID retrieves a guest by their ID.
func (r *guestRepository) GetGuestByID(id int64) (*models.Guest, error) {
	return scanGuestRow(r.db.QueryRow(guestSelectQuery+` WHERE id = $1`, id), id)
}

// GetGuestByIDForUpdate retrieves a guest and locks the row until the
// surrounding transaction ends.
func (r *guestRepository) GetGuestByIDForUpdate(executor SQLExecutor, id int64) (*models.Guest, error) {
	return scanGuestRow(executor.QueryRow(guestSelectQuery+` WHERE id = $1 FOR UPDATE`, id), id)
}

const guestSelectQuery = `SELECT id, full_name, phone_number, status, loyalty_points, room_id, notes, created_at, updated_at
          FROM guests`

func scanGuestRow(row scanner, id int64) (*models.Guest, error) {
	guest := &models.Guest{}
	err := row.Scan(
		&guest.ID, &guest.FullName, &guest.PhoneNumber, &guest.Status, &guest.LoyaltyPoints,
		&guest.RoomID, &guest.Notes, &guest.CreatedAt, &guest.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting guest by ID %d: %v", ErrDatabaseError, id, err)
	}
	return guest, nil
}

// GetGuests retrieves a list of guests with pagination and optional filters.
func (r *guestRepository) GetGuests(filters models.GuestFilters) ([]models.Guest, int, error) {
	guests := []models.Guest{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
        SELECT
            g.id, g.full_name, g.phone_number, g.status, g.loyalty_points, g.room_id,
            g.notes, g.created_at, g.updated_at,
            r.label as room_label,
            COUNT(*) OVER() as total_count
        FROM guests g
        LEFT JOIN rooms r ON g.room_id = r.id
    `)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("g.status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}
	if filters.Search != nil && *filters.Search != "" {
		searchPattern := "%" + *filters.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(g.full_name ILIKE $%d OR g.phone_number ILIKE $%d)", argCounter, argCounter))
		args = append(args, searchPattern)
		argCounter++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY g.full_name ASC")

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
		return nil, 0, fmt.Errorf("%w: querying guests: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var g models.Guest
		var roomLabel sql.NullString

		err := rows.Scan(
			&g.ID, &g.FullName, &g.PhoneNumber, &g.Status, &g.LoyaltyPoints, &g.RoomID,
			&g.Notes, &g.CreatedAt, &g.UpdatedAt,
			&roomLabel,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning guest: %v", ErrDatabaseError, err)
		}

		if g.RoomID != nil {
			room := models.Room{ID: *g.RoomID}
			if roomLabel.Valid {
				room.Label = roomLabel.String
			}
			g.Room = &room
		}
		guests = append(guests, g)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating guest rows: %v", ErrDatabaseError, err)
	}
	return guests, totalCount, nil
}

// UpdateGuest updates an existing guest in the database.
func (r *guestRepository) UpdateGuest(executor SQLExecutor, guest *models.Guest) error {
	query := `UPDATE guests SET
	            full_name = $1, phone_number = $2, status = $3, loyalty_points = $4,
	            room_id = $5, notes = $6, updated_at = $7
	          WHERE id = $8`

	guest.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		guest.FullName, guest.PhoneNumber, guest.Status, guest.LoyaltyPoints,
		guest.RoomID, guest.Notes, guest.UpdatedAt, guest.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating guest ID %d: %v", ErrDatabaseError, guest.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for updating guest ID %d: %v", ErrDatabaseError, guest.ID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateGuestStatus sets the status of a guest.
func (r *guestRepository) UpdateGuestStatus(executor SQLExecutor, guestID int64, status models.GuestStatus, updatedAt time.Time) error {
	query := `UPDATE guests SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.Exec(query, status, updatedAt, guestID)
	if err != nil {
		return fmt.Errorf("%w: updating guest status for ID %d: %v", ErrDatabaseError, guestID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for guest status update ID %d: %v", ErrDatabaseError, guestID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateGuestRoom sets or clears the room link of a guest.
func (r *guestRepository) UpdateGuestRoom(executor SQLExecutor, guestID int64, roomID *int64, updatedAt time.Time) error {
	query := `UPDATE guests SET room_id = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.Exec(query, roomID, updatedAt, guestID)
	if err != nil {
		if isForeignKeyViolation(err, "guests_room_id_fkey") {
			return fmt.Errorf("%w: room %v referenced by guest ID %d", ErrForeignKeyViolation, roomID, guestID)
		}
		return fmt.Errorf("%w: updating guest room for ID %d: %v", ErrDatabaseError, guestID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for guest room update ID %d: %v", ErrDatabaseError, guestID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateGuestLoyalty sets the absolute loyalty point balance of a guest.
func (r *guestRepository) UpdateGuestLoyalty(executor SQLExecutor, guestID int64, points int, updatedAt time.Time) error {
	query := `UPDATE guests SET loyalty_points = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.Exec(query, points, updatedAt, guestID)
	if err != nil {
		return fmt.Errorf("%w: updating loyalty points for guest ID %d: %v", ErrDatabaseError, guestID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for loyalty update guest ID %d: %v", ErrDatabaseError, guestID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
