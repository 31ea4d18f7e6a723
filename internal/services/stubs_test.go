package services

import (
	"database/sql"
	"sort"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"lodgepos_backend/internal/models"
	"lodgepos_backend/internal/repositories"
)

// newMockDB returns a *sql.DB whose Begin/Commit/Rollback calls are scripted
// through sqlmock. The repositories in these tests are in-memory stubs, so no
// statement expectations are needed, only the transaction lifecycle.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func ptrInt64(v int64) *int64     { return &v }
func ptrInt(v int) *int           { return &v }
func ptrFloat(v float64) *float64 { return &v }
func ptrStr(v string) *string     { return &v }
func ptrBool(v bool) *bool        { return &v }

// --- Sale repository stub ---

type stubSaleRepo struct {
	sales      map[int64]*models.Sale
	saleItems  map[int64][]models.SaleItem
	nextSaleID int64
	nextItemID int64

	createSaleErr  error
	listSales      []models.Sale
	listTotal      int
	listErr        error
	paidSalesSum   int64
	unpaidByGuest  map[int64]int
	unpaidCountErr error
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{
		sales:         make(map[int64]*models.Sale),
		saleItems:     make(map[int64][]models.SaleItem),
		unpaidByGuest: make(map[int64]int),
	}
}

func (s *stubSaleRepo) CreateSale(_ repositories.SQLExecutor, sale *models.Sale) (int64, error) {
	if s.createSaleErr != nil {
		return 0, s.createSaleErr
	}
	s.nextSaleID++
	stored := *sale
	stored.ID = s.nextSaleID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.sales[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubSaleRepo) GetSaleByID(saleID int64) (*models.Sale, error) {
	sale, ok := s.sales[saleID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *sale
	return &cp, nil
}

func (s *stubSaleRepo) GetSaleByIDForUpdate(_ repositories.SQLExecutor, saleID int64) (*models.Sale, error) {
	return s.GetSaleByID(saleID)
}

func (s *stubSaleRepo) GetSales(filters models.SaleFilters) ([]models.Sale, int, error) {
	return s.listSales, s.listTotal, s.listErr
}

func (s *stubSaleRepo) MarkSalePaid(_ repositories.SQLExecutor, saleID int64, paidAt time.Time) error {
	sale, ok := s.sales[saleID]
	if !ok || sale.Paid {
		return repositories.ErrNotFound
	}
	sale.Paid = true
	at := paidAt
	sale.PaidAt = &at
	return nil
}

func (s *stubSaleRepo) SumPaidSalesBetween(_ repositories.SQLExecutor, from, to time.Time) (int64, error) {
	return s.paidSalesSum, nil
}

func (s *stubSaleRepo) CountSalesWithBalanceByGuest(_ repositories.SQLExecutor, guestID int64) (int, error) {
	if s.unpaidCountErr != nil {
		return 0, s.unpaidCountErr
	}
	return s.unpaidByGuest[guestID], nil
}

func (s *stubSaleRepo) CreateSaleItem(_ repositories.SQLExecutor, item *models.SaleItem) (int64, error) {
	s.nextItemID++
	stored := *item
	stored.ID = s.nextItemID
	s.saleItems[stored.SaleID] = append(s.saleItems[stored.SaleID], stored)
	return stored.ID, nil
}

func (s *stubSaleRepo) GetSaleItemsBySaleID(saleID int64) ([]models.SaleItem, error) {
	return s.saleItems[saleID], nil
}

func (s *stubSaleRepo) GetSaleItemsBySaleIDForUpdate(_ repositories.SQLExecutor, saleID int64) ([]models.SaleItem, error) {
	return s.saleItems[saleID], nil
}

// --- Catalog repository stub ---

type stubCatalogRepo struct {
	items  map[int64]*models.CatalogItem
	nextID int64

	createErr error
	updateErr error
	listItems []models.CatalogItem
	listTotal int
	lowStock  []models.CatalogItem
}

func newStubCatalogRepo(items ...*models.CatalogItem) *stubCatalogRepo {
	r := &stubCatalogRepo{items: make(map[int64]*models.CatalogItem)}
	for _, item := range items {
		cp := *item
		r.items[cp.ID] = &cp
		if cp.ID > r.nextID {
			r.nextID = cp.ID
		}
	}
	return r
}

func (s *stubCatalogRepo) CreateItem(_ repositories.SQLExecutor, item *models.CatalogItem) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.nextID++
	stored := *item
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.items[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubCatalogRepo) GetItemByID(id int64) (*models.CatalogItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *stubCatalogRepo) GetItemByIDForUpdate(_ repositories.SQLExecutor, id int64) (*models.CatalogItem, error) {
	return s.GetItemByID(id)
}

func (s *stubCatalogRepo) GetItemsByIDsForUpdate(_ repositories.SQLExecutor, ids []int64) ([]models.CatalogItem, error) {
	var found []models.CatalogItem
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			found = append(found, *item)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, nil
}

func (s *stubCatalogRepo) GetItems(filters models.CatalogFilters) ([]models.CatalogItem, int, error) {
	return s.listItems, s.listTotal, nil
}

func (s *stubCatalogRepo) UpdateItem(_ repositories.SQLExecutor, item *models.CatalogItem) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.items[item.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *item
	s.items[item.ID] = &stored
	return nil
}

func (s *stubCatalogRepo) SetItemActive(_ repositories.SQLExecutor, id int64, active bool, updatedAt time.Time) error {
	item, ok := s.items[id]
	if !ok {
		return repositories.ErrNotFound
	}
	item.IsActive = active
	item.UpdatedAt = updatedAt
	return nil
}

func (s *stubCatalogRepo) UpdateStock(_ repositories.SQLExecutor, itemID int64, stockQuantity int, updatedAt time.Time) error {
	item, ok := s.items[itemID]
	if !ok {
		return repositories.ErrNotFound
	}
	item.StockQuantity = stockQuantity
	item.UpdatedAt = updatedAt
	return nil
}

func (s *stubCatalogRepo) GetLowStockItems() ([]models.CatalogItem, error) {
	return s.lowStock, nil
}

func (s *stubCatalogRepo) stockOf(t *testing.T, id int64) int {
	t.Helper()
	item, ok := s.items[id]
	if !ok {
		t.Fatalf("catalog item %d not in stub", id)
	}
	return item.StockQuantity
}

// --- Stock movement repository stub ---

type stubMovementRepo struct {
	movements []models.StockMovement
	createErr error
}

func (s *stubMovementRepo) CreateMovement(_ repositories.SQLExecutor, movement *models.StockMovement) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	stored := *movement
	stored.ID = int64(len(s.movements) + 1)
	if stored.MovedAt.IsZero() {
		stored.MovedAt = time.Now()
	}
	s.movements = append(s.movements, stored)
	return stored.ID, nil
}

func (s *stubMovementRepo) GetMovements(filters models.StockMovementFilters) ([]models.StockMovement, int, error) {
	return s.movements, len(s.movements), nil
}

// --- Guest repository stub ---

type stubGuestRepo struct {
	guests    map[int64]*models.Guest
	nextID    int64
	createErr error
	listTotal int
}

func newStubGuestRepo(guests ...*models.Guest) *stubGuestRepo {
	r := &stubGuestRepo{guests: make(map[int64]*models.Guest)}
	for _, g := range guests {
		cp := *g
		r.guests[cp.ID] = &cp
		if cp.ID > r.nextID {
			r.nextID = cp.ID
		}
	}
	return r
}

func (s *stubGuestRepo) CreateGuest(_ repositories.SQLExecutor, guest *models.Guest) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.nextID++
	stored := *guest
	stored.ID = s.nextID
	s.guests[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubGuestRepo) GetGuestByID(id int64) (*models.Guest, error) {
	guest, ok := s.guests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *guest
	return &cp, nil
}

func (s *stubGuestRepo) GetGuestByIDForUpdate(_ repositories.SQLExecutor, id int64) (*models.Guest, error) {
	return s.GetGuestByID(id)
}

func (s *stubGuestRepo) GetGuests(filters models.GuestFilters) ([]models.Guest, int, error) {
	var all []models.Guest
	for _, g := range s.guests {
		all = append(all, *g)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, s.listTotal, nil
}

func (s *stubGuestRepo) UpdateGuest(_ repositories.SQLExecutor, guest *models.Guest) error {
	if _, ok := s.guests[guest.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *guest
	s.guests[guest.ID] = &stored
	return nil
}

func (s *stubGuestRepo) UpdateGuestStatus(_ repositories.SQLExecutor, guestID int64, status models.GuestStatus, updatedAt time.Time) error {
	guest, ok := s.guests[guestID]
	if !ok {
		return repositories.ErrNotFound
	}
	guest.Status = status
	guest.UpdatedAt = updatedAt
	return nil
}

func (s *stubGuestRepo) UpdateGuestRoom(_ repositories.SQLExecutor, guestID int64, roomID *int64, updatedAt time.Time) error {
	guest, ok := s.guests[guestID]
	if !ok {
		return repositories.ErrNotFound
	}
	guest.RoomID = roomID
	guest.UpdatedAt = updatedAt
	return nil
}

func (s *stubGuestRepo) UpdateGuestLoyalty(_ repositories.SQLExecutor, guestID int64, points int, updatedAt time.Time) error {
	guest, ok := s.guests[guestID]
	if !ok {
		return repositories.ErrNotFound
	}
	guest.LoyaltyPoints = points
	guest.UpdatedAt = updatedAt
	return nil
}

// --- Room repository stub ---

type stubRoomRepo struct {
	rooms     map[int64]*models.Room
	nextID    int64
	createErr error
	updateErr error
	deleteErr error
	listTotal int
}

func newStubRoomRepo(rooms ...*models.Room) *stubRoomRepo {
	r := &stubRoomRepo{rooms: make(map[int64]*models.Room)}
	for _, room := range rooms {
		cp := *room
		r.rooms[cp.ID] = &cp
		if cp.ID > r.nextID {
			r.nextID = cp.ID
		}
	}
	return r
}

func (s *stubRoomRepo) CreateRoom(_ repositories.SQLExecutor, room *models.Room) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.nextID++
	stored := *room
	stored.ID = s.nextID
	s.rooms[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubRoomRepo) GetRoomByID(id int64) (*models.Room, error) {
	room, ok := s.rooms[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (s *stubRoomRepo) GetRoomByIDForUpdate(_ repositories.SQLExecutor, id int64) (*models.Room, error) {
	return s.GetRoomByID(id)
}

func (s *stubRoomRepo) GetRooms(filters models.RoomFilters) ([]models.Room, int, error) {
	var all []models.Room
	for _, room := range s.rooms {
		all = append(all, *room)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, s.listTotal, nil
}

func (s *stubRoomRepo) UpdateRoom(_ repositories.SQLExecutor, room *models.Room) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.rooms[room.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *room
	s.rooms[room.ID] = &stored
	return nil
}

func (s *stubRoomRepo) UpdateRoomOccupancy(_ repositories.SQLExecutor, roomID int64, occupied bool, guestID *int64, updatedAt time.Time) error {
	room, ok := s.rooms[roomID]
	if !ok {
		return repositories.ErrNotFound
	}
	room.Occupied = occupied
	room.GuestID = guestID
	room.UpdatedAt = updatedAt
	return nil
}

func (s *stubRoomRepo) DeleteRoom(_ repositories.SQLExecutor, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.rooms[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.rooms, id)
	return nil
}

// --- Payment repository stub ---

type stubPaymentRepo struct {
	payments  []models.Payment
	createErr error
}

func (s *stubPaymentRepo) CreatePayment(_ repositories.SQLExecutor, payment *models.Payment) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	stored := *payment
	stored.ID = int64(len(s.payments) + 1)
	s.payments = append(s.payments, stored)
	return stored.ID, nil
}

func (s *stubPaymentRepo) GetPaymentsBySaleID(saleID int64) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range s.payments {
		if p.SaleID == saleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPaymentRepo) SumPaymentsBySaleID(_ repositories.SQLExecutor, saleID int64) (int64, error) {
	var sum int64
	for _, p := range s.payments {
		if p.SaleID == saleID {
			sum += p.AmountCents
		}
	}
	return sum, nil
}

// --- Return repository stub ---

type stubReturnRepo struct {
	returns     map[int64]*models.Return
	returnItems []models.ReturnItem
	returnedQty map[int64]int // keyed by sale item id
	nextID      int64
}

func newStubReturnRepo() *stubReturnRepo {
	return &stubReturnRepo{
		returns:     make(map[int64]*models.Return),
		returnedQty: make(map[int64]int),
	}
}

func (s *stubReturnRepo) CreateReturn(_ repositories.SQLExecutor, ret *models.Return) (int64, error) {
	s.nextID++
	stored := *ret
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.returns[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubReturnRepo) CreateReturnItem(_ repositories.SQLExecutor, item *models.ReturnItem) (int64, error) {
	stored := *item
	stored.ID = int64(len(s.returnItems) + 1)
	s.returnItems = append(s.returnItems, stored)
	s.returnedQty[stored.SaleItemID] += stored.Quantity
	return stored.ID, nil
}

func (s *stubReturnRepo) GetReturnByID(returnID int64) (*models.Return, error) {
	ret, ok := s.returns[returnID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *ret
	return &cp, nil
}

func (s *stubReturnRepo) GetReturnItemsByReturnID(returnID int64) ([]models.ReturnItem, error) {
	var out []models.ReturnItem
	for _, item := range s.returnItems {
		if item.ReturnID == returnID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubReturnRepo) SumReturnedQuantityBySaleItem(_ repositories.SQLExecutor, saleItemID int64) (int, error) {
	return s.returnedQty[saleItemID], nil
}

func (s *stubReturnRepo) GetReturnedQuantitiesBySaleID(saleID int64) (map[int64]int, error) {
	out := make(map[int64]int, len(s.returnedQty))
	for id, qty := range s.returnedQty {
		out[id] = qty
	}
	return out, nil
}

// --- Shift repository stub ---

type stubShiftRepo struct {
	shifts    map[int64]*models.Shift
	nextID    int64
	createErr error
}

func newStubShiftRepo(shifts ...*models.Shift) *stubShiftRepo {
	r := &stubShiftRepo{shifts: make(map[int64]*models.Shift)}
	for _, sh := range shifts {
		cp := *sh
		r.shifts[cp.ID] = &cp
		if cp.ID > r.nextID {
			r.nextID = cp.ID
		}
	}
	return r
}

func (s *stubShiftRepo) CreateShift(_ repositories.SQLExecutor, shift *models.Shift) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	for _, existing := range s.shifts {
		if existing.Status == models.ShiftStatusOpen {
			return 0, repositories.ErrDuplicateKey
		}
	}
	s.nextID++
	stored := *shift
	stored.ID = s.nextID
	if stored.OpenedAt.IsZero() {
		stored.OpenedAt = time.Now()
	}
	s.shifts[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubShiftRepo) GetShiftByID(shiftID int64) (*models.Shift, error) {
	shift, ok := s.shifts[shiftID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *shift
	return &cp, nil
}

func (s *stubShiftRepo) GetShiftByIDForUpdate(_ repositories.SQLExecutor, shiftID int64) (*models.Shift, error) {
	return s.GetShiftByID(shiftID)
}

func (s *stubShiftRepo) GetOpenShift() (*models.Shift, error) {
	for _, shift := range s.shifts {
		if shift.Status == models.ShiftStatusOpen {
			cp := *shift
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *stubShiftRepo) CloseShift(_ repositories.SQLExecutor, shift *models.Shift) error {
	stored, ok := s.shifts[shift.ID]
	if !ok || stored.Status != models.ShiftStatusOpen {
		return repositories.ErrNotFound
	}
	cp := *shift
	s.shifts[shift.ID] = &cp
	return nil
}

// --- Expense repository stub ---

type stubExpenseRepo struct {
	expenses  []models.Expense
	createErr error
	totalSum  int64
}

func (s *stubExpenseRepo) CreateExpense(_ repositories.SQLExecutor, expense *models.Expense) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	id := int64(len(s.expenses) + 1)
	expense.ID = id
	s.expenses = append(s.expenses, *expense)
	return id, nil
}

func (s *stubExpenseRepo) GetExpenses(filters models.ExpenseFilters) ([]models.Expense, int, error) {
	return s.expenses, len(s.expenses), nil
}

func (s *stubExpenseRepo) SumExpensesBetween(_ repositories.SQLExecutor, from, to time.Time) (int64, error) {
	return s.totalSum, nil
}

// --- Purchase repository stub ---

type stubPurchaseRepo struct {
	purchases        map[int64]*models.Purchase
	purchaseItems    map[int64][]models.PurchaseItem
	supplierPayments []models.SupplierPayment
	nextPurchaseID   int64
	nextItemID       int64
	listPurchases    []models.Purchase
	listTotal        int
}

func newStubPurchaseRepo() *stubPurchaseRepo {
	return &stubPurchaseRepo{
		purchases:     make(map[int64]*models.Purchase),
		purchaseItems: make(map[int64][]models.PurchaseItem),
	}
}

func (s *stubPurchaseRepo) CreatePurchase(_ repositories.SQLExecutor, purchase *models.Purchase) (int64, error) {
	s.nextPurchaseID++
	stored := *purchase
	stored.ID = s.nextPurchaseID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.purchases[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubPurchaseRepo) GetPurchaseByID(purchaseID int64) (*models.Purchase, error) {
	purchase, ok := s.purchases[purchaseID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *purchase
	return &cp, nil
}

func (s *stubPurchaseRepo) GetPurchaseByIDForUpdate(_ repositories.SQLExecutor, purchaseID int64) (*models.Purchase, error) {
	return s.GetPurchaseByID(purchaseID)
}

func (s *stubPurchaseRepo) GetPurchases(filters models.PurchaseFilters) ([]models.Purchase, int, error) {
	return s.listPurchases, s.listTotal, nil
}

func (s *stubPurchaseRepo) DeletePurchase(_ repositories.SQLExecutor, purchaseID int64) (int64, error) {
	if _, ok := s.purchases[purchaseID]; !ok {
		return 0, nil
	}
	delete(s.purchases, purchaseID)
	return 1, nil
}

func (s *stubPurchaseRepo) CreatePurchaseItem(_ repositories.SQLExecutor, item *models.PurchaseItem) (int64, error) {
	s.nextItemID++
	stored := *item
	stored.ID = s.nextItemID
	s.purchaseItems[stored.PurchaseID] = append(s.purchaseItems[stored.PurchaseID], stored)
	return stored.ID, nil
}

func (s *stubPurchaseRepo) GetPurchaseItemsByPurchaseID(purchaseID int64) ([]models.PurchaseItem, error) {
	return s.purchaseItems[purchaseID], nil
}

func (s *stubPurchaseRepo) DeletePurchaseItemsByPurchaseID(_ repositories.SQLExecutor, purchaseID int64) (int64, error) {
	count := int64(len(s.purchaseItems[purchaseID]))
	delete(s.purchaseItems, purchaseID)
	return count, nil
}

func (s *stubPurchaseRepo) CreateSupplierPayment(_ repositories.SQLExecutor, payment *models.SupplierPayment) (int64, error) {
	stored := *payment
	stored.ID = int64(len(s.supplierPayments) + 1)
	s.supplierPayments = append(s.supplierPayments, stored)
	return stored.ID, nil
}

func (s *stubPurchaseRepo) GetSupplierPaymentsByPurchaseID(purchaseID int64) ([]models.SupplierPayment, error) {
	var out []models.SupplierPayment
	for _, p := range s.supplierPayments {
		if p.PurchaseID == purchaseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPurchaseRepo) SumSupplierPaymentsByPurchaseID(_ repositories.SQLExecutor, purchaseID int64) (int64, error) {
	var sum int64
	for _, p := range s.supplierPayments {
		if p.PurchaseID == purchaseID {
			sum += p.AmountCents
		}
	}
	return sum, nil
}

func (s *stubPurchaseRepo) DeleteSupplierPaymentsByPurchaseID(_ repositories.SQLExecutor, purchaseID int64) (int64, error) {
	var kept []models.SupplierPayment
	var removed int64
	for _, p := range s.supplierPayments {
		if p.PurchaseID == purchaseID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	s.supplierPayments = kept
	return removed, nil
}

// --- Supplier repository stub ---

type stubSupplierRepo struct {
	suppliers      map[int64]*models.Supplier
	nextID         int64
	createErr      error
	totalPurchased int64
	totalPaid      int64
	listTotal      int
}

func newStubSupplierRepo(suppliers ...*models.Supplier) *stubSupplierRepo {
	r := &stubSupplierRepo{suppliers: make(map[int64]*models.Supplier)}
	for _, sup := range suppliers {
		cp := *sup
		r.suppliers[cp.ID] = &cp
		if cp.ID > r.nextID {
			r.nextID = cp.ID
		}
	}
	return r
}

func (s *stubSupplierRepo) CreateSupplier(_ repositories.SQLExecutor, supplier *models.Supplier) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.nextID++
	stored := *supplier
	stored.ID = s.nextID
	s.suppliers[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubSupplierRepo) GetSupplierByID(id int64) (*models.Supplier, error) {
	supplier, ok := s.suppliers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *supplier
	return &cp, nil
}

func (s *stubSupplierRepo) GetSuppliers(page, pageSize int, searchTerm *string) ([]models.Supplier, int, error) {
	var all []models.Supplier
	for _, sup := range s.suppliers {
		all = append(all, *sup)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, s.listTotal, nil
}

func (s *stubSupplierRepo) GetSupplierOutstanding(supplierID int64) (int64, int64, error) {
	if _, ok := s.suppliers[supplierID]; !ok {
		return 0, 0, repositories.ErrNotFound
	}
	return s.totalPurchased, s.totalPaid, nil
}
