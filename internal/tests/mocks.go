package tests

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"shipmate/internal/domain"
	"shipmate/internal/redis"
	"shipmate/internal/repository"
	"shipmate/internal/service"
)

// ──────────────────────────────────────────────
// IN-MEMORY STORE / UNIT OF WORK
// ──────────────────────────────────────────────

// MemStore is an in-memory implementation of repository.Store. Entities
// are held by value so snapshots are plain map clones.
type MemStore struct {
	mu        sync.Mutex
	users     map[string]domain.User
	shipments map[string]domain.Shipment
	bookings  map[string]domain.Booking
	payments  map[string]domain.Payment
	earnings  map[string]domain.DriverEarning
	claims    map[string]domain.InsuranceClaim

	// Error injection
	ShipmentUpdateError error
	PaymentUpdateError  error
	EarningCreateError  error

	// Counters for verification
	EarningInsertCount int32
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:     make(map[string]domain.User),
		shipments: make(map[string]domain.Shipment),
		bookings:  make(map[string]domain.Booking),
		payments:  make(map[string]domain.Payment),
		earnings:  make(map[string]domain.DriverEarning),
		claims:    make(map[string]domain.InsuranceClaim),
	}
}

func (s *MemStore) Users() repository.UserRepository         { return memUsers{s} }
func (s *MemStore) Shipments() repository.ShipmentRepository { return memShipments{s} }
func (s *MemStore) Bookings() repository.BookingRepository   { return memBookings{s} }
func (s *MemStore) Payments() repository.PaymentRepository   { return memPayments{s} }
func (s *MemStore) Earnings() repository.EarningRepository   { return memEarnings{s} }
func (s *MemStore) Claims() repository.ClaimRepository       { return memClaims{s} }

// Seed helpers for test setup.

func (s *MemStore) PutShipment(shipment *domain.Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipments[shipment.ID] = *shipment
}

func (s *MemStore) PutBooking(booking *domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[booking.ID] = *booking
}

func (s *MemStore) PutPayment(payment *domain.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.ID] = *payment
}

func (s *MemStore) PutEarning(earning *domain.DriverEarning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.earnings[earning.ID] = *earning
}

func (s *MemStore) PutClaim(claim *domain.InsuranceClaim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.ID] = *claim
}

// Snapshot accessors for assertions.

func (s *MemStore) Shipment(id string) *domain.Shipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh, ok := s.shipments[id]; ok {
		return &sh
	}
	return nil
}

func (s *MemStore) Booking(id string) *domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		return &b
	}
	return nil
}

func (s *MemStore) Payment(id string) *domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[id]; ok {
		return &p
	}
	return nil
}

func (s *MemStore) Claim(id string) *domain.InsuranceClaim {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.claims[id]; ok {
		return &c
	}
	return nil
}

func (s *MemStore) PaymentForShipment(shipmentID string) *domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ShipmentID == shipmentID {
			copy := p
			return &copy
		}
	}
	return nil
}

func (s *MemStore) EarningsForPayment(paymentID string) []domain.DriverEarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.DriverEarning
	for _, e := range s.earnings {
		if e.PaymentID == paymentID {
			result = append(result, e)
		}
	}
	return result
}

func (s *MemStore) CountEarnings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.earnings)
}

type memSnapshot struct {
	users     map[string]domain.User
	shipments map[string]domain.Shipment
	bookings  map[string]domain.Booking
	payments  map[string]domain.Payment
	earnings  map[string]domain.DriverEarning
	claims    map[string]domain.InsuranceClaim
}

func (s *MemStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		users:     maps.Clone(s.users),
		shipments: maps.Clone(s.shipments),
		bookings:  maps.Clone(s.bookings),
		payments:  maps.Clone(s.payments),
		earnings:  maps.Clone(s.earnings),
		claims:    maps.Clone(s.claims),
	}
}

func (s *MemStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.shipments = snap.shipments
	s.bookings = snap.bookings
	s.payments = snap.payments
	s.earnings = snap.earnings
	s.claims = snap.claims
}

// MemUnitOfWork is an in-memory repository.UnitOfWork. Transactions are
// serialized and rolled back by restoring a snapshot, which matches how
// services use WithinTx: statements issued through the root store stay
// outside the snapshot window.
type MemUnitOfWork struct {
	store *MemStore
	txMu  sync.Mutex
}

// NewMemUnitOfWork creates a unit of work over the given store.
func NewMemUnitOfWork(store *MemStore) *MemUnitOfWork {
	return &MemUnitOfWork{store: store}
}

func (u *MemUnitOfWork) Store() repository.Store { return u.store }

func (u *MemUnitOfWork) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	u.txMu.Lock()
	defer u.txMu.Unlock()

	snap := u.store.snapshot()
	if err := fn(u.store); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

// ──────────────────────────────────────────────
// REPOSITORY VIEWS
// ──────────────────────────────────────────────

type memUsers struct{ s *MemStore }

func (m memUsers) Create(ctx context.Context, user *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.users[user.ID] = *user
	return nil
}

func (m memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			copy := u
			return &copy, nil
		}
	}
	return nil, nil
}

type memShipments struct{ s *MemStore }

func (m memShipments) Create(ctx context.Context, shipment *domain.Shipment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.shipments[shipment.ID] = *shipment
	return nil
}

func (m memShipments) GetByID(ctx context.Context, id string) (*domain.Shipment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sh, ok := m.s.shipments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sh, nil
}

func (m memShipments) GetByIDForUpdate(ctx context.Context, id string) (*domain.Shipment, error) {
	return m.GetByID(ctx, id)
}

func (m memShipments) GetByIDs(ctx context.Context, ids []string) ([]*domain.Shipment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	result := make([]*domain.Shipment, 0, len(ids))
	for _, id := range ids {
		if sh, ok := m.s.shipments[id]; ok {
			copy := sh
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m memShipments) ListBySender(ctx context.Context, senderID string) ([]*domain.Shipment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []*domain.Shipment
	for _, sh := range m.s.shipments {
		if sh.SenderID == senderID {
			copy := sh
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m memShipments) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Shipment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []*domain.Shipment
	for _, sh := range m.s.shipments {
		if sh.BookingID == bookingID {
			copy := sh
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PickupOrder < result[j].PickupOrder })
	return result, nil
}

func (m memShipments) ListByStatus(ctx context.Context, status domain.ShipmentStatus) ([]*domain.Shipment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []*domain.Shipment
	for _, sh := range m.s.shipments {
		if sh.Status == status {
			copy := sh
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m memShipments) Update(ctx context.Context, shipment *domain.Shipment) error {
	if m.s.ShipmentUpdateError != nil {
		return m.s.ShipmentUpdateError
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.shipments[shipment.ID]; !ok {
		return repository.ErrNotFound
	}
	m.s.shipments[shipment.ID] = *shipment
	return nil
}

func (m memShipments) Delete(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.shipments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.s.shipments, id)
	return nil
}

func (m memShipments) IncrementCodeAttempts(ctx context.Context, id string, maxAttempts int) (int, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sh, ok := m.s.shipments[id]
	if !ok {
		return 0, false, repository.ErrNotFound
	}
	sh.Code.Attempts++
	if sh.Code.Attempts >= maxAttempts {
		sh.DeliveryLocked = true
	}
	m.s.shipments[id] = sh
	return sh.Code.Attempts, sh.DeliveryLocked, nil
}

type memBookings struct{ s *MemStore }

func (m memBookings) Create(ctx context.Context, booking *domain.Booking) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.bookings[booking.ID] = *booking
	return nil
}

func (m memBookings) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (m memBookings) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return m.GetByID(ctx, id)
}

func (m memBookings) GetActiveByDriver(ctx context.Context, driverID string, statuses ...domain.BookingStatus) (*domain.Booking, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var latest *domain.Booking
	for _, b := range m.s.bookings {
		if b.DriverID != driverID {
			continue
		}
		for _, status := range statuses {
			if b.Status == status {
				copy := b
				if latest == nil || copy.CreatedAt.After(latest.CreatedAt) {
					latest = &copy
				}
			}
		}
	}
	return latest, nil
}

func (m memBookings) ListByDriver(ctx context.Context, driverID string) ([]*domain.Booking, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []*domain.Booking
	for _, b := range m.s.bookings {
		if b.DriverID == driverID {
			copy := b
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m memBookings) Update(ctx context.Context, booking *domain.Booking) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.bookings[booking.ID]; !ok {
		return repository.ErrNotFound
	}
	m.s.bookings[booking.ID] = *booking
	return nil
}

type memPayments struct{ s *MemStore }

func (m memPayments) Create(ctx context.Context, payment *domain.Payment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.payments[payment.ID] = *payment
	return nil
}

func (m memPayments) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m memPayments) GetByShipment(ctx context.Context, shipmentID string) (*domain.Payment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, p := range m.s.payments {
		if p.ShipmentID == shipmentID {
			copy := p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m memPayments) GetByShipmentForUpdate(ctx context.Context, shipmentID string) (*domain.Payment, error) {
	return m.GetByShipment(ctx, shipmentID)
}

func (m memPayments) GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, p := range m.s.payments {
		if p.IntentID == intentID && intentID != "" {
			copy := p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m memPayments) GetByIntentIDForUpdate(ctx context.Context, intentID string) (*domain.Payment, error) {
	return m.GetByIntentID(ctx, intentID)
}

func (m memPayments) Update(ctx context.Context, payment *domain.Payment) error {
	if m.s.PaymentUpdateError != nil {
		return m.s.PaymentUpdateError
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.payments[payment.ID]; !ok {
		return repository.ErrNotFound
	}
	m.s.payments[payment.ID] = *payment
	return nil
}

type memEarnings struct{ s *MemStore }

func (m memEarnings) CreateIfAbsent(ctx context.Context, earning *domain.DriverEarning) (bool, error) {
	if m.s.EarningCreateError != nil {
		return false, m.s.EarningCreateError
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, e := range m.s.earnings {
		if e.PaymentID == earning.PaymentID && e.EarningType == earning.EarningType {
			return false, nil
		}
	}
	atomic.AddInt32(&m.s.EarningInsertCount, 1)
	m.s.earnings[earning.ID] = *earning
	return true, nil
}

func (m memEarnings) GetByID(ctx context.Context, id string) (*domain.DriverEarning, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.earnings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (m memEarnings) GetByPaymentAndType(ctx context.Context, paymentID string, earningType domain.EarningType) (*domain.DriverEarning, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, e := range m.s.earnings {
		if e.PaymentID == paymentID && e.EarningType == earningType {
			copy := e
			return &copy, nil
		}
	}
	return nil, nil
}

func (m memEarnings) ListByDriver(ctx context.Context, driverID string) ([]*domain.DriverEarning, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []*domain.DriverEarning
	for _, e := range m.s.earnings {
		if e.DriverID == driverID {
			copy := e
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m memEarnings) UpdatePayoutStatus(ctx context.Context, id string, status domain.PayoutStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.earnings[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.PayoutStatus = status
	m.s.earnings[id] = e
	return nil
}

func (m memEarnings) SummaryByDriver(ctx context.Context, driverID string) (*domain.EarningsSummary, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	summary := &domain.EarningsSummary{}
	for _, e := range m.s.earnings {
		if e.DriverID != driverID {
			continue
		}
		summary.TotalGross += e.GrossAmount
		summary.TotalCommission += e.CommissionAmount
		summary.TotalNet += e.NetAmount
		switch e.PayoutStatus {
		case domain.PayoutStatusPending:
			summary.TotalPending += e.NetAmount
		case domain.PayoutStatusPaid:
			summary.TotalPaid += e.NetAmount
		}
	}
	return summary, nil
}

type memClaims struct{ s *MemStore }

func (m memClaims) Create(ctx context.Context, claim *domain.InsuranceClaim) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.claims[claim.ID] = *claim
	return nil
}

func (m memClaims) GetByID(ctx context.Context, id string) (*domain.InsuranceClaim, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.claims[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (m memClaims) GetByShipment(ctx context.Context, shipmentID string) (*domain.InsuranceClaim, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.claims {
		if c.ShipmentID == shipmentID {
			copy := c
			return &copy, nil
		}
	}
	return nil, nil
}

func (m memClaims) ListByStatus(ctx context.Context, status domain.ClaimStatus) ([]*domain.InsuranceClaim, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []*domain.InsuranceClaim
	for _, c := range m.s.claims {
		if status == "" || c.Status == status {
			copy := c
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m memClaims) Update(ctx context.Context, claim *domain.InsuranceClaim) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.claims[claim.ID]; !ok {
		return repository.ErrNotFound
	}
	m.s.claims[claim.ID] = *claim
	return nil
}

// ──────────────────────────────────────────────
// MOCK PAYMENT GATEWAY
// ──────────────────────────────────────────────

// MockPaymentGateway is a mock implementation of service.PaymentGateway.
type MockPaymentGateway struct {
	mu         sync.Mutex
	nextIntent int

	// Recorded calls for verification
	CreateCalls  []string // shipment IDs
	CaptureCalls []string // intent IDs
	CancelCalls  []string // intent IDs
	RefundCalls  []string // intent IDs

	// Error injection
	CreateError  error
	CaptureError error
	CancelError  error
	RefundError  error
}

// NewMockPaymentGateway creates a new mock gateway.
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, amountCents int64, currency, shipmentID string) (*service.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.nextIntent++
	m.CreateCalls = append(m.CreateCalls, shipmentID)
	intentID := fmt.Sprintf("pi_test_%03d", m.nextIntent)
	return &service.PaymentIntent{
		IntentID:     intentID,
		ClientSecret: intentID + "_secret",
	}, nil
}

func (m *MockPaymentGateway) CaptureIntent(ctx context.Context, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CaptureError != nil {
		return m.CaptureError
	}
	m.CaptureCalls = append(m.CaptureCalls, intentID)
	return nil
}

func (m *MockPaymentGateway) CancelIntent(ctx context.Context, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CancelError != nil {
		return m.CancelError
	}
	m.CancelCalls = append(m.CancelCalls, intentID)
	return nil
}

func (m *MockPaymentGateway) RefundIntent(ctx context.Context, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RefundError != nil {
		return m.RefundError
	}
	m.RefundCalls = append(m.RefundCalls, intentID)
	return nil
}

// CountCaptures returns how many capture requests went out.
func (m *MockPaymentGateway) CountCaptures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CaptureCalls)
}

// ──────────────────────────────────────────────
// CAPTURING EVENT PUBLISHER
// ──────────────────────────────────────────────

// CapturePublisher records published events for assertions.
type CapturePublisher struct {
	mu     sync.Mutex
	Events []domain.Event
}

// NewCapturePublisher creates a new capturing publisher.
func NewCapturePublisher() *CapturePublisher {
	return &CapturePublisher{}
}

func (p *CapturePublisher) Publish(ctx context.Context, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

// Names returns the names of all published events in order.
func (p *CapturePublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		names = append(names, e.EventName())
	}
	return names
}

// Has reports whether an event with the given name was published.
func (p *CapturePublisher) Has(name string) bool {
	for _, n := range p.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// IssuedCodes returns the plaintext codes from DeliveryCodeIssued
// events, in order.
func (p *CapturePublisher) IssuedCodes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var codes []string
	for _, e := range p.Events {
		if issued, ok := e.(domain.DeliveryCodeIssued); ok {
			codes = append(codes, issued.Code)
		}
	}
	return codes
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]time.Time)}
}

func (m *MockLockStore) acquire(key string, ttl time.Duration) (bool, error) {
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if expiry, exists := m.locks[key]; exists && time.Now().Before(expiry) {
		return false, nil
	}
	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) release(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func (m *MockLockStore) AcquireShipmentLock(ctx context.Context, shipmentID string, ttl time.Duration) (bool, error) {
	return m.acquire("lock:shipment:"+shipmentID, ttl)
}

func (m *MockLockStore) ReleaseShipmentLock(ctx context.Context, shipmentID string) error {
	return m.release("lock:shipment:" + shipmentID)
}

func (m *MockLockStore) AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	return m.acquire("lock:booking:"+bookingID, ttl)
}

func (m *MockLockStore) ReleaseBookingLock(ctx context.Context, bookingID string) error {
	return m.release("lock:booking:" + bookingID)
}

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.DriverLocation
	seen      map[string]time.Time
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]redis.DriverLocation),
		seen:      make(map[string]time.Time),
	}
}

// SetLocation places a driver at a position as of seenAt.
func (m *MockLocationStore) SetLocation(driverID string, lat, lng float64, seenAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	m.seen[driverID] = seenAt
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	m.SetLocation(driverID, lat, lng, time.Now())
	return nil
}

func (m *MockLocationStore) GetLocation(ctx context.Context, driverID string) (*redis.DriverLocation, time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[driverID]
	if !ok {
		return nil, time.Time{}, nil
	}
	copy := loc
	return &copy, m.seen[driverID], nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]redis.DriverLocation, 0, len(m.locations))
	for _, loc := range m.locations {
		result = append(result, loc)
	}
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	delete(m.seen, driverID)
	return nil
}

// HasLocation reports whether a driver has a stored position.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[driverID]
	return ok
}

// MockCacheStore is a mock implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu        sync.RWMutex
	shipments map[string]redis.CachedShipment
	available map[string]bool
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		shipments: make(map[string]redis.CachedShipment),
		available: make(map[string]bool),
	}
}

func (m *MockCacheStore) GetShipment(ctx context.Context, shipmentID string) (*redis.CachedShipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cached, ok := m.shipments[shipmentID]; ok {
		copy := cached
		return &copy, nil
	}
	return nil, nil
}

func (m *MockCacheStore) SetShipment(ctx context.Context, shipment *redis.CachedShipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shipments[shipment.ID] = *shipment
	return nil
}

func (m *MockCacheStore) InvalidateShipment(ctx context.Context, shipmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shipments, shipmentID)
	return nil
}

func (m *MockCacheStore) AddAvailableDriver(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available[driverID] = true
	return nil
}

func (m *MockCacheStore) RemoveAvailableDriver(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.available, driverID)
	return nil
}

func (m *MockCacheStore) IsDriverAvailable(ctx context.Context, driverID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available[driverID], nil
}

// Interface checks.
var (
	_ repository.Store       = (*MemStore)(nil)
	_ repository.UnitOfWork  = (*MemUnitOfWork)(nil)
	_ service.PaymentGateway = (*MockPaymentGateway)(nil)
	_ service.EventPublisher = (*CapturePublisher)(nil)

	_ redis.LockStoreInterface     = (*MockLockStore)(nil)
	_ redis.LocationStoreInterface = (*MockLocationStore)(nil)
	_ redis.CacheStoreInterface    = (*MockCacheStore)(nil)
)
