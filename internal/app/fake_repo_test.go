package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/domain"
	"github.com/vendaflow/settlement-service/internal/store"
	"github.com/vendaflow/settlement-service/pkg/rabbitmq"
)

// fakeRepo is an in-memory store.Repository used across the service tests.
// Error injection fields let individual tests force failures on specific
// operations.
type fakeRepo struct {
	store.Repository

	mu sync.Mutex

	sales       map[uuid.UUID]*domain.Sale
	salesByRef  map[string]uuid.UUID
	balances    map[uuid.UUID]*domain.ProducerBalance
	withdrawals map[uuid.UUID]*domain.WithdrawalRequest

	platformSettings domain.FeeSettings
	overrides        map[uuid.UUID]*domain.FeeSettingsOverride

	incrementErr   error
	zeroReserveErr map[uuid.UUID]error
	markPayoutErrs map[uuid.UUID]error
	debitErr       error
	moveBackErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sales:       make(map[uuid.UUID]*domain.Sale),
		salesByRef:  make(map[string]uuid.UUID),
		balances:    make(map[uuid.UUID]*domain.ProducerBalance),
		withdrawals: make(map[uuid.UUID]*domain.WithdrawalRequest),
		overrides:   make(map[uuid.UUID]*domain.FeeSettingsOverride),
		platformSettings: domain.FeeSettings{
			CardFeePercentByInstallment: map[int]float64{1: 5, 12: 12},
			PixFeePercent:               3,
			BankSlipFeePercent:          4,
			FixedFee:                    100,
			CardReleaseDays:             30,
			PixReleaseDays:              2,
			BankSlipReleaseDays:         2,
			SecurityReservePercent:      4,
			SecurityReserveDays:         90,
			WithdrawalFee:               367,
		},
		zeroReserveErr: make(map[uuid.UUID]error),
		markPayoutErrs: make(map[uuid.UUID]error),
	}
}

func (f *fakeRepo) addSale(sale *domain.Sale) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *sale
	f.sales[sale.ID] = &copied
	if sale.GatewayReference != "" {
		f.salesByRef[sale.GatewayReference] = sale.ID
	}
}

func (f *fakeRepo) setBalance(producerID uuid.UUID, available, pending int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[producerID] = &domain.ProducerBalance{
		ProducerID: producerID,
		Available:  available,
		Pending:    pending,
	}
}

func (f *fakeRepo) saleByID(id uuid.UUID) domain.Sale {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.sales[id]
}

func (f *fakeRepo) balance(producerID uuid.UUID) domain.ProducerBalance {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[producerID]; ok {
		return *b
	}
	return domain.ProducerBalance{ProducerID: producerID}
}

func (f *fakeRepo) CreateSale(ctx context.Context, sale *domain.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.salesByRef[sale.GatewayReference]; exists {
		return store.ErrDuplicateReference
	}
	copied := *sale
	f.sales[sale.ID] = &copied
	f.salesByRef[sale.GatewayReference] = sale.ID
	return nil
}

func (f *fakeRepo) FindSaleByID(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[saleID]
	if !ok {
		return nil, store.ErrSaleNotFound
	}
	copied := *sale
	return &copied, nil
}

func (f *fakeRepo) FindSaleByGatewayReference(ctx context.Context, reference string) (*domain.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.salesByRef[reference]
	if !ok {
		return nil, store.ErrSaleNotFound
	}
	copied := *f.sales[id]
	return &copied, nil
}

func (f *fakeRepo) ApplySettlement(ctx context.Context, update domain.SettlementUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[update.SaleID]
	if !ok {
		return store.ErrSaleNotFound
	}
	if sale.Status != domain.SaleStatusPending && sale.Status != domain.SaleStatusFailed {
		return store.ErrSaleAlreadySettled
	}
	paidAt := update.PaidAt
	releaseDate := update.ReleaseDate
	sale.Status = update.Status
	sale.PaidAt = &paidAt
	sale.PlatformFee = update.PlatformFee
	sale.ProducerShare = update.ProducerShare
	sale.SecurityReserve = update.SecurityReserve
	sale.ReleaseDate = &releaseDate
	sale.PayoutStatus = update.PayoutStatus
	return nil
}

func (f *fakeRepo) UpdateSaleStatus(ctx context.Context, saleID uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[saleID]
	if !ok {
		return store.ErrSaleNotFound
	}
	sale.Status = status
	return nil
}

func (f *fakeRepo) FindSalesWithHeldReserves(ctx context.Context) ([]domain.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Sale
	for _, sale := range f.sales {
		if sale.SecurityReserve > 0 && sale.PaidAt != nil &&
			(sale.Status == domain.SaleStatusPaid || sale.Status == domain.SaleStatusActive) {
			out = append(out, *sale)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindSalesWithMaturedShares(ctx context.Context, asOf time.Time) ([]domain.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Sale
	for _, sale := range f.sales {
		if sale.PayoutStatus == domain.PayoutStatusPending && sale.ReleaseDate != nil &&
			!sale.ReleaseDate.After(asOf) &&
			(sale.Status == domain.SaleStatusPaid || sale.Status == domain.SaleStatusActive) {
			out = append(out, *sale)
		}
	}
	return out, nil
}

func (f *fakeRepo) ZeroSecurityReserve(ctx context.Context, saleID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.zeroReserveErr[saleID]; err != nil {
		return err
	}
	sale, ok := f.sales[saleID]
	if !ok {
		return store.ErrSaleNotFound
	}
	if sale.SecurityReserve == 0 {
		return store.ErrReserveAlreadyReleased
	}
	sale.SecurityReserve = 0
	return nil
}

func (f *fakeRepo) MarkSharePayoutReleased(ctx context.Context, saleID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markPayoutErrs[saleID]; err != nil {
		return err
	}
	sale, ok := f.sales[saleID]
	if !ok {
		return store.ErrSaleNotFound
	}
	if sale.PayoutStatus != domain.PayoutStatusPending {
		return store.ErrPayoutAlreadyReleased
	}
	sale.PayoutStatus = domain.PayoutStatusReleased
	return nil
}

func (f *fakeRepo) GetBalance(ctx context.Context, producerID uuid.UUID) (*domain.ProducerBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[producerID]
	if !ok {
		return nil, store.ErrBalanceNotFound
	}
	copied := *balance
	return &copied, nil
}

func (f *fakeRepo) IncrementBalance(ctx context.Context, producerID uuid.UUID, bucket string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return f.incrementErr
	}
	balance := f.ensureBalance(producerID)
	switch bucket {
	case domain.BucketAvailable:
		balance.Available += amount
	case domain.BucketPending:
		balance.Pending += amount
	default:
		return store.ErrUnknownBucket
	}
	return nil
}

func (f *fakeRepo) DebitAvailable(ctx context.Context, producerID uuid.UUID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitErr != nil {
		return f.debitErr
	}
	balance, ok := f.balances[producerID]
	if !ok || balance.Available < amount {
		return store.ErrInsufficientFunds
	}
	balance.Available -= amount
	return nil
}

func (f *fakeRepo) CreditAvailable(ctx context.Context, producerID uuid.UUID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance := f.ensureBalance(producerID)
	balance.Available += amount
	return nil
}

func (f *fakeRepo) MovePendingToAvailable(ctx context.Context, producerID uuid.UUID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[producerID]
	if !ok || balance.Pending < amount {
		return store.ErrInsufficientPending
	}
	balance.Pending -= amount
	balance.Available += amount
	return nil
}

func (f *fakeRepo) MoveAvailableToPending(ctx context.Context, producerID uuid.UUID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveBackErr != nil {
		return f.moveBackErr
	}
	balance, ok := f.balances[producerID]
	if !ok || balance.Available < amount {
		return store.ErrInsufficientFunds
	}
	balance.Available -= amount
	balance.Pending += amount
	return nil
}

func (f *fakeRepo) ensureBalance(producerID uuid.UUID) *domain.ProducerBalance {
	balance, ok := f.balances[producerID]
	if !ok {
		balance = &domain.ProducerBalance{ProducerID: producerID}
		f.balances[producerID] = balance
	}
	return balance
}

func (f *fakeRepo) CreateWithdrawalRequestWithDebit(ctx context.Context, request *domain.WithdrawalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := request.Amount + request.Fee
	balance, ok := f.balances[request.ProducerID]
	if !ok || balance.Available < total {
		return store.ErrInsufficientFunds
	}
	balance.Available -= total
	copied := *request
	f.withdrawals[request.ID] = &copied
	return nil
}

func (f *fakeRepo) FindWithdrawalRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.withdrawals[requestID]
	if !ok {
		return nil, store.ErrWithdrawalNotFound
	}
	copied := *request
	return &copied, nil
}

func (f *fakeRepo) FindWithdrawalRequestsByProducer(ctx context.Context, producerID uuid.UUID) ([]domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WithdrawalRequest
	for _, request := range f.withdrawals {
		if request.ProducerID == producerID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindWithdrawalRequestsByStatus(ctx context.Context, status string, limit, offset int) ([]domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WithdrawalRequest
	for _, request := range f.withdrawals {
		if request.Status == status {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (f *fakeRepo) DecideWithdrawalRequest(ctx context.Context, requestID uuid.UUID, status, adminNotes string, refund bool) (*domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.withdrawals[requestID]
	if !ok {
		return nil, store.ErrWithdrawalNotFound
	}
	if request.Status != domain.WithdrawalStatusPending {
		return nil, store.ErrWithdrawalAlreadyProcessed
	}
	request.Status = status
	request.AdminNotes = adminNotes
	now := time.Now().UTC()
	request.ProcessedAt = &now
	if refund {
		balance := f.ensureBalance(request.ProducerID)
		balance.Available += request.Amount + request.Fee
	}
	copied := *request
	return &copied, nil
}

func (f *fakeRepo) GetPlatformFeeSettings(ctx context.Context) (domain.FeeSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.platformSettings, nil
}

func (f *fakeRepo) UpdatePlatformFeeSettings(ctx context.Context, settings domain.FeeSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.platformSettings = settings
	return nil
}

func (f *fakeRepo) GetProducerFeeOverride(ctx context.Context, producerID uuid.UUID) (*domain.FeeSettingsOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	override, ok := f.overrides[producerID]
	if !ok {
		return nil, nil
	}
	copied := *override
	return &copied, nil
}

func (f *fakeRepo) UpsertProducerFeeOverride(ctx context.Context, producerID uuid.UUID, override domain.FeeSettingsOverride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := override
	f.overrides[producerID] = &copied
	return nil
}

func (f *fakeRepo) CountWithdrawalRequestsByStatus(ctx context.Context, producerID *uuid.UUID, status string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, request := range f.withdrawals {
		if request.Status != status {
			continue
		}
		if producerID != nil && request.ProducerID != *producerID {
			continue
		}
		count++
	}
	return count, nil
}

// capturedEvent is one message recorded by the publisher stub.
type capturedEvent struct {
	Exchange   string
	RoutingKey string
	Body       interface{}
}

// publisherStub records published events for assertions.
type publisherStub struct {
	mu     sync.Mutex
	events []capturedEvent
}

var _ rabbitmq.Publisher = (*publisherStub)(nil)

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Exchange: exchange, RoutingKey: routingKey, Body: body})
	return nil
}

func (p *publisherStub) Close() {}

func (p *publisherStub) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, event := range p.events {
		keys = append(keys, event.RoutingKey)
	}
	return keys
}
