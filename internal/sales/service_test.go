package sales_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesengine/m/domain"
	"salesengine/m/internal/sales"
)

// memoryRepo is a SaleRepository that keeps snapshots in a map.
type memoryRepo struct {
	mu      sync.Mutex
	sales   map[uuid.UUID]*domain.Sale
	fail    error
	updates int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sales: make(map[uuid.UUID]*domain.Sale)}
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	s, ok := r.sales[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Snapshot(), nil
}

func (r *memoryRepo) GetByNumber(_ context.Context, number string) (*domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		if s.SaleNumber == number {
			return s.Snapshot(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) Add(_ context.Context, sale *domain.Sale) (*domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales[sale.ID] = sale.Snapshot()
	return sale.Snapshot(), nil
}

func (r *memoryRepo) Update(_ context.Context, sale *domain.Sale) (*domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if _, ok := r.sales[sale.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	r.sales[sale.ID] = sale.Snapshot()
	return sale.Snapshot(), nil
}

func (r *memoryRepo) Delete(_ context.Context, sale *domain.Sale) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sales[sale.ID]; !ok {
		return false, nil
	}
	delete(r.sales, sale.ID)
	return true, nil
}

func (r *memoryRepo) Paginate(_ context.Context, page, size int, filter domain.SaleFilter) ([]*domain.Sale, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Sale
	for _, s := range r.sales {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.CustomerID != nil && s.Customer.ID != *filter.CustomerID {
			continue
		}
		if filter.BranchID != nil && s.Branch.ID != *filter.BranchID {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SaleDate.Equal(matched[j].SaleDate) {
			return matched[i].SaleDate.After(matched[j].SaleDate)
		}
		return matched[i].SaleNumber < matched[j].SaleNumber
	})
	total := len(matched)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	out := make([]*domain.Sale, 0, end-start)
	for _, s := range matched[start:end] {
		out = append(out, s.Snapshot())
	}
	return out, total, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(qty int, price string) sales.ItemFields {
	return sales.ItemFields{
		ProductID:   uuid.New(),
		ProductName: "Espresso beans 1kg",
		ProductCode: "ESP-1KG",
		Quantity:    qty,
		UnitPrice:   dec(price),
	}
}

func saleFields(number string) sales.SaleFields {
	return sales.SaleFields{
		SaleNumber:    number,
		SaleDate:      time.Now().Add(-2 * time.Hour),
		CustomerID:    uuid.New(),
		CustomerName:  "Ana Souza",
		CustomerEmail: "ana@example.com",
		CustomerPhone: "+5511999990000",
		BranchID:      uuid.New(),
		BranchName:    "Downtown",
		BranchCode:    "BR-001",
	}
}

func createCmd(number string, items ...sales.ItemFields) sales.CreateCommand {
	return sales.CreateCommand{SaleFields: saleFields(number), Items: items}
}

// editFrom builds an edit command that restates sale as it is.
func editFrom(sale *domain.Sale, actor uuid.UUID) sales.EditCommand {
	cmd := sales.EditCommand{
		ID:    sale.ID,
		Actor: actor,
		SaleFields: sales.SaleFields{
			SaleNumber:    sale.SaleNumber,
			SaleDate:      sale.SaleDate,
			CustomerID:    sale.Customer.ID,
			CustomerName:  sale.Customer.Name,
			CustomerEmail: sale.Customer.Email,
			CustomerPhone: sale.Customer.Phone,
			BranchID:      sale.Branch.ID,
			BranchName:    sale.Branch.Name,
			BranchCode:    sale.Branch.Code,
		},
		Status: sale.Status,
	}
	for _, it := range sale.Items {
		id := it.ID
		cmd.Items = append(cmd.Items, sales.EditItem{
			ID: &id,
			ItemFields: sales.ItemFields{
				ProductID:          it.Product.ID,
				ProductName:        it.Product.Name,
				ProductCode:        it.Product.Code,
				ProductDescription: it.Product.Description,
				Quantity:           it.Quantity,
				UnitPrice:          it.UnitPrice,
			},
			Status: it.Status,
		})
	}
	return cmd
}

// recorder keeps every published event in memory. Err, when set, is returned
// after the event is recorded.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
	Err    error
}

func (r *recorder) Publish(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

func (r *recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *recorder) Kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, len(r.events))
	for idx, ev := range r.events {
		out[idx] = ev.Kind
	}
	return out
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	repo     *memoryRepo
	recorder *recorder
	svc      *sales.Service
}

func newFixture() *fixture {
	f := &fixture{repo: newMemoryRepo(), recorder: &recorder{}}
	f.svc = sales.NewService(f.repo, f.recorder, nil)
	return f
}

func violationFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Violations))
	for _, v := range verr.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

func TestCreate_ComputesTotalsAndPublishes(t *testing.T) {
	f := newFixture()

	sale, err := f.svc.Create(context.Background(), createCmd("SALE-1234", item(5, "10.00"), item(10, "20.00")))
	require.NoError(t, err)

	assert.True(t, sale.TotalAmount.Equal(dec("205")), "total %s", sale.TotalAmount)
	assert.Equal(t, domain.StatusActive, sale.Status)
	require.Len(t, sale.Items, 2)
	assert.True(t, sale.Items[0].DiscountPercentage.Equal(dec("10")))
	assert.True(t, sale.Items[1].DiscountPercentage.Equal(dec("20")))

	assert.Equal(t, []domain.EventKind{domain.SaleCreated}, f.recorder.Kinds())
	ev := f.recorder.Events()[0]
	assert.Equal(t, sale.ID, ev.Sale.ID)
	assert.Nil(t, ev.Item)
}

func TestCreate_DuplicateNumberConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, createCmd("SALE-1234", item(1, "10")))
	require.NoError(t, err)
	f.recorder.Reset()

	_, err = f.svc.Create(ctx, createCmd("SALE-1234", item(2, "5")))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, f.recorder.Events())
	assert.Len(t, f.repo.sales, 1)
}

func TestCreate_ReportsEveryViolation(t *testing.T) {
	f := newFixture()
	cmd := createCmd("", item(0, "10"), item(25, "-1"))
	cmd.CustomerEmail = "not-an-email"
	cmd.SaleDate = time.Now().Add(48 * time.Hour)

	_, err := f.svc.Create(context.Background(), cmd)
	require.ErrorIs(t, err, domain.ErrValidation)

	fields := violationFields(t, err)
	assert.Contains(t, fields, "saleNumber")
	assert.Contains(t, fields, "saleDate")
	assert.Contains(t, fields, "customerEmail")
	assert.Contains(t, fields, "items[0].quantity")
	assert.Contains(t, fields, "items[1].quantity")
	assert.Contains(t, fields, "items[1].unitPrice")
	assert.Empty(t, f.recorder.Events())
}

func TestCreate_RequiresItems(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), createCmd("SALE-1"))
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, violationFields(t, err), "items")
}

func TestCreate_PublishFailureIsReturned(t *testing.T) {
	f := newFixture()
	f.recorder.Err = errors.New("broker down")

	_, err := f.svc.Create(context.Background(), createCmd("SALE-9", item(1, "3")))
	assert.ErrorIs(t, err, sales.ErrPublishFailed)
	assert.Len(t, f.repo.sales, 1, "the sale stays saved")
}

func TestEdit_CancellingAnItemPublishesModifiedThenItemCancelled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := uuid.New()

	sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(5, "10.00"), item(2, "3.00")))
	require.NoError(t, err)
	f.recorder.Reset()

	cmd := editFrom(sale, actor)
	cmd.Items[0].Status = domain.StatusCancelled

	updated, err := f.svc.Edit(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, []domain.EventKind{domain.SaleModified, domain.ItemCancelled}, f.recorder.Kinds())
	itemEvent := f.recorder.Events()[1]
	require.NotNil(t, itemEvent.Item)
	assert.Equal(t, sale.Items[0].ID, itemEvent.Item.ID)
	assert.Equal(t, actor, *itemEvent.Item.CancelledBy)

	assert.Equal(t, domain.StatusActive, updated.Status)
	assert.True(t, updated.TotalAmount.Equal(dec("6")), "total %s", updated.TotalAmount)
}

func TestEdit_UpdatesFieldsAndAddsItems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10.00")))
	require.NoError(t, err)
	f.recorder.Reset()

	cmd := editFrom(sale, uuid.New())
	cmd.CustomerName = "Ana Lima"
	cmd.Items[0].Quantity = 4
	cmd.Items = append(cmd.Items, sales.EditItem{ItemFields: item(10, "1.00")})

	updated, err := f.svc.Edit(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, "Ana Lima", updated.Customer.Name)
	require.Len(t, updated.Items, 2)
	assert.True(t, updated.Items[0].DiscountPercentage.Equal(dec("10")))
	// 4*10 - 10% = 36, 10*1 - 20% = 8
	assert.True(t, updated.TotalAmount.Equal(dec("44")), "total %s", updated.TotalAmount)
	assert.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, []domain.EventKind{domain.SaleModified}, f.recorder.Kinds())
}

func TestEdit_CancellingTheSale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10"), item(1, "20")))
	require.NoError(t, err)
	f.recorder.Reset()

	cmd := editFrom(sale, uuid.New())
	cmd.Status = domain.StatusCancelled

	updated, err := f.svc.Edit(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, []domain.EventKind{
		domain.SaleModified, domain.SaleCancelled, domain.ItemCancelled, domain.ItemCancelled,
	}, f.recorder.Kinds())
	assert.True(t, updated.TotalAmount.IsZero())
}

func TestEdit_NumberTakenByAnotherSale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10")))
	require.NoError(t, err)
	other, err := f.svc.Create(ctx, createCmd("SALE-2", item(1, "10")))
	require.NoError(t, err)

	cmd := editFrom(other, uuid.New())
	cmd.SaleNumber = "SALE-1"
	_, err = f.svc.Edit(ctx, cmd)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestEdit_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing sale", func(t *testing.T) {
		f := newFixture()
		sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10")))
		require.NoError(t, err)
		cmd := editFrom(sale, uuid.New())
		cmd.ID = uuid.New()

		_, err = f.svc.Edit(ctx, cmd)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newFixture()
		sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10")))
		require.NoError(t, err)
		f.recorder.Reset()
		cmd := editFrom(sale, uuid.New())
		missing := uuid.New()
		cmd.Items[0].ID = &missing

		_, err = f.svc.Edit(ctx, cmd)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Zero(t, f.repo.updates)
		assert.Empty(t, f.recorder.Events())

		stored, err := f.svc.Get(ctx, sale.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Items, 1)
	})

	t.Run("cancelled sale", func(t *testing.T) {
		f := newFixture()
		sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10")))
		require.NoError(t, err)
		cancelled, err := f.svc.Cancel(ctx, sales.CancelCommand{ID: sale.ID, Actor: uuid.New()})
		require.NoError(t, err)
		f.recorder.Reset()

		_, err = f.svc.Edit(ctx, editFrom(cancelled, uuid.New()))
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		assert.Empty(t, f.recorder.Events())
	})

	t.Run("reactivating an item", func(t *testing.T) {
		f := newFixture()
		sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10"), item(1, "5")))
		require.NoError(t, err)
		sale, err = f.svc.CancelItem(ctx, sales.CancelItemCommand{SaleID: sale.ID, ItemID: sale.Items[0].ID, Actor: uuid.New()})
		require.NoError(t, err)

		updates := f.repo.updates
		f.recorder.Reset()

		cmd := editFrom(sale, uuid.New())
		cmd.Items[0].Status = domain.StatusActive
		_, err = f.svc.Edit(ctx, cmd)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		assert.Equal(t, updates, f.repo.updates)
		assert.Empty(t, f.recorder.Events())

		stored, err := f.svc.Get(ctx, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, stored.Items[0].Status)
	})

	t.Run("new item already cancelled", func(t *testing.T) {
		f := newFixture()
		sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10")))
		require.NoError(t, err)
		cmd := editFrom(sale, uuid.New())
		cmd.Items = append(cmd.Items, sales.EditItem{ItemFields: item(1, "2"), Status: domain.StatusCancelled})

		_, err = f.svc.Edit(ctx, cmd)
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, violationFields(t, err), "items[1].status")
	})
}

func TestCancel_CascadesOnlyActiveItems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()

	sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10"), item(1, "20"), item(1, "30")))
	require.NoError(t, err)
	sale, err = f.svc.CancelItem(ctx, sales.CancelItemCommand{SaleID: sale.ID, ItemID: sale.Items[2].ID, Actor: first})
	require.NoError(t, err)
	earlier := *sale.Items[2].CancelledAt
	f.recorder.Reset()

	cancelled, err := f.svc.Cancel(ctx, sales.CancelCommand{ID: sale.ID, Actor: second})
	require.NoError(t, err)

	assert.Equal(t, []domain.EventKind{
		domain.SaleModified, domain.SaleCancelled, domain.ItemCancelled, domain.ItemCancelled,
	}, f.recorder.Kinds())
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, second, *cancelled.CancelledBy)
	assert.True(t, cancelled.TotalAmount.IsZero())

	for _, it := range cancelled.Items {
		assert.Equal(t, domain.StatusCancelled, it.Status)
	}
	assert.Equal(t, first, *cancelled.Items[2].CancelledBy)
	assert.True(t, earlier.Equal(*cancelled.Items[2].CancelledAt))

	_, err = f.svc.Cancel(ctx, sales.CancelCommand{ID: sale.ID, Actor: second})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCancelItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10"), item(1, "20")))
	require.NoError(t, err)
	f.recorder.Reset()

	updated, err := f.svc.CancelItem(ctx, sales.CancelItemCommand{SaleID: sale.ID, ItemID: sale.Items[1].ID, Actor: uuid.New()})
	require.NoError(t, err)
	assert.True(t, updated.TotalAmount.Equal(dec("10")))
	assert.Equal(t, []domain.EventKind{domain.SaleModified, domain.ItemCancelled}, f.recorder.Kinds())

	_, err = f.svc.CancelItem(ctx, sales.CancelItemCommand{SaleID: sale.ID, ItemID: uuid.New(), Actor: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.CancelItem(ctx, sales.CancelItemCommand{SaleID: sale.ID, ItemID: sale.Items[1].ID, Actor: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestGetAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10")))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.SaleNumber, got.SaleNumber)
	require.Len(t, got.Items, 1)

	res, err := f.svc.Delete(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = f.svc.Get(ctx, sale.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Delete(ctx, sale.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Get(ctx, uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestList_Paging(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for n := 0; n < 8; n++ {
		_, err := f.svc.Create(ctx, createCmd(fmt.Sprintf("SALE-%d", n), item(1, "10")))
		require.NoError(t, err)
	}

	res, err := f.svc.List(ctx, sales.ListQuery{Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 8, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Len(t, res.Sales, 3)

	last, err := f.svc.List(ctx, sales.ListQuery{Page: 3, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, last.Sales, 2)
}

func TestList_StatusFilter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sale, err := f.svc.Create(ctx, createCmd("SALE-1", item(1, "10")))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, createCmd("SALE-2", item(1, "10")))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, sales.CancelCommand{ID: sale.ID, Actor: uuid.New()})
	require.NoError(t, err)

	res, err := f.svc.List(ctx, sales.ListQuery{Page: 1, PageSize: 10, Status: "cancelled"})
	require.NoError(t, err)
	require.Len(t, res.Sales, 1)
	assert.Equal(t, "SALE-1", res.Sales[0].SaleNumber)
}

func TestList_InvalidQuery(t *testing.T) {
	f := newFixture()
	start := time.Now()
	end := start.Add(-time.Hour)

	_, err := f.svc.List(context.Background(), sales.ListQuery{
		Page: 0, PageSize: 500, StartDate: &start, EndDate: &end, Status: "Refunded",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.ElementsMatch(t, []string{"page", "pageSize", "startDate", "status"}, violationFields(t, err))
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 3, sales.PageCount(8, 3))
	assert.Equal(t, 1, sales.PageCount(3, 3))
	assert.Equal(t, 0, sales.PageCount(0, 3))
}
