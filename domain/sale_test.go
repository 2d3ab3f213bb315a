package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	qty   int
	price string
}

func newTestSale(t *testing.T, lines ...line) *Sale {
	t.Helper()
	sale := NewSale("SALE-00001", time.Now().Add(-time.Hour),
		Customer{ID: uuid.New(), Name: "Ana Souza", Email: "ana@example.com", Phone: "+5511999990000"},
		Branch{ID: uuid.New(), Name: "Downtown", Code: "BR-001"},
	)
	for _, l := range lines {
		item, err := NewSaleItem(testProduct(), l.qty, dec(l.price))
		require.NoError(t, err)
		require.NoError(t, sale.AddItem(item))
	}
	return sale
}

func TestSale_AddItemRecalculatesTotal(t *testing.T) {
	sale := newTestSale(t, line{5, "10.00"}, line{10, "20.00"})

	assert.True(t, sale.TotalAmount.Equal(dec("205")), "total %s", sale.TotalAmount)
	assert.Equal(t, 2, sale.TotalActiveItemCount())
	assert.True(t, sale.TotalDiscountAmount().Equal(dec("45")))
	for _, item := range sale.Items {
		assert.Equal(t, sale.ID, item.SaleID)
	}
	assert.NoError(t, ValidateSale(sale))
}

func TestSale_AddItemNil(t *testing.T) {
	sale := newTestSale(t)
	assert.ErrorIs(t, sale.AddItem(nil), ErrInvalidArgument)
}

func TestSale_CalculateTotalAmountIdempotent(t *testing.T) {
	sale := newTestSale(t, line{3, "9.90"}, line{12, "1.25"})

	first := sale.CalculateTotalAmount()
	second := sale.CalculateTotalAmount()
	assert.True(t, first.Equal(second))
}

func TestSale_RemoveItem(t *testing.T) {
	sale := newTestSale(t, line{1, "10"}, line{1, "5"})
	removed := sale.Items[0].ID

	require.NoError(t, sale.RemoveItem(removed))
	assert.Len(t, sale.Items, 1)
	assert.Nil(t, sale.FindItem(removed))
	assert.True(t, sale.TotalAmount.Equal(dec("5")))

	require.NoError(t, sale.RemoveItem(uuid.New()))
	assert.Len(t, sale.Items, 1)
}

func TestSale_CancelItemExcludesFromTotal(t *testing.T) {
	sale := newTestSale(t, line{5, "10.00"}, line{2, "3.00"})
	actor := uuid.New()

	require.NoError(t, sale.CancelItem(sale.Items[0].ID, actor))

	assert.Equal(t, StatusCancelled, sale.Items[0].Status)
	assert.True(t, sale.TotalAmount.Equal(dec("6")))
	assert.Equal(t, 1, sale.TotalActiveItemCount())
	assert.True(t, sale.TotalDiscountAmount().IsZero())

	require.NoError(t, sale.CancelItem(uuid.New(), actor))
}

func TestSale_MutationsRejectedWhenCancelled(t *testing.T) {
	sale := newTestSale(t, line{1, "10"})
	require.NoError(t, sale.Cancel(uuid.New()))

	item, err := NewSaleItem(testProduct(), 1, dec("1"))
	require.NoError(t, err)

	assert.ErrorIs(t, sale.AddItem(item), ErrInvalidState)
	assert.ErrorIs(t, sale.RemoveItem(sale.Items[0].ID), ErrInvalidState)
	assert.ErrorIs(t, sale.CancelItem(sale.Items[0].ID, uuid.New()), ErrInvalidState)
	assert.Len(t, sale.Items, 1)
}

func TestSale_CancelTwiceFails(t *testing.T) {
	sale := newTestSale(t, line{1, "10"})

	require.NoError(t, sale.Cancel(uuid.New()))
	err := sale.Cancel(uuid.New())
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "already cancelled")
}

func TestSale_CancelCascadesToActiveItemsOnly(t *testing.T) {
	sale := newTestSale(t, line{1, "10"}, line{4, "10"}, line{10, "10"})
	earlier := uuid.New()
	require.NoError(t, sale.CancelItem(sale.Items[2].ID, earlier))
	previousAt := *sale.Items[2].CancelledAt

	actor := uuid.New()
	require.NoError(t, sale.Cancel(actor))

	assert.Equal(t, StatusCancelled, sale.Status)
	require.NotNil(t, sale.CancelledBy)
	assert.Equal(t, actor, *sale.CancelledBy)
	for _, item := range sale.Items {
		assert.Equal(t, StatusCancelled, item.Status)
	}
	assert.Equal(t, actor, *sale.Items[0].CancelledBy)
	assert.Equal(t, actor, *sale.Items[1].CancelledBy)
	assert.Equal(t, earlier, *sale.Items[2].CancelledBy)
	assert.True(t, previousAt.Equal(*sale.Items[2].CancelledAt))
	assert.True(t, sale.TotalAmount.IsZero())
}

func TestSale_SnapshotIsDeepCopy(t *testing.T) {
	sale := newTestSale(t, line{2, "10"})
	snap := sale.Snapshot()

	require.NoError(t, sale.Items[0].UpdateQuantity(5))
	require.NoError(t, sale.Cancel(uuid.New()))

	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.Equal(t, StatusActive, snap.Status)
	assert.Nil(t, snap.CancelledAt)
	assert.Equal(t, StatusActive, snap.Items[0].Status)
}

func TestSale_UpdateSnapshots(t *testing.T) {
	sale := newTestSale(t, line{1, "1"})
	sale.UpdateCustomerInfo(Customer{ID: sale.Customer.ID, Name: "Bia", Email: "bia@example.com", Phone: "+5511988887777"})
	sale.UpdateBranchInfo(Branch{ID: sale.Branch.ID, Name: "Uptown", Code: "BR-002"})

	assert.Equal(t, "Bia", sale.Customer.Name)
	assert.Equal(t, "BR-002", sale.Branch.Code)
	assert.NotNil(t, sale.UpdatedAt)
}
