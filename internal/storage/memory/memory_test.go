package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

func registerUser(t *testing.T, store *Storage, username string) string {
	t.Helper()
	uid, err := store.RegisterUser(context.Background(), models.User{
		Email:              username + "@example.com",
		Username:           username,
		PasswordHash:       "hashedpassword",
		Role:               "owner",
		SubscriptionPlan:   models.PlanFree,
		SubscriptionStatus: models.StatusTrial,
		IsActive:           true,
	})
	require.NoError(t, err)
	return uid
}

func TestMemory_RegisterUser(t *testing.T) {
	store := New()

	uid := registerUser(t, store, "amaka")

	user, err := store.GetUser(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "amaka", user.Username)

	user, err = store.GetUserByUsername(context.Background(), "amaka")
	require.NoError(t, err)
	assert.Equal(t, uid, user.UID)

	// Duplicate usernames are rejected.
	_, err = store.RegisterUser(context.Background(), models.User{
		Email:    "other@example.com",
		Username: "amaka",
	})
	assert.Error(t, err)

	_, err = store.GetUser(context.Background(), "no-such-uid")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemory_CustomerCRUD(t *testing.T) {
	store := New()
	uid := registerUser(t, store, "amaka")

	id, err := store.CreateCustomer(context.Background(), models.Customer{
		UserUID: uid,
		Name:    "Chinedu Traders",
	})
	require.NoError(t, err)

	got, err := store.ReadCustomer(context.Background(), uid, id)
	require.NoError(t, err)
	assert.Equal(t, "Chinedu Traders", got.Name)

	_, err = store.ReadCustomer(context.Background(), "someone-else", id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := store.RemoveCustomer(context.Background(), uid, id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.RemoveCustomer(context.Background(), uid, id)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemory_ListPagination(t *testing.T) {
	store := New()
	uid := registerUser(t, store, "amaka")

	for i := 0; i < 5; i++ {
		_, err := store.CreateCustomer(context.Background(), models.Customer{
			UserUID: uid,
			Name:    "Customer",
		})
		require.NoError(t, err)
	}

	page, err := store.ListCustomers(context.Background(), uid, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = store.ListCustomers(context.Background(), uid, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = store.ListCustomers(context.Background(), uid, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemory_UsageCounters(t *testing.T) {
	store := New()
	uid := registerUser(t, store, "amaka")
	cycle := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	count, err := store.IncrementUsage(context.Background(), uid, models.FeatureSales, cycle, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.IncrementUsage(context.Background(), uid, models.FeatureSales, cycle, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.SetUsageCount(context.Background(), uid, models.FeatureSales, cycle, 9, 50))

	rows, err := store.GetUsage(context.Background(), uid, cycle)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 9, rows[0].Count)
}

func TestMemory_AdjustStock(t *testing.T) {
	store := New()
	uid := registerUser(t, store, "amaka")

	id, err := store.CreateProduct(context.Background(), models.Product{
		UserUID:       uid,
		Name:          "Bag of rice",
		PriceKobo:     150000,
		StockQuantity: 3,
	})
	require.NoError(t, err)

	p, err := store.AdjustStock(context.Background(), uid, id, -2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)

	_, err = store.AdjustStock(context.Background(), uid, id, -5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemory_FinalizeTransactionOnce(t *testing.T) {
	store := New()
	uid := registerUser(t, store, "amaka")

	_, err := store.CreateTransaction(context.Background(), models.SubscriptionTransaction{
		UserUID:    uid,
		Reference:  "ref-1",
		Plan:       models.PlanMonthly,
		AmountKobo: 450000,
		Status:     models.TxPending,
	})
	require.NoError(t, err)

	owner, err := store.GetTransactionOwner(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, uid, owner)

	require.NoError(t, store.FinalizeTransaction(context.Background(), "ref-1", models.TxSuccess, time.Now().UTC()))
	require.NoError(t, store.FinalizeTransaction(context.Background(), "ref-1", models.TxFailed, time.Now().UTC()))

	tx, err := store.GetTransactionByReference(context.Background(), uid, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.TxSuccess, tx.Status)
}

func TestMemory_Search(t *testing.T) {
	store := New()
	uid := registerUser(t, store, "amaka")

	_, err := store.CreateCustomer(context.Background(), models.Customer{
		UserUID: uid,
		Name:    "Chinedu Traders",
	})
	require.NoError(t, err)
	_, err = store.CreateProduct(context.Background(), models.Product{
		UserUID:   uid,
		Name:      "Golden rice",
		SKU:       "RICE-50KG",
		PriceKobo: 150000,
	})
	require.NoError(t, err)

	results, err := store.Search(context.Background(), uid, "rice", 10)
	require.NoError(t, err)
	assert.Empty(t, results.Customers)
	require.Len(t, results.Products, 1)
	assert.Equal(t, "Golden rice", results.Products[0].Name)

	results, err = store.Search(context.Background(), uid, "chinedu", 10)
	require.NoError(t, err)
	require.Len(t, results.Customers, 1)
}

func TestMemory_ExpiredSubscriptions(t *testing.T) {
	store := New()
	now := time.Now().UTC()

	pastEnd := now.Add(-time.Hour)
	futureEnd := now.AddDate(0, 0, 10)

	expiredUID, err := store.RegisterUser(context.Background(), models.User{
		Email:               "expired@example.com",
		Username:            "expired",
		SubscriptionPlan:    models.PlanMonthly,
		SubscriptionStatus:  models.StatusActive,
		SubscriptionEndDate: &pastEnd,
	})
	require.NoError(t, err)
	_, err = store.RegisterUser(context.Background(), models.User{
		Email:               "current@example.com",
		Username:            "current",
		SubscriptionPlan:    models.PlanMonthly,
		SubscriptionStatus:  models.StatusActive,
		SubscriptionEndDate: &futureEnd,
	})
	require.NoError(t, err)

	expired, err := store.FindExpiredSubscriptions(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, expiredUID, expired[0].UID)

	require.NoError(t, store.UpdateSubscription(context.Background(), expiredUID,
		models.PlanFree, models.StatusExpired, nil, nil))

	expired, err = store.FindExpiredSubscriptions(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestMemory_NotificationEventReplay(t *testing.T) {
	store := New()
	uid := registerUser(t, store, "adaeze")

	row := models.Notification{
		UserUID: uid,
		EventID: "8f14c6ee-6fbb-4ad8-9f4e-1f1b7c2d0a11",
		Type:    models.NotifLowStock,
		Title:   "Low stock alert",
	}
	firstID, err := store.CreateNotification(context.Background(), row)
	require.NoError(t, err)
	replayID, err := store.CreateNotification(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, firstID, replayID)

	// Rows without an event ID are independent writes.
	_, err = store.CreateNotification(context.Background(), models.Notification{
		UserUID: uid,
		Type:    models.NotifLowStock,
		Title:   "Low stock alert",
	})
	require.NoError(t, err)

	all, err := store.ListNotifications(context.Background(), uid, false, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
