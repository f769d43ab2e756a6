package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

func TestStorage_RegisterAndGetUser(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()

	trialEnd := time.Now().UTC().AddDate(0, 0, 7)
	uid, err := store.RegisterUser(context.Background(), models.User{
		Email:              "amaka@example.com",
		Username:           "amaka",
		PasswordHash:       "hashedpassword",
		Role:               "owner",
		BusinessName:       "Amaka Stores",
		Phone:              "08031234567",
		SubscriptionPlan:   models.PlanFree,
		SubscriptionStatus: models.StatusTrial,
		TrialEndDate:       &trialEnd,
	})
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	user, err := store.GetUserByUsername(context.Background(), "amaka")
	require.NoError(t, err)
	assert.Equal(t, uid, user.UID)
	assert.Equal(t, models.PlanFree, user.SubscriptionPlan)
	assert.Equal(t, models.StatusTrial, user.SubscriptionStatus)
	require.NotNil(t, user.TrialEndDate)
	assert.WithinDuration(t, trialEnd, *user.TrialEndDate, time.Second)

	_, err = store.GetUserByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_CustomerLifecycle(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(store)
	uid := factory.CreateUser(t, "testuser", "test@example.com")
	otherUID := factory.CreateUser(t, "other", "other@example.com")

	id, err := store.CreateCustomer(context.Background(), models.Customer{
		UserUID: uid,
		Name:    "Chinedu Traders",
		Phone:   "08031234567",
	})
	require.NoError(t, err)

	got, err := store.ReadCustomer(context.Background(), uid, id)
	require.NoError(t, err)
	assert.Equal(t, "Chinedu Traders", got.Name)

	// Ownership is part of the key: another user cannot see the row.
	_, err = store.ReadCustomer(context.Background(), otherUID, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := store.UpdateCustomer(context.Background(), models.Customer{
		ID:      id,
		UserUID: uid,
		Name:    "Chinedu & Sons",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	list, err := store.ListCustomers(context.Background(), uid, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Chinedu & Sons", list[0].Name)

	count, err = store.RemoveCustomer(context.Background(), uid, id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_UsageCounters(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(store)
	uid := factory.CreateUser(t, "testuser", "test@example.com")
	cycle := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	count, err := store.IncrementUsage(context.Background(), uid, models.FeatureInvoices, cycle, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.IncrementUsage(context.Background(), uid, models.FeatureInvoices, cycle, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err := store.GetUsage(context.Background(), uid, cycle)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.FeatureInvoices, rows[0].FeatureType)
	assert.Equal(t, 2, rows[0].Count)

	// Reconciliation path overwrites the counter.
	require.NoError(t, store.SetUsageCount(context.Background(), uid, models.FeatureInvoices, cycle, 7, 5))
	rows, err = store.GetUsage(context.Background(), uid, cycle)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].Count)
}

func TestStorage_CountFeatureRows(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(store)
	uid := factory.CreateUser(t, "testuser", "test@example.com")
	customerID := factory.CreateCustomer(t, uid, "Chinedu Traders")
	productID := factory.CreateProduct(t, uid, "Bag of rice", 150000, 10)

	cycle := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	inCycle := cycle.AddDate(0, 0, 10)
	outOfCycle := cycle.AddDate(0, 1, 5)

	factory.CreateSale(t, uid, productID, 2, 150000, inCycle)
	factory.CreateSale(t, uid, productID, 1, 150000, inCycle)
	factory.CreateSale(t, uid, productID, 1, 150000, outOfCycle)
	factory.CreateInvoice(t, uid, customerID, models.InvoiceDraft, 300000, inCycle)

	count, err := store.CountFeatureRows(context.Background(), uid, models.FeatureSales, cycle)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = store.CountFeatureRows(context.Background(), uid, "unknown", cycle)
	assert.Error(t, err)
}

func TestStorage_SubscriptionSweepQueries(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(store)
	now := time.Now().UTC()

	expiredUID := factory.CreateSubscribedUser(t, "expired", "expired@example.com",
		models.PlanMonthly, models.StatusActive, now.Add(-2*time.Hour))
	factory.CreateSubscribedUser(t, "current", "current@example.com",
		models.PlanMonthly, models.StatusActive, now.AddDate(0, 0, 20))
	endingUID := factory.CreateSubscribedUser(t, "ending", "ending@example.com",
		models.PlanWeekly, models.StatusActive, now.Add(50*time.Hour))

	expired, err := store.FindExpiredSubscriptions(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, expiredUID, expired[0].UID)

	ending, err := store.FindSubscriptionsEndingWithin(context.Background(), now, 3)
	require.NoError(t, err)
	require.Len(t, ending, 1)
	assert.Equal(t, endingUID, ending[0].UID)

	// Downgrade clears the dates, so the user drops out of both queries.
	require.NoError(t, store.UpdateSubscription(context.Background(), expiredUID,
		models.PlanFree, models.StatusExpired, nil, nil))

	expired, err = store.FindExpiredSubscriptions(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, expired)

	user, err := store.GetUser(context.Background(), expiredUID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, user.SubscriptionPlan)
	assert.Equal(t, models.StatusExpired, user.SubscriptionStatus)
	assert.Nil(t, user.SubscriptionEndDate)
}

func TestStorage_TransactionSettlement(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(store)
	uid := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateTransaction(t, uid, "ref-1", models.PlanMonthly, models.TxPending, 450000)

	owner, err := store.GetTransactionOwner(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, uid, owner)

	_, err = store.GetTransactionOwner(context.Background(), "ref-unknown")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	paidAt := time.Now().UTC()
	require.NoError(t, store.FinalizeTransaction(context.Background(), "ref-1", models.TxSuccess, paidAt))

	tx, err := store.GetTransactionByReference(context.Background(), uid, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.TxSuccess, tx.Status)
	require.NotNil(t, tx.PaidAt)

	// Finalize only settles pending rows; a replay leaves the record alone.
	require.NoError(t, store.FinalizeTransaction(context.Background(), "ref-1", models.TxFailed, time.Now().UTC()))
	tx, err = store.GetTransactionByReference(context.Background(), uid, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.TxSuccess, tx.Status)
}

func TestStorage_MarkOverdueInvoices(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(store)
	uid := factory.CreateUser(t, "testuser", "test@example.com")
	customerID := factory.CreateCustomer(t, uid, "Chinedu Traders")

	now := time.Now().UTC()
	pastDue := factory.CreateInvoice(t, uid, customerID, models.InvoiceSent, 300000, now.Add(-24*time.Hour))
	factory.CreateInvoice(t, uid, customerID, models.InvoiceSent, 100000, now.Add(24*time.Hour))
	factory.CreateInvoice(t, uid, customerID, models.InvoiceDraft, 50000, now.Add(-24*time.Hour))

	flipped, err := store.MarkOverdueInvoices(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, flipped, 1)
	assert.Equal(t, pastDue, flipped[0].ID)
	assert.Equal(t, models.InvoiceOverdue, flipped[0].Status)

	// Second sweep finds nothing new.
	flipped, err = store.MarkOverdueInvoices(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, flipped)
}

func TestStorage_AdjustStock(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(store)
	uid := factory.CreateUser(t, "testuser", "test@example.com")
	productID := factory.CreateProduct(t, uid, "Bag of rice", 150000, 3)

	p, err := store.AdjustStock(context.Background(), uid, productID, -2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)

	// Selling more than is on hand must not drive the count negative.
	_, err = store.AdjustStock(context.Background(), uid, productID, -5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	p, err = store.ReadProduct(context.Background(), uid, productID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)
}

func TestStorage_Notifications(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(store)
	uid := factory.CreateUser(t, "testuser", "test@example.com")

	unreadID := factory.CreateNotificationRow(t, uid, false)
	factory.CreateNotificationRow(t, uid, true)

	all, err := store.ListNotifications(context.Background(), uid, false, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unread, err := store.ListNotifications(context.Background(), uid, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, unreadID, unread[0].ID)

	count, err := store.MarkNotificationRead(context.Background(), uid, unreadID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	unread, err = store.ListNotifications(context.Background(), uid, true, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// A redelivered queue event carries the same event ID and must not add
	// a second row.
	row := models.Notification{
		UserUID: uid,
		EventID: uuid.New().String(),
		Type:    models.NotifOverdue,
		Title:   "Invoice overdue",
	}
	firstID, err := store.CreateNotification(context.Background(), row)
	require.NoError(t, err)
	replayID, err := store.CreateNotification(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, firstID, replayID)

	all, err = store.ListNotifications(context.Background(), uid, false, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStorage_DashboardMetrics(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(store)
	uid := factory.CreateUser(t, "testuser", "test@example.com")
	customerID := factory.CreateCustomer(t, uid, "Chinedu Traders")
	productID := factory.CreateProduct(t, uid, "Bag of rice", 150000, 10)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	inPeriod := from.AddDate(0, 0, 10)

	factory.CreateSale(t, uid, productID, 2, 150000, inPeriod)
	factory.CreateInvoice(t, uid, customerID, models.InvoiceSent, 100000, inPeriod)
	factory.CreateInvoice(t, uid, customerID, models.InvoiceOverdue, 50000, from.AddDate(0, 0, -5))

	metrics, err := store.DashboardMetrics(context.Background(), uid, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), metrics.RevenueKobo)
	assert.Equal(t, int64(150000), metrics.OutstandingKobo)
	assert.Equal(t, 1, metrics.OverdueInvoices)
}
