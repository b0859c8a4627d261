package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/backend"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return backend.New(srv.URL, time.Second, backend.WithHTTPClient(srv.Client()))
}

func TestGetOrder_ForwardsTokenAndDecodes(t *testing.T) {
	var gotAuth, gotPath string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"_id":"o1","foodId":"m1","price":12.5,"quantity":2,"chefId":"c1",
			"userEmail":"sam@example.com","orderStatus":"pending","paymentStatus":"unpaid"}`))
	})

	ctx := backend.ContextWithToken(context.Background(), "tok-123")
	o, err := c.GetOrder(ctx, "o1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "/orders/o1", gotPath)
	assert.Equal(t, "o1", o.ID)
	assert.True(t, o.TotalPrice().Equal(decimal.NewFromInt(25)))
	assert.Equal(t, enum.OrderStatusPending, o.OrderStatus)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusBadRequest, func(t *testing.T, err error) { assert.True(t, apperr.IsValidation(err)) }},
		{http.StatusUnprocessableEntity, func(t *testing.T, err error) { assert.True(t, apperr.IsValidation(err)) }},
		{http.StatusUnauthorized, func(t *testing.T, err error) { assert.ErrorIs(t, err, apperr.ErrAuth) }},
		{http.StatusForbidden, func(t *testing.T, err error) { assert.ErrorIs(t, err, apperr.ErrForbidden) }},
		{http.StatusNotFound, func(t *testing.T, err error) { assert.ErrorIs(t, err, apperr.ErrNotFound) }},
		{http.StatusConflict, func(t *testing.T, err error) { assert.ErrorIs(t, err, apperr.ErrConflict) }},
		{http.StatusBadGateway, func(t *testing.T, err error) { assert.ErrorIs(t, err, apperr.ErrNetwork) }},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"message":"nope"}`))
			})
			err := c.UpdateOrderStatus(context.Background(), "o1", enum.OrderStatusAccepted)
			require.Error(t, err)
			tt.check(t, err)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestUpdateOrderStatus_Body(t *testing.T) {
	var body map[string]string
	var method string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"modifiedCount":1}`))
	})

	require.NoError(t, c.UpdateOrderStatus(context.Background(), "o1", enum.OrderStatusDelivered))
	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, map[string]string{"status": "delivered"}, body)
}

func TestCircuitOpensAfterRepeatedServerErrors(t *testing.T) {
	var hits int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := c.ListOrders(context.Background())
		assert.ErrorIs(t, err, apperr.ErrNetwork)
	}
	_, err := c.ListOrders(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.True(t, apperr.Retryable(err))
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits), "open circuit must not reach the backend")
}

func TestClientErrorsDoNotTripCircuit(t *testing.T) {
	var hits int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 8; i++ {
		_, err := c.GetMeal(context.Background(), "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	}
	assert.Equal(t, int32(8), atomic.LoadInt32(&hits))
}

func TestTimeoutIsNetworkError(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := backend.New(srv.URL, 50*time.Millisecond)
	_, err := c.GetOrder(context.Background(), "o1")
	assert.ErrorIs(t, err, apperr.ErrNetwork)
}

func TestAddFavorite_AlreadyExists(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"already_exist"}`))
	})
	created, err := c.AddFavorite(context.Background(), order.Favorite{UserEmail: "sam@example.com", MealID: "m1"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAddFavorite_Inserted(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"acknowledged":true,"insertedId":"f1"}`))
	})
	created, err := c.AddFavorite(context.Background(), order.Favorite{UserEmail: "sam@example.com", MealID: "m1"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRecordPayment_SendsIdempotencyKey(t *testing.T) {
	var key string
	var body map[string]any
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"insertedId":"p1"}`))
	})

	p := order.Payment{OrderID: "o1", CustomerEmail: "sam@example.com", Amount: decimal.NewFromInt(30), TransactionID: "pi_1"}
	require.NoError(t, c.RecordPayment(context.Background(), p, "key-1"))
	assert.Equal(t, "key-1", key)
	assert.Equal(t, "pi_1", body["transactionId"])
	assert.Equal(t, float64(30), body["amount"])
}

func TestCreatePaymentIntent(t *testing.T) {
	var body map[string]any
	var keys []string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"clientSecret":"pi_1_secret_x"}`))
	})

	secret, err := c.CreatePaymentIntent(context.Background(), decimal.NewFromInt(30), "o1", "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret_x", secret)
	assert.Equal(t, float64(30), body["price"])

	_, err = c.CreatePaymentIntent(context.Background(), decimal.NewFromInt(30), "o1", "sam@example.com")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1], "same order must reuse the intent key")
	assert.Equal(t, backend.IntentKey("o1"), keys[0])
	assert.NotEqual(t, backend.IntentKey("o2"), keys[0])
}

func TestSharedReadSurvivesCallerCancel(t *testing.T) {
	arrived := make(chan struct{}, 2)
	release := make(chan struct{})
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		<-release
		w.Write([]byte(`{"_id":"o1","orderStatus":"pending","paymentStatus":"unpaid"}`))
	})

	firstCtx, cancelFirst := context.WithCancel(backend.ContextWithToken(context.Background(), "tok"))
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrder(firstCtx, "o1")
		firstErr <- err
	}()
	<-arrived

	secondErr := make(chan error, 1)
	var second order.Order
	go func() {
		var err error
		second, err = c.GetOrder(backend.ContextWithToken(context.Background(), "tok"), "o1")
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, apperr.ErrNetwork)

	close(release)
	require.NoError(t, <-secondErr)
	assert.Equal(t, "o1", second.ID)
}

func TestListMeals_SortParam(t *testing.T) {
	var query string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`[]`))
	})

	_, err := c.ListMeals(context.Background(), enum.MealSortDesc)
	require.NoError(t, err)
	assert.Equal(t, "sort=desc", query)

	_, err = c.ListMeals(context.Background(), "sideways")
	require.NoError(t, err)
	assert.Empty(t, query)
}
