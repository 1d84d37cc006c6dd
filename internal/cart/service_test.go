package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakay-market/storefront/internal/catalog"
	"github.com/lakay-market/storefront/internal/validation"
)

type fixture struct {
	svc     *Service
	catalog *catalog.Service
	seller  string
}

func newFixture(t *testing.T, repo Repository) fixture {
	t.Helper()
	cat := catalog.NewService(catalog.NewMemoryRepository(), "HTG")
	return fixture{svc: NewService(repo, cat), catalog: cat, seller: uuid.NewString()}
}

func (f fixture) offer(t *testing.T, kind, price string, stock *int) catalog.Offer {
	t.Helper()
	o, err := f.catalog.Create(context.Background(), catalog.CreateInput{
		SellerID: f.seller, Title: kind + " offer", Kind: kind, Price: price, Stock: stock,
	})
	require.NoError(t, err)
	return o
}

func intPtr(v int) *int { return &v }

func TestAddItemMergesSameOffer(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	ctx := context.Background()
	user := uuid.NewString()
	shoes := f.offer(t, "physical", "1200", nil)

	_, err := f.svc.AddItem(ctx, user, AddItemInput{OfferID: shoes.ID, Quantity: 1})
	require.NoError(t, err)
	c, err := f.svc.AddItem(ctx, user, AddItemInput{OfferID: shoes.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.True(t, c.Subtotal().Equal(decimal.NewFromInt(3600)))
}

func TestAddItemDefaultsQuantity(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	ebook := f.offer(t, "digital", "250", nil)

	c, err := f.svc.AddItem(context.Background(), uuid.NewString(), AddItemInput{OfferID: ebook.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestAddItemRequiresDurationForRentals(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	ctx := context.Background()
	user := uuid.NewString()
	car := f.offer(t, "rental", "3000", nil)

	_, err := f.svc.AddItem(ctx, user, AddItemInput{OfferID: car.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrDurationRequired)

	c, err := f.svc.AddItem(ctx, user, AddItemInput{OfferID: car.ID, Quantity: 1, Duration: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), c.Items[0].BillableUnits())
	assert.True(t, c.Items[0].LineTotal().Equal(decimal.NewFromInt(12000)))
}

func TestAddItemRejectsOverStock(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	ctx := context.Background()
	user := uuid.NewString()
	radio := f.offer(t, "physical", "900", intPtr(2))

	_, err := f.svc.AddItem(ctx, user, AddItemInput{OfferID: radio.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, user, AddItemInput{OfferID: radio.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestAddItemRejectsUnknownOffer(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	_, err := f.svc.AddItem(context.Background(), uuid.NewString(), AddItemInput{OfferID: uuid.NewString(), Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrOfferNotFound)

	_, err = f.svc.AddItem(context.Background(), uuid.NewString(), AddItemInput{OfferID: "nope", Quantity: 1})
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestUpdateItemZeroRemovesLine(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	ctx := context.Background()
	user := uuid.NewString()
	hat := f.offer(t, "physical", "300", nil)
	course := f.offer(t, "education", "1500", nil)

	_, err := f.svc.AddItem(ctx, user, AddItemInput{OfferID: hat.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, user, AddItemInput{OfferID: course.ID, Quantity: 1})
	require.NoError(t, err)

	c, err := f.svc.UpdateItem(ctx, user, hat.ID, UpdateItemInput{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)

	c, err = f.svc.UpdateItem(ctx, user, hat.ID, UpdateItemInput{Quantity: 0})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, course.ID, c.Items[0].OfferID)

	_, err = f.svc.UpdateItem(ctx, user, hat.ID, UpdateItemInput{Quantity: 1})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	ctx := context.Background()
	user := uuid.NewString()
	a := f.offer(t, "physical", "10", nil)
	b := f.offer(t, "digital", "20", nil)

	_, _ = f.svc.AddItem(ctx, user, AddItemInput{OfferID: a.ID, Quantity: 1})
	_, _ = f.svc.AddItem(ctx, user, AddItemInput{OfferID: b.ID, Quantity: 1})

	c, err := f.svc.RemoveItem(ctx, user, a.ID)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)

	require.NoError(t, f.svc.Clear(ctx, user))
	c, err = f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestRepriceEmptyCart(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	_, err := f.svc.Reprice(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCartShippingFlags(t *testing.T) {
	c := Cart{Items: []Item{{Kind: catalog.KindPhysical}, {Kind: catalog.KindDigital}}}
	assert.True(t, c.HasPhysical())
	assert.False(t, c.AllPhysical())

	c.Items = c.Items[:1]
	assert.True(t, c.AllPhysical())
	assert.False(t, Cart{}.AllPhysical())
}

func TestRedisRepositoryRoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRedisRepository(client, time.Hour)
	f := newFixture(t, repo)
	ctx := context.Background()
	user := uuid.NewString()
	lamp := f.offer(t, "physical", "450.50", nil)

	_, err := f.svc.AddItem(ctx, user, AddItemInput{OfferID: lamp.ID, Quantity: 2})
	require.NoError(t, err)

	stored, err := repo.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.True(t, stored.Subtotal().Equal(decimal.RequireFromString("901")))
	assert.Equal(t, time.Hour, mr.TTL(cartKeyPrefix+user))

	mr.FastForward(2 * time.Hour)
	stored, err = repo.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())
	assert.Equal(t, user, stored.UserID)
}

func TestDiscardKeepsOtherLines(t *testing.T) {
	f := newFixture(t, NewMemoryRepository())
	ctx := context.Background()
	user := uuid.NewString()
	a := f.offer(t, "physical", "10", nil)
	b := f.offer(t, "digital", "20", nil)
	_, _ = f.svc.AddItem(ctx, user, AddItemInput{OfferID: a.ID, Quantity: 1})
	_, _ = f.svc.AddItem(ctx, user, AddItemInput{OfferID: b.ID, Quantity: 1})

	require.NoError(t, f.svc.Discard(ctx, user, []string{a.ID, uuid.NewString()}))
	c, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, b.ID, c.Items[0].OfferID)

	require.NoError(t, f.svc.Discard(ctx, user, []string{b.ID}))
	c, err = f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}
