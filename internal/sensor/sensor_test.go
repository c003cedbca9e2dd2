package sensor

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingOr(t *testing.T) {
	r := Reading{Moisture: 0, Temperature: 24.5}

	assert.Equal(t, DefaultMoisture, r.Or(Moisture, DefaultMoisture), "zero falls back")
	assert.Equal(t, DefaultEC, r.Or(EC, DefaultEC), "absent falls back")
	assert.Equal(t, 24.5, r.Or(Temperature, 0))
}

func TestReadingCloneIsIndependent(t *testing.T) {
	r := Reading{PH: 6.5}
	c := r.Clone()
	c[PH] = 7.5

	assert.Equal(t, 6.5, r[PH])
	assert.NotNil(t, Reading(nil).Clone())
	assert.True(t, Reading(nil).Empty())
}

func TestReadingRequire(t *testing.T) {
	r := Reading{Temperature: 20, PH: 6}
	err := r.Require(Temperature, PH, Humidity)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "humidity")
	assert.NoError(t, r.Require(Temperature))
}

func TestNewRecord(t *testing.T) {
	values := Reading{PH: 6.1}
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	rec := NewRecord("A1B2C3", SourceDevice, values, at)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, time.UTC, rec.Timestamp.Location())
	values[PH] = 9
	assert.Equal(t, 6.1, rec.Values[PH], "record owns its values")
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, perPage         int
		wantPage, wantPerPage int
	}{
		{0, 0, 1, 10},
		{-3, 5, 1, 5},
		{2, 500, 2, 100},
		{4, 20, 4, 20},
	}
	for _, tt := range tests {
		p, pp := NormalizePage(tt.page, tt.perPage)
		assert.Equal(t, tt.wantPage, p)
		assert.Equal(t, tt.wantPerPage, pp)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	_, err := store.Latest(ctx, "")
	assert.ErrorIs(t, err, ErrNoReadings)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		dev := "AAAAAA"
		if i%5 == 0 {
			dev = "BBBBBB"
		}
		rec := NewRecord(dev, SourceDevice, Reading{PH: float64(i)}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Save(ctx, rec))
	}

	latest, err := store.Latest(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 24.0, latest.Values[PH])

	latestB, err := store.Latest(ctx, "BBBBBB")
	require.NoError(t, err)
	assert.Equal(t, 20.0, latestB.Values[PH])

	page, err := store.History(ctx, "AAAAAA", 2, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 20, page.Total)
	require.Len(t, page.Records, 5)
	assert.Equal(t, 17.0, page.Records[0].Values[PH])

	empty, err := store.History(ctx, "", 99, 10)
	require.NoError(t, err)
	assert.Empty(t, empty.Records)
	assert.EqualValues(t, 25, empty.Total)
}

func TestMemoryStoreLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, NewRecord("", SourceThingSpeak, Reading{PH: float64(i)}, base.Add(time.Duration(i)*time.Second))))
	}

	page, err := store.History(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 4.0, page.Records[0].Values[PH])
}

func TestHubPublishesToSubscriber(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := Subscribe(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := NewRecord("A1B2C3", SourceDevice, Reading{Temperature: 27.5}, time.Now())
	hub.Publish(rec)

	got, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, 27.5, got.Values[Temperature])
}

func TestSubscriptionNextHonoursContext(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	sub, err := Subscribe(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
