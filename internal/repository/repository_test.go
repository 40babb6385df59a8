package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varsagel/varsagelcom-sub000/internal/db"
	"github.com/varsagel/varsagelcom-sub000/internal/filter"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a migrated in-memory database. One connection keeps every
// caller on the same in-memory schema and serializes concurrent writers.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(conn))
	return conn
}

func f(v float64) *float64 { return &v }

func newListing(owner string) *model.Listing {
	return &model.Listing{
		Title:         "Bisiklet arıyorum",
		Description:   "Şehir içi kullanım için bisiklet arıyorum.",
		City:          "İzmir",
		District:      "Bornova",
		CategoryID:    "vehicles",
		SubCategoryID: "bicycles",
		Status:        model.ListingStatusActive,
		OwnerUID:      owner,
	}
}

func listingIDs(ls []model.Listing) []uint64 {
	out := make([]uint64, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

func TestCreateAssignsDistinctNumbersUnderContention(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository(newTestDB(t))

	const writers = maxNumberAttempts - 1
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []uint64
		errs    []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := newListing("seller")
			err := repo.Create(ctx, l)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, l.ListingNumber)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	assert.Equal(t, []uint64{FirstListingNumber, FirstListingNumber + 1, FirstListingNumber + 2, FirstListingNumber + 3}, numbers)
}

func TestIsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewListingRepository(conn)
	first := newListing("seller")
	require.NoError(t, repo.Create(ctx, first))

	clash := newListing("other")
	clash.ListingNumber = first.ListingNumber
	err := conn.WithContext(ctx).Create(clash).Error
	require.Error(t, err)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique index", err, true},
		{"mysql 1062", &gomysql.MySQLError{Number: mysqlDuplicateEntry, Message: "Duplicate entry"}, true},
		{"other mysql error", &gomysql.MySQLError{Number: 1452}, false},
		{"not found", gorm.ErrRecordNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDuplicateKey(tt.err))
		})
	}
}

func TestUpdateRefusesListingThatLeftEditableState(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository(newTestDB(t))
	l := newListing("owner")
	require.NoError(t, repo.Create(ctx, l))

	stale, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, l.ID, []model.ListingStatus{model.ListingStatusActive}, model.ListingStatusSold, ""))
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementViews(ctx, l.ID))
	}

	stale.Title = "Yol bisikleti arıyorum"
	assert.ErrorIs(t, repo.Update(ctx, stale), ErrStale)

	got, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusSold, got.Status)
	assert.EqualValues(t, 3, got.ViewCount)
	assert.Equal(t, "Bisiklet arıyorum", got.Title)
}

func TestUpdateWritesContentOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository(newTestDB(t))
	l := newListing("owner")
	require.NoError(t, repo.Create(ctx, l))

	read, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	require.NoError(t, repo.IncrementViews(ctx, l.ID))
	require.NoError(t, repo.IncrementViews(ctx, l.ID))

	read.Title = "Dağ bisikleti arıyorum"
	read.MinPrice, read.MaxPrice = f(5000), f(9000)
	read.OwnerUID = "intruder"
	require.NoError(t, repo.Update(ctx, read))

	got, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dağ bisikleti arıyorum", got.Title)
	require.NotNil(t, got.MaxPrice)
	assert.Equal(t, 9000.0, *got.MaxPrice)
	assert.EqualValues(t, 2, got.ViewCount)
	assert.Equal(t, "owner", got.OwnerUID)
	assert.Equal(t, l.ListingNumber, got.ListingNumber)
	assert.NoError(t, repo.Update(ctx, got))
}

// seedCatalog stores listings with a spread of prices, dates and views. Two
// of them share a sort price so the id tie-break is exercised.
func seedCatalog(t *testing.T, repo ListingRepository) []model.Listing {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	specs := []struct {
		category string
		min, max *float64
		views    uint64
		hours    int
		status   model.ListingStatus
		title    string
	}{
		{"vehicles", f(1000), f(3000), 5, 0, model.ListingStatusActive, "Bisiklet arıyorum"},
		{"vehicles", nil, f(2000), 9, 3, model.ListingStatusActive, "Scooter arıyorum"},
		{"vehicles", f(2000), nil, 1, 1, model.ListingStatusActive, "Motosiklet arıyorum"},
		{"vehicles", nil, nil, 9, 2, model.ListingStatusActive, "Her türlü araç"},
		{"electronics", f(1000), f(3000), 0, 5, model.ListingStatusActive, "100% orijinal telefon"},
		{"electronics", f(50000), f(80000), 2, 4, model.ListingStatusActive, "Laptop_pro arıyorum"},
		{"electronics", f(10), f(20), 7, 6, model.ListingStatusActive, "Kablo arıyorum"},
		{"vehicles", f(100), f(200), 50, 7, model.ListingStatusSold, "Kask arıyorum"},
	}
	var active []model.Listing
	for _, s := range specs {
		l := newListing("seller")
		l.Title = s.title
		l.CategoryID = s.category
		l.MinPrice, l.MaxPrice = s.min, s.max
		l.ViewCount = s.views
		l.CreatedAt = base.Add(time.Duration(s.hours) * time.Hour)
		l.Status = s.status
		require.NoError(t, repo.Create(ctx, l))
		if s.status == model.ListingStatusActive {
			active = append(active, *l)
		}
	}
	return active
}

func TestFindAgreesWithInMemoryFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository(newTestDB(t))
	active := seedCatalog(t, repo)

	keys := []filter.SortKey{filter.SortNewest, filter.SortOldest, filter.SortPriceAsc, filter.SortPriceDesc, filter.SortMostViewed}
	criteria := []struct {
		name string
		crit filter.Criteria
	}{
		{"everything", filter.Criteria{}},
		{"category", filter.Criteria{CategoryID: "vehicles"}},
		{"price floor", filter.Criteria{PriceMin: f(2500)}},
		{"price ceiling", filter.Criteria{PriceMax: f(1500)}},
		{"price window", filter.Criteria{PriceMin: f(1500), PriceMax: f(2500)}},
		{"empty window", filter.Criteria{CategoryID: "electronics", PriceMin: f(90000)}},
	}
	for _, c := range criteria {
		for _, key := range keys {
			t.Run(c.name+"/"+string(key), func(t *testing.T) {
				want := filter.Apply(active, c.crit)
				filter.Sort(want, key)

				q := ListingQuery{
					Statuses:   []model.ListingStatus{model.ListingStatusActive},
					CategoryID: c.crit.CategoryID,
					PriceMin:   c.crit.PriceMin,
					PriceMax:   c.crit.PriceMax,
					Sort:       key,
				}
				got, err := repo.Find(ctx, q)
				require.NoError(t, err)
				assert.Equal(t, listingIDs(want), listingIDs(got))

				n, err := repo.Count(ctx, q)
				require.NoError(t, err)
				assert.EqualValues(t, len(want), n)

				q.Limit, q.Offset = 2, 1
				window, err := repo.Find(ctx, q)
				require.NoError(t, err)
				assert.Equal(t, listingIDs(filter.Page(want[min(1, len(want)):], 1, 2)), listingIDs(window))
			})
		}
	}
}

func TestFindSearchEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository(newTestDB(t))
	seedCatalog(t, repo)

	tests := []struct {
		search string
		want   []string
	}{
		{"100%", []string{"100% orijinal telefon"}},
		{"%", []string{"100% orijinal telefon"}},
		{"_", []string{"Laptop_pro arıyorum"}},
		{"scooter", []string{"Scooter arıyorum"}},
		{"!", nil},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			got, err := repo.Find(ctx, ListingQuery{Search: tt.search})
			require.NoError(t, err)
			var titles []string
			for _, l := range got {
				titles = append(titles, l.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestScanWalksEveryRowInOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository(newTestDB(t))
	seedCatalog(t, repo)
	q := ListingQuery{Statuses: []model.ListingStatus{model.ListingStatusActive}, Sort: filter.SortPriceDesc}

	want, err := repo.Find(ctx, q)
	require.NoError(t, err)

	var sizes []int
	var got []model.Listing
	require.NoError(t, repo.Scan(ctx, q, 3, func(batch []model.Listing) error {
		sizes = append(sizes, len(batch))
		got = append(got, batch...)
		return nil
	}))
	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.Equal(t, listingIDs(want), listingIDs(got))

	stop := errors.New("stop")
	calls := 0
	err = repo.Scan(ctx, q, 3, func([]model.Listing) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestAcceptClosesListingAndRejectsSiblings(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	listings, offers := NewListingRepository(conn), NewOfferRepository(conn)
	l := newListing("owner")
	require.NoError(t, listings.Create(ctx, l))

	var pending []*model.Offer
	for _, uid := range []string{"alice", "bob", "carol"} {
		o := &model.Offer{ListingID: l.ID, OffererUID: uid, Amount: 1500, Status: model.OfferStatusPending}
		require.NoError(t, offers.Create(ctx, o))
		pending = append(pending, o)
	}

	rejected, err := offers.Accept(ctx, pending[0].ID, l.ID)
	require.NoError(t, err)
	require.Len(t, rejected, 2)
	assert.ElementsMatch(t, []uint64{pending[1].ID, pending[2].ID}, []uint64{rejected[0].ID, rejected[1].ID})

	got, err := listings.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusSold, got.Status)
	for _, o := range pending[1:] {
		stored, err := offers.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OfferStatusRejected, stored.Status)
		require.NotNil(t, stored.RejectionReason)
		assert.Equal(t, SiblingRejectionReason, *stored.RejectionReason)
	}

	_, err = offers.Accept(ctx, pending[1].ID, l.ID)
	assert.ErrorIs(t, err, ErrStale)
	assert.ErrorIs(t, offers.Reject(ctx, pending[0].ID, "geç kaldı"), ErrStale)

	late := &model.Offer{ListingID: l.ID, OffererUID: "dave", Amount: 2000, Status: model.OfferStatusPending}
	assert.ErrorIs(t, offers.Create(ctx, late), ErrStale)
	list, err := offers.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestAcceptRollsBackWhenListingClosed(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	listings, offers := NewListingRepository(conn), NewOfferRepository(conn)
	l := newListing("owner")
	require.NoError(t, listings.Create(ctx, l))
	o := &model.Offer{ListingID: l.ID, OffererUID: "alice", Amount: 900, Status: model.OfferStatusPending}
	require.NoError(t, offers.Create(ctx, o))
	require.NoError(t, listings.UpdateStatus(ctx, l.ID, nil, model.ListingStatusInactive, ""))

	_, err := offers.Accept(ctx, o.ID, l.ID)
	assert.ErrorIs(t, err, ErrStale)

	stored, err := offers.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusPending, stored.Status)
}

func TestAnswerWritesOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewQuestionRepository(newTestDB(t))
	q := &model.Question{ListingID: 1, AskerUID: "alice", Question: "Renk önemli mi?"}
	require.NoError(t, repo.Create(ctx, q))

	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Answer(ctx, q.ID, "owner", "Hayır", at))
	assert.ErrorIs(t, repo.Answer(ctx, q.ID, "owner", "Evet", at.Add(time.Hour)), ErrStale)

	got, err := repo.FindByID(ctx, q.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Answer)
	assert.Equal(t, "Hayır", *got.Answer)
}

func TestMarkReadKeepsFirstReadTime(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(newTestDB(t))
	var ids []uint64
	for _, uid := range []string{"alice", "alice", "bob"} {
		n := &model.Notification{UserUID: uid, Type: model.NotificationSystem, Title: "Bilgi"}
		require.NoError(t, repo.Create(ctx, n))
		ids = append(ids, n.ID)
	}

	t1 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	require.NoError(t, repo.MarkRead(ctx, "alice", ids[:1], t1))
	require.NoError(t, repo.MarkRead(ctx, "alice", ids, t2))

	page, total, err := repo.ListForRecipient(ctx, "alice", false, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	readAt := map[uint64]time.Time{}
	for _, n := range page {
		require.NotNil(t, n.ReadAt)
		assert.True(t, n.IsRead)
		readAt[n.ID] = *n.ReadAt
	}
	assert.True(t, t1.Equal(readAt[ids[0]]))
	assert.True(t, t2.Equal(readAt[ids[1]]))

	unread, err := repo.CountUnread(ctx, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	owners, err := repo.Owners(ctx, []uint64{ids[2], 9999})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]string{ids[2]: "bob"}, owners)
}

func TestConversationThreads(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepository(newTestDB(t))

	cv, err := repo.Open(ctx, 7, "zeynep", "ahmet")
	require.NoError(t, err)
	again, err := repo.Open(ctx, 7, "ahmet", "zeynep")
	require.NoError(t, err)
	assert.Equal(t, cv.ID, again.ID)
	assert.Equal(t, "ahmet", cv.UserAUID)

	direct, err := repo.Open(ctx, 0, "ahmet", "zeynep")
	require.NoError(t, err)
	assert.NotEqual(t, cv.ID, direct.ID)

	require.NoError(t, repo.AppendMessage(ctx, &model.Message{ConversationID: cv.ID, SenderUID: "zeynep", Content: "Merhaba"}))
	require.NoError(t, repo.AppendMessage(ctx, &model.Message{ConversationID: cv.ID, SenderUID: "zeynep", Content: "Hâlâ satılık mı?"}))

	counts, err := repo.UnreadCounts(ctx, "ahmet")
	require.NoError(t, err)
	assert.Equal(t, map[uint64]int64{cv.ID: 2}, counts)
	counts, err = repo.UnreadCounts(ctx, "zeynep")
	require.NoError(t, err)
	assert.Empty(t, counts)

	n, err := repo.MarkRead(ctx, cv.ID, "ahmet", time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	counts, err = repo.UnreadCounts(ctx, "ahmet")
	require.NoError(t, err)
	assert.Empty(t, counts)

	threads, err := repo.ListByParticipant(ctx, "ahmet")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, cv.ID, threads[0].ID)
	assert.NotNil(t, threads[0].LastMessageAt)
}

func TestRepositoriesWithoutDB(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		call func() error
	}{
		{"listing create", func() error { return NewListingRepository(nil).Create(ctx, newListing("x")) }},
		{"listing update", func() error { return NewListingRepository(nil).Update(ctx, newListing("x")) }},
		{"listing scan", func() error {
			return NewListingRepository(nil).Scan(ctx, ListingQuery{}, 10, func([]model.Listing) error { return nil })
		}},
		{"offer create", func() error { return NewOfferRepository(nil).Create(ctx, &model.Offer{}) }},
		{"question answer", func() error { return NewQuestionRepository(nil).Answer(ctx, 1, "x", "y", time.Now()) }},
		{"notification read", func() error { return NewNotificationRepository(nil).MarkAllRead(ctx, "x", time.Now()) }},
		{"conversation open", func() error {
			_, err := NewConversationRepository(nil).Open(ctx, 0, "a", "b")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), ErrDBNotReady)
		})
	}
}
