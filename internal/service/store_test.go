package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/filter"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/repository"
	"gorm.io/gorm"
)

// memStore backs every in-memory repository used by the service tests. All
// methods copy rows in and out so callers cannot alias stored state.
type memStore struct {
	mu            sync.Mutex
	seq           uint64
	now           time.Time
	listings      map[uint64]model.Listing
	favorites     map[string]map[uint64]time.Time
	offers        map[uint64]model.Offer
	questions     map[uint64]model.Question
	convs         map[uint64]model.Conversation
	messages      []model.Message
	notifications map[uint64]model.Notification
	users         map[string]model.User
}

func newMemStore() *memStore {
	return &memStore{
		now:           time.Now().UTC(),
		listings:      map[uint64]model.Listing{},
		favorites:     map[string]map[uint64]time.Time{},
		offers:        map[uint64]model.Offer{},
		questions:     map[uint64]model.Question{},
		convs:         map[uint64]model.Conversation{},
		notifications: map[uint64]model.Notification{},
		users:         map[string]model.User{},
	}
}

func (s *memStore) next() uint64 {
	s.seq++
	s.now = s.now.Add(time.Second)
	return s.seq
}

type memListings struct{ *memStore }

func (r memListings) SetDB(*gorm.DB) {}

func (r memListings) Create(_ context.Context, l *model.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	num := repository.FirstListingNumber
	for _, x := range r.listings {
		if x.ListingNumber >= num {
			num = x.ListingNumber + 1
		}
	}
	l.ID = r.next()
	l.ListingNumber = num
	l.CreatedAt, l.UpdatedAt = r.now, r.now
	r.listings[l.ID] = *l
	return nil
}

func (r memListings) FindByID(_ context.Context, id uint64) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &l, nil
}

func (r memListings) FindByNumber(_ context.Context, number uint64) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.listings {
		if l.ListingNumber == number {
			return &l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memListings) FindByIDs(_ context.Context, ids []uint64) (map[uint64]model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uint64]model.Listing{}
	for _, id := range ids {
		if l, ok := r.listings[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

// match applies q the way the SQL query does: the structured columns and
// price span through filter.Criteria, search as a plain substring.
func (r memListings) match(q repository.ListingQuery) []model.Listing {
	crit := filter.Criteria{
		CategoryID:    q.CategoryID,
		SubCategoryID: q.SubCategoryID,
		PriceMin:      q.PriceMin,
		PriceMax:      q.PriceMax,
	}
	var out []model.Listing
	for _, l := range r.listings {
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, l.Status) {
			continue
		}
		if q.OwnerUID != "" && l.OwnerUID != q.OwnerUID {
			continue
		}
		if q.Search != "" && !strings.Contains(l.Title+" "+l.Description, q.Search) {
			continue
		}
		if crit.Match(&l) {
			out = append(out, l)
		}
	}
	filter.Sort(out, q.Sort)
	return out
}

func (r memListings) Find(_ context.Context, q repository.ListingQuery) ([]model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.match(q)
	if q.Offset >= len(out) {
		return []model.Listing{}, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r memListings) Count(_ context.Context, q repository.ListingQuery) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.match(q))), nil
}

func (r memListings) Scan(_ context.Context, q repository.ListingQuery, batch int, fn func([]model.Listing) error) error {
	r.mu.Lock()
	all := r.match(q)
	r.mu.Unlock()
	for page := 1; ; page++ {
		chunk := filter.Page(all, page, batch)
		if len(chunk) == 0 {
			return nil
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
}

// Update writes the editable fields only, and only while the stored row is
// still editable.
func (r memListings) Update(_ context.Context, l *model.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.listings[l.ID]
	if !ok || !cur.Status.Editable() {
		return repository.ErrStale
	}
	cur.Title, cur.Description = l.Title, l.Description
	cur.MinPrice, cur.MaxPrice = l.MinPrice, l.MaxPrice
	cur.City, cur.District = l.City, l.District
	cur.CategoryID, cur.SubCategoryID = l.CategoryID, l.SubCategoryID
	cur.CategoryData, cur.Images = l.CategoryData, l.Images
	cur.UpdatedAt = r.now
	r.listings[l.ID] = cur
	return nil
}

func (r memListings) UpdateStatus(_ context.Context, id uint64, from []model.ListingStatus, to model.ListingStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || (len(from) > 0 && !containsStatus(from, l.Status)) {
		return repository.ErrStale
	}
	l.Status, l.ModerationReason = to, reason
	r.listings[id] = l
	return nil
}

func (r memListings) IncrementViews(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.listings[id]
	l.ViewCount++
	r.listings[id] = l
	return nil
}

func (r memListings) Counts(_ context.Context, id uint64) (repository.ListingCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c repository.ListingCounts
	for _, o := range r.offers {
		if o.ListingID == id {
			c.Offers++
		}
	}
	for _, favs := range r.favorites {
		if _, ok := favs[id]; ok {
			c.Favorites++
		}
	}
	for _, q := range r.questions {
		if q.ListingID == id {
			c.Questions++
		}
	}
	return c, nil
}

func (r memListings) FindExpired(_ context.Context, now time.Time, limit int) ([]model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Listing
	for _, l := range r.listings {
		if l.Status == model.ListingStatusActive && l.ExpiresAt != nil && !l.ExpiresAt.After(now) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memListings) CountByStatus(context.Context) (map[model.ListingStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.ListingStatus]int64{}
	for _, l := range r.listings {
		out[l.Status]++
	}
	return out, nil
}

func (r memListings) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.listings {
		if !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r memListings) AddFavorite(_ context.Context, uid string, listingID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.favorites[uid] == nil {
		r.favorites[uid] = map[uint64]time.Time{}
	}
	if _, ok := r.favorites[uid][listingID]; !ok {
		r.favorites[uid][listingID] = r.now
	}
	return nil
}

func (r memListings) RemoveFavorite(_ context.Context, uid string, listingID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.favorites[uid], listingID)
	return nil
}

func (r memListings) ListFavorites(_ context.Context, uid string) ([]model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Listing
	for id := range r.favorites[uid] {
		out = append(out, r.listings[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memOffers struct{ *memStore }

func (r memOffers) SetDB(*gorm.DB) {}

func (r memOffers) Create(_ context.Context, o *model.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.listings[o.ListingID]; !ok || l.Status != model.ListingStatusActive {
		return repository.ErrStale
	}
	o.ID = r.next()
	o.CreatedAt, o.UpdatedAt = r.now, r.now
	r.offers[o.ID] = *o
	return nil
}

func (r memOffers) FindByID(_ context.Context, id uint64) (*model.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &o, nil
}

func (r memOffers) list(keep func(model.Offer) bool) []model.Offer {
	var out []model.Offer
	for _, o := range r.offers {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r memOffers) ListByListing(_ context.Context, listingID uint64) ([]model.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(o model.Offer) bool { return o.ListingID == listingID }), nil
}

func (r memOffers) ListByOfferer(_ context.Context, uid string) ([]model.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(o model.Offer) bool { return o.OffererUID == uid }), nil
}

func (r memOffers) Accept(_ context.Context, offerID, listingID uint64) ([]model.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[offerID]
	if !ok || o.ListingID != listingID || o.Status != model.OfferStatusPending {
		return nil, repository.ErrStale
	}
	l := r.listings[listingID]
	if l.Status != model.ListingStatusActive {
		return nil, repository.ErrStale
	}
	o.Status = model.OfferStatusAccepted
	r.offers[offerID] = o
	l.Status = model.ListingStatusSold
	r.listings[listingID] = l

	reason := repository.SiblingRejectionReason
	var siblings []model.Offer
	for id, x := range r.offers {
		if x.ListingID == listingID && x.Status == model.OfferStatusPending {
			x.Status = model.OfferStatusRejected
			x.RejectionReason = &reason
			r.offers[id] = x
			siblings = append(siblings, x)
		}
	}
	sort.Slice(siblings, func(i, j int) bool { return siblings[i].ID < siblings[j].ID })
	return siblings, nil
}

func (r memOffers) Reject(_ context.Context, offerID uint64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[offerID]
	if !ok || o.Status != model.OfferStatusPending {
		return repository.ErrStale
	}
	o.Status = model.OfferStatusRejected
	o.RejectionReason = &reason
	r.offers[offerID] = o
	return nil
}

func (r memOffers) CountByStatus(context.Context) (map[model.OfferStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.OfferStatus]int64{}
	for _, o := range r.offers {
		out[o.Status]++
	}
	return out, nil
}

type memQuestions struct{ *memStore }

func (r memQuestions) SetDB(*gorm.DB) {}

func (r memQuestions) Create(_ context.Context, q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q.ID = r.next()
	q.CreatedAt = r.now
	r.questions[q.ID] = *q
	return nil
}

func (r memQuestions) FindByID(_ context.Context, id uint64) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &q, nil
}

func (r memQuestions) ListByListing(_ context.Context, listingID uint64) ([]model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Question
	for _, q := range r.questions {
		if q.ListingID == listingID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memQuestions) Answer(_ context.Context, id uint64, answererUID, answer string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok || q.Answer != nil {
		return repository.ErrStale
	}
	q.Answer, q.AnswererUID, q.AnsweredAt = &answer, &answererUID, &at
	r.questions[id] = q
	return nil
}

type memConversations struct{ *memStore }

func (r memConversations) SetDB(*gorm.DB) {}

func (r memConversations) Open(_ context.Context, listingID uint64, uidA, uidB string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, b := model.OrderedPair(uidA, uidB)
	for _, cv := range r.convs {
		if cv.ListingID == listingID && cv.UserAUID == a && cv.UserBUID == b {
			return &cv, nil
		}
	}
	cv := model.Conversation{ID: r.next(), ListingID: listingID, UserAUID: a, UserBUID: b, CreatedAt: r.now}
	r.convs[cv.ID] = cv
	return &cv, nil
}

func (r memConversations) ListByParticipant(_ context.Context, uid string) ([]model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Conversation
	for _, cv := range r.convs {
		if cv.HasParticipant(uid) {
			out = append(out, cv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memConversations) FindByID(_ context.Context, id uint64) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cv, ok := r.convs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &cv, nil
}

func (r memConversations) AppendMessage(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = r.next()
	r.messages = append(r.messages, *msg)
	cv := r.convs[msg.ConversationID]
	at := msg.CreatedAt
	cv.LastMessageAt = &at
	r.convs[cv.ID] = cv
	return nil
}

func (r memConversations) MessagesOf(_ context.Context, convID uint64) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Message
	for _, m := range r.messages {
		if m.ConversationID == convID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memConversations) MarkRead(_ context.Context, convID uint64, readerUID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i, m := range r.messages {
		if m.ConversationID == convID && m.SenderUID != readerUID && !m.IsRead {
			r.messages[i].IsRead = true
			r.messages[i].ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (r memConversations) UnreadCounts(_ context.Context, uid string) (map[uint64]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uint64]int64{}
	for _, m := range r.messages {
		cv := r.convs[m.ConversationID]
		if cv.HasParticipant(uid) && m.SenderUID != uid && !m.IsRead {
			out[m.ConversationID]++
		}
	}
	return out, nil
}

type memNotifications struct{ *memStore }

func (r memNotifications) SetDB(*gorm.DB) {}

func (r memNotifications) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = r.next()
	n.CreatedAt = r.now
	r.notifications[n.ID] = *n
	return nil
}

func (r memNotifications) ListForRecipient(_ context.Context, uid string, unreadOnly bool, limit, offset int) ([]model.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Notification
	for _, n := range r.notifications {
		if n.UserUID == uid && (!unreadOnly || n.ReadAt == nil) {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Notification{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r memNotifications) Owners(_ context.Context, ids []uint64) (map[uint64]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uint64]string{}
	for _, id := range ids {
		if n, ok := r.notifications[id]; ok {
			out[id] = n.UserUID
		}
	}
	return out, nil
}

func (r memNotifications) MarkRead(_ context.Context, uid string, ids []uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		n, ok := r.notifications[id]
		if ok && n.UserUID == uid && n.ReadAt == nil {
			n.IsRead, n.ReadAt = true, &at
			r.notifications[id] = n
		}
	}
	return nil
}

func (r memNotifications) MarkAllRead(_ context.Context, uid string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, n := range r.notifications {
		if n.UserUID == uid && n.ReadAt == nil {
			n.IsRead, n.ReadAt = true, &at
			r.notifications[id] = n
		}
	}
	return nil
}

func (r memNotifications) Delete(_ context.Context, uid string, ids []uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if n, ok := r.notifications[id]; ok && n.UserUID == uid {
			delete(r.notifications, id)
		}
	}
	return nil
}

func (r memNotifications) CountUnread(_ context.Context, uid string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c int64
	for _, n := range r.notifications {
		if n.UserUID == uid && n.ReadAt == nil {
			c++
		}
	}
	return c, nil
}

// forUser returns the stored notifications of uid, oldest first.
func (r memNotifications) forUser(uid string) []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.notifications {
		if n.UserUID == uid {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memUsers struct{ *memStore }

func (r memUsers) SetDB(*gorm.DB) {}

func (r memUsers) Upsert(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.users[u.UID]; ok {
		cur.Email, cur.Name, cur.LastLoginAt = u.Email, u.Name, u.LastLoginAt
		r.users[u.UID] = cur
		*u = cur
		return nil
	}
	u.CreatedAt = r.now
	r.users[u.UID] = *u
	return nil
}

func (r memUsers) FindByUID(_ context.Context, uid string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r memUsers) FindByUIDs(_ context.Context, uids []string) (map[string]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]model.User{}
	for _, uid := range uids {
		if u, ok := r.users[uid]; ok {
			out[uid] = u
		}
	}
	return out, nil
}

func (r memUsers) List(_ context.Context, search string, limit, offset int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.User
	for _, u := range r.users {
		if search == "" || strings.Contains(u.Email+" "+u.Name, search) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UID < all[j].UID })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r memUsers) SetBlocked(_ context.Context, uid string, blocked bool, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[uid]
	u.IsBlocked, u.BlockReason, u.BlockedAt = blocked, reason, nil
	if blocked {
		u.BlockedAt = &at
	}
	r.users[uid] = u
	return nil
}

func (r memUsers) Counts(context.Context) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total, blocked int64
	for _, u := range r.users {
		total++
		if u.IsBlocked {
			blocked++
		}
	}
	return total, blocked, nil
}
