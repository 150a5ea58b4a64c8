package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"artarena/internal/models"
)

type reactionKey struct{ entryID, userID uint }
type followKey struct{ followerID, followingID uint }

type memData struct {
	seq           uint
	contests      map[uint]models.Contest
	entries       map[uint]models.Entry
	reactions     map[reactionKey]models.Reaction
	comments      map[uint]models.Comment
	winners       map[uint]models.ContestWinner
	users         map[uint]models.User
	follows       map[followKey]models.Follow
	pointLogs     []models.PointLog
	notifications []models.Notification
}

func (d *memData) clone() *memData {
	c := &memData{
		seq:           d.seq,
		contests:      make(map[uint]models.Contest, len(d.contests)),
		entries:       make(map[uint]models.Entry, len(d.entries)),
		reactions:     make(map[reactionKey]models.Reaction, len(d.reactions)),
		comments:      make(map[uint]models.Comment, len(d.comments)),
		winners:       make(map[uint]models.ContestWinner, len(d.winners)),
		users:         make(map[uint]models.User, len(d.users)),
		follows:       make(map[followKey]models.Follow, len(d.follows)),
		pointLogs:     append([]models.PointLog(nil), d.pointLogs...),
		notifications: append([]models.Notification(nil), d.notifications...),
	}
	for k, v := range d.contests {
		c.contests[k] = v
	}
	for k, v := range d.entries {
		c.entries[k] = v
	}
	for k, v := range d.reactions {
		c.reactions[k] = v
	}
	for k, v := range d.comments {
		c.comments[k] = v
	}
	for k, v := range d.winners {
		c.winners[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.follows {
		c.follows[k] = v
	}
	return c
}

type memShared struct {
	mu   sync.Mutex // guards data
	txMu sync.Mutex // serializes transactions and the writes made outside them
	data *memData
}

// MemoryStore is an in-process Store used by tests and local runs without
// Postgres. Transactions are serialized and roll back to a snapshot when fn
// fails, which gives callers the same observable semantics as the gorm store.
type MemoryStore struct {
	shared *memShared
	inTx   bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{shared: &memShared{data: &memData{
		contests:  make(map[uint]models.Contest),
		entries:   make(map[uint]models.Entry),
		reactions: make(map[reactionKey]models.Reaction),
		comments:  make(map[uint]models.Comment),
		winners:   make(map[uint]models.ContestWinner),
		users:     make(map[uint]models.User),
		follows:   make(map[followKey]models.Follow),
	}}}
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.shared.txMu.Lock()
	defer s.shared.txMu.Unlock()

	s.shared.mu.Lock()
	snapshot := s.shared.data.clone()
	s.shared.mu.Unlock()

	if err := fn(&MemoryStore{shared: s.shared, inTx: true}); err != nil {
		s.shared.mu.Lock()
		s.shared.data = snapshot
		s.shared.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) lock() (*memData, func()) {
	s.shared.mu.Lock()
	return s.shared.data, s.shared.mu.Unlock
}

// lockWrite 事务外的写入先等待进行中的事务结束，回滚的快照不会覆盖它
func (s *MemoryStore) lockWrite() (*memData, func()) {
	if s.inTx {
		return s.lock()
	}
	s.shared.txMu.Lock()
	s.shared.mu.Lock()
	return s.shared.data, func() {
		s.shared.mu.Unlock()
		s.shared.txMu.Unlock()
	}
}

func (d *memData) nextID() uint {
	d.seq++
	return d.seq
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// ---- contests ----

func (s *MemoryStore) CreateContest(_ context.Context, contest *models.Contest) error {
	d, unlock := s.lockWrite()
	defer unlock()
	if contest.ID == 0 {
		contest.ID = d.nextID()
	}
	contest.CreatedAt = stamp(contest.CreatedAt)
	contest.UpdatedAt = contest.CreatedAt
	d.contests[contest.ID] = *contest
	return nil
}

func (s *MemoryStore) UpdateContest(_ context.Context, contest *models.Contest) error {
	d, unlock := s.lockWrite()
	defer unlock()
	current, ok := d.contests[contest.ID]
	if !ok {
		return ErrNotFound
	}
	if current.FinalizedAt != nil {
		return ErrAlreadyFinalized
	}
	current.Title = contest.Title
	current.Description = contest.Description
	current.Category = contest.Category
	current.ThumbnailURL = contest.ThumbnailURL
	current.StartDate = contest.StartDate
	current.EndDate = contest.EndDate
	current.PrizePool = contest.PrizePool
	current.UpdatedAt = time.Now().UTC()
	d.contests[contest.ID] = current
	return nil
}

func (s *MemoryStore) DeleteContest(_ context.Context, id uint) error {
	d, unlock := s.lockWrite()
	defer unlock()
	contest, ok := d.contests[id]
	if !ok {
		return ErrNotFound
	}
	if contest.FinalizedAt != nil {
		return ErrAlreadyFinalized
	}
	for _, e := range d.entries {
		if e.ContestID == id {
			return ErrConflict
		}
	}
	delete(d.contests, id)
	return nil
}

func (s *MemoryStore) GetContest(_ context.Context, id uint) (models.Contest, error) {
	d, unlock := s.lock()
	defer unlock()
	contest, ok := d.contests[id]
	if !ok {
		return models.Contest{}, ErrNotFound
	}
	return contest, nil
}

// LockContest is a plain read: transactions are already serialized.
func (s *MemoryStore) LockContest(ctx context.Context, id uint) (models.Contest, error) {
	return s.GetContest(ctx, id)
}

func (s *MemoryStore) ListContests(_ context.Context) ([]models.Contest, error) {
	d, unlock := s.lock()
	defer unlock()
	out := make([]models.Contest, 0, len(d.contests))
	for _, c := range d.contests {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListEndedUnfinalized(_ context.Context, now time.Time) ([]models.Contest, error) {
	d, unlock := s.lock()
	defer unlock()
	var out []models.Contest
	for _, c := range d.contests {
		if c.FinalizedAt == nil && c.EndDate.Before(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) MarkFinalized(_ context.Context, id uint, mark FinalizeMark) error {
	d, unlock := s.lockWrite()
	defer unlock()
	contest, ok := d.contests[id]
	if !ok {
		return ErrNotFound
	}
	if contest.FinalizedAt != nil {
		return ErrAlreadyFinalized
	}
	at := mark.FinalizedAt
	contest.FinalizedAt = &at
	contest.Winner1stEntryID = mark.WinnerEntryIDs[0]
	contest.Winner2ndEntryID = mark.WinnerEntryIDs[1]
	contest.Winner3rdEntryID = mark.WinnerEntryIDs[2]
	contest.PrizePoolDistributed = true
	contest.UpdatedAt = at
	d.contests[id] = contest
	return nil
}

// ---- entries ----

func (s *MemoryStore) CreateEntry(_ context.Context, entry *models.Entry) error {
	d, unlock := s.lockWrite()
	defer unlock()
	for _, e := range d.entries {
		if e.ContestID == entry.ContestID && e.UserID == entry.UserID {
			return ErrConflict
		}
	}
	if entry.ID == 0 {
		entry.ID = d.nextID()
	}
	entry.CreatedAt = stamp(entry.CreatedAt)
	entry.UpdatedAt = entry.CreatedAt
	d.entries[entry.ID] = *entry
	return nil
}

func (s *MemoryStore) GetEntry(_ context.Context, id uint) (models.Entry, error) {
	d, unlock := s.lock()
	defer unlock()
	entry, ok := d.entries[id]
	if !ok {
		return models.Entry{}, ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) ListEntries(_ context.Context, contestID uint, status models.EntryStatus) ([]models.Entry, error) {
	d, unlock := s.lock()
	defer unlock()
	var out []models.Entry
	for _, e := range d.entries {
		if e.ContestID != contestID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ReactionsCount != b.ReactionsCount {
			return a.ReactionsCount > b.ReactionsCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *MemoryStore) ListEntriesByUser(_ context.Context, userID uint) ([]models.Entry, error) {
	d, unlock := s.lock()
	defer unlock()
	var out []models.Entry
	for _, e := range d.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ReviewEntry(_ context.Context, id uint, status models.EntryStatus, reason string, at time.Time) error {
	d, unlock := s.lockWrite()
	defer unlock()
	entry, ok := d.entries[id]
	if !ok {
		return ErrNotFound
	}
	if entry.Status != models.EntryPending {
		return ErrConflict
	}
	entry.Status = status
	entry.RejectionReason = reason
	entry.UpdatedAt = at
	d.entries[id] = entry
	return nil
}

// ---- reactions ----

func (s *MemoryStore) GetReaction(_ context.Context, entryID, userID uint) (models.Reaction, error) {
	d, unlock := s.lock()
	defer unlock()
	r, ok := d.reactions[reactionKey{entryID, userID}]
	if !ok {
		return models.Reaction{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) InsertReaction(_ context.Context, reaction *models.Reaction) (bool, error) {
	d, unlock := s.lockWrite()
	defer unlock()
	key := reactionKey{reaction.EntryID, reaction.UserID}
	if _, ok := d.reactions[key]; ok {
		return false, nil
	}
	if reaction.ID == 0 {
		reaction.ID = d.nextID()
	}
	reaction.CreatedAt = stamp(reaction.CreatedAt)
	reaction.UpdatedAt = reaction.CreatedAt
	d.reactions[key] = *reaction
	return true, nil
}

func (s *MemoryStore) UpdateReactionType(_ context.Context, entryID, userID uint, reactionType models.ReactionType, at time.Time) error {
	d, unlock := s.lockWrite()
	defer unlock()
	key := reactionKey{entryID, userID}
	r, ok := d.reactions[key]
	if !ok {
		return ErrNotFound
	}
	r.Type = reactionType
	r.UpdatedAt = at
	d.reactions[key] = r
	return nil
}

func (s *MemoryStore) DeleteReaction(_ context.Context, entryID, userID uint) (bool, error) {
	d, unlock := s.lockWrite()
	defer unlock()
	key := reactionKey{entryID, userID}
	if _, ok := d.reactions[key]; !ok {
		return false, nil
	}
	delete(d.reactions, key)
	return true, nil
}

func (s *MemoryStore) CountReactions(_ context.Context, entryID uint) (int64, error) {
	d, unlock := s.lock()
	defer unlock()
	var n int64
	for k := range d.reactions {
		if k.entryID == entryID {
			n++
		}
	}
	return n, nil
}

// ---- comments ----

func (s *MemoryStore) CreateComment(_ context.Context, comment *models.Comment) error {
	d, unlock := s.lockWrite()
	defer unlock()
	if comment.ID == 0 {
		comment.ID = d.nextID()
	}
	comment.CreatedAt = stamp(comment.CreatedAt)
	d.comments[comment.ID] = *comment
	return nil
}

func (s *MemoryStore) GetComment(_ context.Context, id uint) (models.Comment, error) {
	d, unlock := s.lock()
	defer unlock()
	c, ok := d.comments[id]
	if !ok {
		return models.Comment{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListComments(_ context.Context, entryID uint) ([]models.Comment, error) {
	d, unlock := s.lock()
	defer unlock()
	var out []models.Comment
	for _, c := range d.comments {
		if c.EntryID == entryID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ---- winners ----

func (s *MemoryStore) DeleteWinners(_ context.Context, contestID uint) error {
	d, unlock := s.lockWrite()
	defer unlock()
	for id, w := range d.winners {
		if w.ContestID == contestID {
			delete(d.winners, id)
		}
	}
	return nil
}

func (s *MemoryStore) CreateWinner(_ context.Context, winner *models.ContestWinner) error {
	d, unlock := s.lockWrite()
	defer unlock()
	for _, w := range d.winners {
		if w.ContestID == winner.ContestID && (w.Placement == winner.Placement || w.EntryID == winner.EntryID) {
			return ErrConflict
		}
	}
	if winner.ID == 0 {
		winner.ID = d.nextID()
	}
	winner.CreatedAt = stamp(winner.CreatedAt)
	d.winners[winner.ID] = *winner
	return nil
}

func (s *MemoryStore) ListWinners(_ context.Context, contestID uint) ([]models.ContestWinner, error) {
	d, unlock := s.lock()
	defer unlock()
	var out []models.ContestWinner
	for _, w := range d.winners {
		if w.ContestID == contestID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Placement < out[j].Placement })
	return out, nil
}

// ---- users ----

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	d, unlock := s.lockWrite()
	defer unlock()
	for _, u := range d.users {
		if u.Username == user.Username {
			return ErrConflict
		}
	}
	if user.ID == 0 {
		user.ID = d.nextID()
	}
	if user.Level == 0 {
		user.Level = 1
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = stamp(user.CreatedAt)
	user.UpdatedAt = user.CreatedAt
	d.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (models.User, error) {
	d, unlock := s.lock()
	defer unlock()
	u, ok := d.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) AddRewards(_ context.Context, userID uint, points, xp int) (models.User, error) {
	d, unlock := s.lockWrite()
	defer unlock()
	u, ok := d.users[userID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	u.PointsBalance += points
	u.XP += xp
	d.users[userID] = u
	return u, nil
}

func (s *MemoryStore) SetLevel(_ context.Context, userID uint, level int) error {
	d, unlock := s.lockWrite()
	defer unlock()
	u, ok := d.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Level = level
	d.users[userID] = u
	return nil
}

// ---- follows ----

func (s *MemoryStore) InsertFollow(_ context.Context, follow *models.Follow) (bool, error) {
	d, unlock := s.lockWrite()
	defer unlock()
	key := followKey{follow.FollowerID, follow.FollowingID}
	if _, ok := d.follows[key]; ok {
		return false, nil
	}
	if follow.ID == 0 {
		follow.ID = d.nextID()
	}
	follow.CreatedAt = stamp(follow.CreatedAt)
	d.follows[key] = *follow
	return true, nil
}

func (s *MemoryStore) DeleteFollow(_ context.Context, followerID, followingID uint) (bool, error) {
	d, unlock := s.lockWrite()
	defer unlock()
	key := followKey{followerID, followingID}
	if _, ok := d.follows[key]; !ok {
		return false, nil
	}
	delete(d.follows, key)
	return true, nil
}

// ---- ledger ----

func (s *MemoryStore) CreatePointLog(_ context.Context, entry *models.PointLog) error {
	d, unlock := s.lockWrite()
	defer unlock()
	if entry.ID == 0 {
		entry.ID = d.nextID()
	}
	entry.CreatedAt = stamp(entry.CreatedAt)
	d.pointLogs = append(d.pointLogs, *entry)
	return nil
}

func (s *MemoryStore) ListPointLogs(_ context.Context, userID uint) ([]models.PointLog, error) {
	d, unlock := s.lock()
	defer unlock()
	var out []models.PointLog
	for i := len(d.pointLogs) - 1; i >= 0; i-- {
		if d.pointLogs[i].UserID == userID {
			out = append(out, d.pointLogs[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateNotification(_ context.Context, n *models.Notification) error {
	d, unlock := s.lockWrite()
	defer unlock()
	if n.ID == 0 {
		n.ID = d.nextID()
	}
	n.CreatedAt = stamp(n.CreatedAt)
	d.notifications = append(d.notifications, *n)
	return nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, userID uint, limit int) ([]models.Notification, error) {
	d, unlock := s.lock()
	defer unlock()
	var out []models.Notification
	for i := len(d.notifications) - 1; i >= 0; i-- {
		if d.notifications[i].UserID != userID {
			continue
		}
		out = append(out, d.notifications[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CountUnreadNotifications(_ context.Context, userID uint) (int64, error) {
	d, unlock := s.lock()
	defer unlock()
	var n int64
	for _, note := range d.notifications {
		if note.UserID == userID && !note.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) MarkNotificationsRead(_ context.Context, userID uint, ids []uint) (int64, error) {
	d, unlock := s.lockWrite()
	defer unlock()
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for i, note := range d.notifications {
		if note.UserID != userID || note.IsRead {
			continue
		}
		if len(ids) > 0 && !want[note.ID] {
			continue
		}
		d.notifications[i].IsRead = true
		n++
	}
	return n, nil
}

// ---- counters ----

func (s *MemoryStore) Increment(_ context.Context, counter Counter, id uint, delta int) (bool, error) {
	d, unlock := s.lockWrite()
	defer unlock()

	var field *int
	switch counter {
	case EntryReactions, EntryComments:
		e, ok := d.entries[id]
		if !ok {
			return false, ErrNotFound
		}
		if counter == EntryReactions {
			field = &e.ReactionsCount
		} else {
			field = &e.CommentsCount
		}
		clamped := apply(field, delta)
		d.entries[id] = e
		return clamped, nil
	case ContestEntries:
		c, ok := d.contests[id]
		if !ok {
			return false, ErrNotFound
		}
		clamped := apply(&c.EntriesCount, delta)
		d.contests[id] = c
		return clamped, nil
	}

	u, ok := d.users[id]
	if !ok {
		return false, ErrNotFound
	}
	switch counter {
	case UserEntries:
		field = &u.EntriesCount
	case UserWins:
		field = &u.WinsCount
	case UserReactionsReceived:
		field = &u.TotalReactionsReceived
	case UserFollowers:
		field = &u.FollowersCount
	case UserFollowing:
		field = &u.FollowingCount
	default:
		return false, ErrNotFound
	}
	clamped := apply(field, delta)
	d.users[id] = u
	return clamped, nil
}

func apply(field *int, delta int) bool {
	next := *field + delta
	if next < 0 {
		*field = 0
		return true
	}
	*field = next
	return false
}

// ---- test helpers ----

// PointLogs returns every ledger row, oldest first.
func (s *MemoryStore) PointLogs() []models.PointLog {
	d, unlock := s.lock()
	defer unlock()
	return append([]models.PointLog(nil), d.pointLogs...)
}

// SetEntryCounts overwrites the denormalized counters of an entry.
func (s *MemoryStore) SetEntryCounts(id uint, reactions, comments int) {
	d, unlock := s.lockWrite()
	defer unlock()
	if e, ok := d.entries[id]; ok {
		e.ReactionsCount = reactions
		e.CommentsCount = comments
		d.entries[id] = e
	}
}
