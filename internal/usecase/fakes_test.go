package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/domain/repository"
	"killua-service-provider/pkg/utils"
)

// memoryStore keeps services and notifications in memory, mimicking the
// transactional behaviour of the gorm repositories.
type memoryStore struct {
	mu            sync.Mutex
	services      map[string]entity.Service
	notifications []*entity.Notification
	seq           int
	failNext      error
	expiredPages  int
	// beforeTransition runs inside Transition before the status check
	beforeTransition func(id string)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{services: make(map[string]entity.Service)}
}

func (s *memoryStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memoryStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *memoryStore) put(svc entity.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

func (s *memoryStore) get(id string) entity.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.services[id]
}

func (s *memoryStore) notificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

func (s *memoryStore) lastNotification() *entity.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notifications) == 0 {
		return nil
	}
	return s.notifications[len(s.notifications)-1]
}

func (s *memoryStore) insertNotification(n *entity.Notification) {
	if n.ID == "" {
		n.ID = s.nextID("n")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.notifications = append(s.notifications, n)
}

type memoryServiceRepo struct {
	store *memoryStore
}

var _ repository.ServiceRepository = (*memoryServiceRepo)(nil)

func (r *memoryServiceRepo) Create(_ context.Context, svc *entity.Service, notify repository.NotifyFunc) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.takeFailure(); err != nil {
		return entity.NewStoreError("create service", err)
	}

	highest := 0
	for _, existing := range r.store.services {
		if existing.PackageID > highest {
			highest = existing.PackageID
		}
	}
	svc.PackageID = highest + 1
	svc.ID = r.store.nextID("svc")
	svc.CreatedAt = time.Now().UTC()
	svc.UpdatedAt = svc.CreatedAt
	r.store.services[svc.ID] = *svc

	if notify != nil {
		if n := notify(svc); n != nil {
			r.store.insertNotification(n)
		}
	}
	return nil
}

func (r *memoryServiceRepo) FindByID(_ context.Context, id string) (*entity.Service, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.takeFailure(); err != nil {
		return nil, entity.NewStoreError("find service", err)
	}
	svc, ok := r.store.services[id]
	if !ok {
		return nil, entity.ErrServiceNotFound
	}
	return &svc, nil
}

func (r *memoryServiceRepo) List(_ context.Context, filter entity.ServiceFilter) ([]*entity.Service, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.takeFailure(); err != nil {
		return nil, entity.NewStoreError("list services", err)
	}

	out := make([]*entity.Service, 0)
	for _, svc := range r.store.services {
		if filter.Status != "" && svc.Status != filter.Status {
			continue
		}
		if filter.DateBefore != nil && !svc.AvailableDate.Before(*filter.DateBefore) {
			continue
		}
		if filter.DateFrom != nil && svc.AvailableDate.Before(*filter.DateFrom) {
			continue
		}
		copied := svc
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PackageID > out[j].PackageID })
	return out, nil
}

func (r *memoryServiceRepo) MaxPackageID(_ context.Context) (int, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.takeFailure(); err != nil {
		return 0, false, entity.NewStoreError("max package id", err)
	}
	highest := 0
	for _, svc := range r.store.services {
		if svc.PackageID > highest {
			highest = svc.PackageID
		}
	}
	return highest, highest > 0, nil
}

func (r *memoryServiceRepo) Transition(_ context.Context, id string, from entity.Status, update entity.ServiceUpdate, notification *entity.Notification) error {
	if hook := r.store.beforeTransition; hook != nil {
		hook(id)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.takeFailure(); err != nil {
		return entity.NewStoreError("transition service", err)
	}

	svc, ok := r.store.services[id]
	if !ok {
		return entity.ErrServiceNotFound
	}
	if svc.Status != from {
		return entity.ErrConcurrentUpdate
	}
	if !update.IsZero() {
		svc = update.Apply(svc)
		svc.UpdatedAt = time.Now().UTC()
		r.store.services[id] = svc
	}
	if notification != nil {
		r.store.insertNotification(notification)
	}
	return nil
}

func (r *memoryServiceRepo) FindExpired(_ context.Context, today time.Time, after *entity.ServiceCursor, limit int) ([]*entity.Service, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.expiredPages++
	if err := r.store.takeFailure(); err != nil {
		return nil, entity.NewStoreError("find expired services", err)
	}

	out := make([]*entity.Service, 0)
	for _, svc := range r.store.services {
		if svc.Status != entity.StatusAvailable || !svc.AvailableDate.Before(utils.DateOf(today)) {
			continue
		}
		if after != nil && !cursorBefore(*after, &svc) {
			continue
		}
		copied := svc
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return cursorBefore(*entity.CursorOf(out[i]), out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// cursorBefore reports whether c sorts strictly before svc by (available date, id)
func cursorBefore(c entity.ServiceCursor, svc *entity.Service) bool {
	if !c.AvailableDate.Equal(svc.AvailableDate) {
		return c.AvailableDate.Before(svc.AvailableDate)
	}
	return c.ID < svc.ID
}

type memoryNotificationRepo struct {
	store      *memoryStore
	dispatched map[string]time.Time
}

var _ repository.NotificationRepository = (*memoryNotificationRepo)(nil)

func newMemoryNotificationRepo(store *memoryStore) *memoryNotificationRepo {
	return &memoryNotificationRepo{store: store, dispatched: make(map[string]time.Time)}
}

func (r *memoryNotificationRepo) Create(_ context.Context, n *entity.Notification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.insertNotification(n)
	return nil
}

func (r *memoryNotificationRepo) List(_ context.Context, filter entity.NotificationFilter) ([]*entity.Notification, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*entity.Notification, 0)
	for i := len(r.store.notifications) - 1; i >= 0; i-- {
		n := r.store.notifications[i]
		if filter.UnreadOnly && n.Read {
			continue
		}
		out = append(out, n)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *memoryNotificationRepo) CountUnread(_ context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, n := range r.store.notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *memoryNotificationRepo) MarkAsRead(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, n := range r.store.notifications {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return entity.ErrNotificationNotFound
}

func (r *memoryNotificationRepo) FindUndispatched(_ context.Context, limit int) ([]*entity.Notification, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.takeFailure(); err != nil {
		return nil, entity.NewStoreError("find undispatched notifications", err)
	}
	out := make([]*entity.Notification, 0)
	for _, n := range r.store.notifications {
		if n.DispatchedAt != nil {
			continue
		}
		copied := *n
		out = append(out, &copied)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryNotificationRepo) find(id string) *entity.Notification {
	for _, n := range r.store.notifications {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (r *memoryNotificationRepo) MarkDispatched(_ context.Context, id string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := r.find(id)
	if n == nil {
		return errors.New("missing notification")
	}
	n.DispatchedAt = &at
	return nil
}

func (r *memoryNotificationRepo) IncrementAttempts(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := r.find(id)
	if n == nil {
		return errors.New("missing notification")
	}
	n.DispatchAttempts++
	return nil
}

type memoryDeliveryRepo struct {
	mu         sync.Mutex
	deliveries []*entity.Delivery
}

func (r *memoryDeliveryRepo) Save(_ context.Context, d *entity.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, d)
	return nil
}

func (r *memoryDeliveryRepo) FindByNotificationID(_ context.Context, id string) ([]*entity.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Delivery, 0)
	for _, d := range r.deliveries {
		if d.NotificationID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

type memoryGuard struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
	err      error
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{claimed: make(map[string]bool)}
}

func (g *memoryGuard) Acquire(_ context.Context, id string, _ time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.claimed[id] {
		return false, nil
	}
	g.claimed[id] = true
	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, id)
	g.released = append(g.released, id)
	return nil
}

type recordingSink struct {
	name   string
	events entity.EventSet
	fail   int
	got    []*entity.Notification
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Accepts(e entity.EventType) bool { return s.events.Matches(e) }

func (s *recordingSink) Deliver(_ context.Context, n *entity.Notification) error {
	if s.fail > 0 {
		s.fail--
		return errors.New(s.name + " unavailable")
	}
	s.got = append(s.got, n)
	return nil
}

type staticRouter struct {
	sinks []NotificationSink
}

func (r *staticRouter) Register(sink NotificationSink) {
	r.sinks = append(r.sinks, sink)
}

func (r *staticRouter) SinksFor(e entity.EventType) []NotificationSink {
	out := make([]NotificationSink, 0)
	for _, s := range r.sinks {
		if s.Accepts(e) {
			out = append(out, s)
		}
	}
	return out
}
