package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	apperrors "github.com/kbukum/ormtest/errors"
	"github.com/kbukum/ormtest/logger"
)

// entry is one managed entity.
type entry struct {
	entity   any
	value    reflect.Value
	id       identity
	snapshot reflect.Value
}

func (e *entry) dirty() bool {
	return !reflect.DeepEqual(e.snapshot.Elem().Interface(), e.value.Elem().Interface())
}

func (e *entry) commit() {
	e.snapshot = shallowCopy(e.value)
}

// EntityManager is a GORM backed unit of work. It is safe for concurrent
// use, although a session normally belongs to a single test.
type EntityManager struct {
	db  *gorm.DB
	log *logger.Logger

	mu         sync.Mutex
	managed    map[any]*entry
	identities map[identity]*entry
	order      []*entry
	inserts    []any
	scheduled  map[any]struct{}
}

// Option configures an EntityManager.
type Option func(*EntityManager)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *logger.Logger) Option {
	return func(em *EntityManager) {
		if log != nil {
			em.log = log
		}
	}
}

// New creates an empty session over db.
func New(db *gorm.DB, opts ...Option) *EntityManager {
	em := &EntityManager{
		db:  db,
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(em)
	}
	if em.log.Component() != "session" {
		em.log = em.log.WithComponent("session")
	}
	em.reset()
	return em
}

func (em *EntityManager) reset() {
	em.managed = make(map[any]*entry)
	em.identities = make(map[identity]*entry)
	em.order = nil
	em.inserts = nil
	em.scheduled = make(map[any]struct{})
}

// DB returns the underlying connection.
func (em *EntityManager) DB() *gorm.DB {
	return em.db
}

// Persist schedules a new entity for insertion on the next Flush.
// Persisting a managed or already scheduled entity is a no-op.
func (em *EntityManager) Persist(entity any) error {
	rv, err := checkEntity(entity)
	if err != nil {
		return err
	}
	sch, err := parseSchema(em.db, entity)
	if err != nil {
		return err
	}

	em.mu.Lock()
	defer em.mu.Unlock()

	if em.containsLocked(entity) {
		return nil
	}
	if id, ok := identityOf(context.Background(), sch, rv); ok {
		if _, taken := em.identities[id]; taken {
			return apperrors.Conflict(fmt.Sprintf("identity %s is already managed by another %T", id, entity))
		}
	}
	em.scheduleLocked(entity)
	return nil
}

func (em *EntityManager) scheduleLocked(entity any) {
	em.inserts = append(em.inserts, entity)
	em.scheduled[entity] = struct{}{}
}

// Flush writes scheduled insertions, in Persist order, and updates to
// changed managed entities in a single transaction. Database errors are
// returned as is; on error the session keeps its pending work.
func (em *EntityManager) Flush(ctx context.Context) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	var dirty []*entry
	for _, e := range em.order {
		if e.dirty() {
			dirty = append(dirty, e)
		}
	}
	if len(em.inserts) == 0 && len(dirty) == 0 {
		return nil
	}

	err := em.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entity := range em.inserts {
			if err := tx.Create(entity).Error; err != nil {
				return err
			}
		}
		for _, e := range dirty {
			if err := tx.Omit(clause.Associations).Save(e.entity).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		em.log.Debug("flush failed", logger.ErrorFields("flush", err))
		return err
	}

	for _, e := range dirty {
		e.commit()
	}
	inserted := em.inserts
	em.inserts = nil
	em.scheduled = make(map[any]struct{})
	for _, entity := range inserted {
		if err := em.manageLocked(ctx, entity); err != nil {
			return err
		}
	}

	em.log.Debug("flushed", map[string]interface{}{
		"inserted": len(inserted),
		"updated":  len(dirty),
	})
	return nil
}

// manageLocked registers entity in the identity map under its current identity.
func (em *EntityManager) manageLocked(ctx context.Context, entity any) error {
	rv := reflect.ValueOf(entity)
	sch, err := parseSchema(em.db, entity)
	if err != nil {
		return err
	}
	id, ok := identityOf(ctx, sch, rv)
	if !ok {
		return apperrors.InvalidEntity(fmt.Sprintf("%T has no identity after insert", entity))
	}
	e := &entry{entity: entity, value: rv, id: id}
	e.commit()
	em.managed[entity] = e
	em.identities[id] = e
	em.order = append(em.order, e)
	return nil
}

// Merge returns the managed instance for entity's identity.
//
// A managed or scheduled entity is returned as is. For a detached entity
// whose identity is already managed, the detached state is copied onto the
// managed instance. An identity found in the store yields a new managed
// instance carrying the detached state. Anything else becomes a new
// instance scheduled for insertion.
func (em *EntityManager) Merge(ctx context.Context, entity any) (any, error) {
	rv, err := checkEntity(entity)
	if err != nil {
		return nil, err
	}
	sch, err := parseSchema(em.db, entity)
	if err != nil {
		return nil, err
	}

	em.mu.Lock()
	defer em.mu.Unlock()

	if em.containsLocked(entity) {
		return entity, nil
	}

	id, ok := identityOf(ctx, sch, rv)
	if ok {
		if e, found := em.identities[id]; found {
			if e.value.Type() != rv.Type() {
				return nil, apperrors.InvalidEntity(fmt.Sprintf("identity %s is managed as %T, not %T", id, e.entity, entity))
			}
			copyState(e.value, rv)
			return e.entity, nil
		}

		loaded := shallowCopy(rv)
		err := em.db.WithContext(ctx).Take(loaded.Interface()).Error
		switch {
		case err == nil:
			if err := em.manageLocked(ctx, loaded.Interface()); err != nil {
				return nil, err
			}
			copyState(loaded, rv)
			return loaded.Interface(), nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	created := shallowCopy(rv).Interface()
	em.scheduleLocked(created)
	return created, nil
}

// IsScheduledForInsert reports whether entity waits for insertion by Flush.
func (em *EntityManager) IsScheduledForInsert(entity any) bool {
	em.mu.Lock()
	defer em.mu.Unlock()
	_, ok := em.scheduled[entity]
	return ok
}

// Contains reports whether entity is managed or scheduled for insertion.
func (em *EntityManager) Contains(entity any) bool {
	em.mu.Lock()
	defer em.mu.Unlock()
	return em.containsLocked(entity)
}

func (em *EntityManager) containsLocked(entity any) bool {
	if _, ok := em.managed[entity]; ok {
		return true
	}
	_, ok := em.scheduled[entity]
	return ok
}

// Detach stops tracking entity. Pending changes to it are discarded.
func (em *EntityManager) Detach(entity any) {
	em.mu.Lock()
	defer em.mu.Unlock()

	if _, ok := em.scheduled[entity]; ok {
		delete(em.scheduled, entity)
		for i, pending := range em.inserts {
			if pending == entity {
				em.inserts = append(em.inserts[:i], em.inserts[i+1:]...)
				break
			}
		}
	}

	e, ok := em.managed[entity]
	if !ok {
		return
	}
	delete(em.managed, entity)
	delete(em.identities, e.id)
	for i, other := range em.order {
		if other == e {
			em.order = append(em.order[:i], em.order[i+1:]...)
			break
		}
	}
}

// Clear detaches every entity.
func (em *EntityManager) Clear() {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.reset()
}

// Find returns the managed entity of model's type with the given single
// column primary key. model is only used for its type.
func (em *EntityManager) Find(ctx context.Context, model any, id any) (any, error) {
	rv, err := checkEntity(model)
	if err != nil {
		return nil, err
	}
	sch, err := parseSchema(em.db, model)
	if err != nil {
		return nil, err
	}
	if len(sch.PrimaryFields) != 1 {
		return nil, apperrors.InvalidEntity(fmt.Sprintf("%T has a composite primary key", model))
	}

	lookup := reflect.New(rv.Elem().Type())
	if err := sch.PrimaryFields[0].Set(ctx, lookup, id); err != nil {
		return nil, apperrors.InvalidInput("id", err.Error())
	}

	em.mu.Lock()
	defer em.mu.Unlock()

	if key, ok := identityOf(ctx, sch, lookup); ok {
		if e, found := em.identities[key]; found {
			return e.entity, nil
		}
	}

	if err := em.db.WithContext(ctx).Take(lookup.Interface()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(sch.Table, fmt.Sprint(id)).WithCause(err)
		}
		return nil, err
	}
	if err := em.manageLocked(ctx, lookup.Interface()); err != nil {
		return nil, err
	}
	return lookup.Interface(), nil
}

// FindAll loads rows into dest, a pointer to a slice of struct pointers,
// applying scopes to the query. Rows whose identity is already managed are
// replaced by the managed instance.
func (em *EntityManager) FindAll(ctx context.Context, dest any, scopes ...func(*gorm.DB) *gorm.DB) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return apperrors.InvalidInput("dest", fmt.Sprintf("%T is not a pointer to a slice", dest))
	}
	elemType := dv.Elem().Type().Elem()
	if elemType.Kind() != reflect.Ptr || elemType.Elem().Kind() != reflect.Struct {
		return apperrors.InvalidInput("dest", fmt.Sprintf("%T elements are not struct pointers", dest))
	}
	sch, err := parseSchema(em.db, reflect.New(elemType.Elem()).Interface())
	if err != nil {
		return err
	}

	rows := reflect.New(dv.Elem().Type())
	if err := em.db.WithContext(ctx).Scopes(scopes...).Find(rows.Interface()).Error; err != nil {
		return err
	}

	em.mu.Lock()
	defer em.mu.Unlock()

	result := rows.Elem()
	for i := 0; i < result.Len(); i++ {
		if err := em.resolveLocked(ctx, sch, result.Index(i)); err != nil {
			return err
		}
	}
	dv.Elem().Set(result)
	return nil
}

// resolveLocked swaps a freshly loaded row for its managed instance, or
// starts managing it.
func (em *EntityManager) resolveLocked(ctx context.Context, sch *schema.Schema, slot reflect.Value) error {
	id, ok := identityOf(ctx, sch, slot)
	if !ok {
		return apperrors.InvalidEntity(fmt.Sprintf("loaded %s row without primary key", sch.Table))
	}
	if e, found := em.identities[id]; found {
		slot.Set(e.value)
		return nil
	}
	return em.manageLocked(ctx, slot.Interface())
}
