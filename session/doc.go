// Package session implements a unit of work with an identity map on top of
// GORM.
//
// An EntityManager tracks managed entities by (table, primary key). New
// entities are scheduled with Persist and written by Flush in one
// transaction, together with updates to managed entities whose state
// changed. Merge brings a detached entity into the session: the result is
// always the one managed instance for its identity, so two detached copies
// of the same row merge to the same pointer.
//
//	em := session.New(db)
//	_ = em.Persist(&User{ID: 1, Name: "alice"})
//	_ = em.Flush(ctx)
//
//	managed, _ := em.Merge(ctx, &User{ID: 1, Name: "alice"})
//	em.IsScheduledForInsert(managed) // false: the row exists
package session
