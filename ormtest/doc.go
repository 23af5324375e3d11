// Package ormtest is a testify suite base for tests that exercise GORM
// entities through a managed session.
//
// A concrete suite embeds Case and supplies two hooks: the detached
// entities to load as fixtures, and the session to use.
//
//	type UserSuite struct {
//		ormtest.Case
//		em *session.EntityManager
//	}
//
//	func (s *UserSuite) FixtureEntities() []any {
//		return []any{&User{ID: 1, Name: "a"}, &User{ID: 2, Name: "b"}}
//	}
//
//	func (s *UserSuite) EntityManager() ormtest.EntityManager { return s.em }
//
//	func (s *UserSuite) Schema() ormtest.Schema { return ormtest.Models(&User{}) }
//
//	func (s *UserSuite) SetupTest()    { s.SetUpDatabase() }
//	func (s *UserSuite) TearDownTest() { s.TearDownDatabase() }
//
//	func (s *UserSuite) TestAll() {
//		var users []*User
//		s.Require().NoError(s.em.FindAll(s.T().Context(), &users))
//		s.AssertEntityCollectionEquals(s.FixtureEntities(), users)
//	}
//
// Comparisons always merge both sides into the session first, so a
// detached fixture and a row loaded by a query compare as the same entity.
// The package level functions offer the same checks outside a suite.
package ormtest
