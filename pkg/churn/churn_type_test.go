package churn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/nodersteam/churn-countdown/pkg/storage"
)

type failingStore struct {
	storage.Store
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

type SelectorTestSuite struct {
	suite.Suite
	ctx   context.Context
	store storage.Store
}

func (suite *SelectorTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = storage.NewMemory()
}

func (suite *SelectorTestSuite) TestDefaultsToNodes() {
	s := NewSelector(suite.ctx, suite.store)
	suite.Require().Equal(Nodes, s.Current())
}

func (suite *SelectorTestSuite) TestInvalidPersistedValueIsIgnored() {
	suite.Require().NoError(suite.store.Set(suite.ctx, storage.KeyChurnType, "validators"))
	s := NewSelector(suite.ctx, suite.store)
	suite.Require().Equal(Nodes, s.Current())
}

func (suite *SelectorTestSuite) TestPersistedValueIsRestored() {
	suite.Require().NoError(suite.store.Set(suite.ctx, storage.KeyChurnType, "pools"))
	s := NewSelector(suite.ctx, suite.store)
	suite.Require().Equal(Pools, s.Current())
}

func (suite *SelectorTestSuite) TestToggleTwiceRestoresAndPersists() {
	s := NewSelector(suite.ctx, suite.store)

	var seen []Type
	s.Types().Subscribe(func(t Type) { seen = append(seen, t) })

	t, err := s.Toggle(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Equal(Pools, t)
	raw, ok, err := suite.store.Get(suite.ctx, storage.KeyChurnType)
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.Require().Equal("pools", raw)

	t, err = s.Toggle(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Equal(Nodes, t)
	raw, _, _ = suite.store.Get(suite.ctx, storage.KeyChurnType)
	suite.Require().Equal("nodes", raw)

	suite.Require().Equal([]Type{Nodes, Pools, Nodes}, seen)
	suite.Require().Equal(Nodes, NewSelector(suite.ctx, suite.store).Current())
}

func (suite *SelectorTestSuite) TestSetRejectsUnknownType() {
	s := NewSelector(suite.ctx, suite.store)
	suite.Require().Error(s.Set(suite.ctx, Type("validators")))
	suite.Require().Equal(Nodes, s.Current())
}

func (suite *SelectorTestSuite) TestPersistFailureKeepsCurrentType() {
	s := NewSelector(suite.ctx, failingStore{Store: suite.store})
	_, err := s.Toggle(suite.ctx)
	suite.Require().Error(err)
	suite.Require().Equal(Nodes, s.Current())
}

func TestSelectorSuite(t *testing.T) {
	suite.Run(t, new(SelectorTestSuite))
}

func (suite *SelectorTestSuite) TestParseType() {
	t, err := ParseType("pools")
	suite.Require().NoError(err)
	suite.Require().Equal(Pools, t)

	_, err = ParseType("Pools")
	suite.Require().Error(err)
}
