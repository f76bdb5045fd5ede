//go:build integration

package integration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

type MongoStoreSuite struct {
	storeSuite
	mongo  *endpoint
	client *mongo.Client
	db     *mongo.Database
	store  *repository.MongoStore
}

func TestMongoStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("container tests skipped in -short mode")
	}
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) SetupSuite() {
	s.ctx = context.Background()

	ep, err := startMongo(s.ctx)
	s.Require().NoError(err)
	s.mongo = ep

	s.client, s.db, err = database.ConnectMongo(s.ctx, config.MongoConfig{
		URI:      "mongodb://" + ep.Addr(),
		Database: dbName,
	})
	s.Require().NoError(err)

	s.store = repository.NewMongoStore(s.db)
	s.svc = service.NewSeatService(s.store, s.store, nil, nil)
	s.seed = func(room model.SeatLayout, st model.Showtime) {
		s.Require().NoError(s.store.InsertRoom(s.ctx, room))
		s.Require().NoError(s.store.Insert(s.ctx, st))
	}
	s.get = func(id string) (*model.Showtime, error) { return s.store.Get(s.ctx, id) }
}

func (s *MongoStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Disconnect(context.Background())
	}
	if s.mongo != nil {
		_ = s.mongo.Container.Terminate(context.Background())
	}
}

// Documents written by the original system key seats by room under
// asientos.id_lugar with plain string codes and use ObjectID ids.
func (s *MongoStoreSuite) TestLegacyDocuments() {
	const (
		roomHex = "66a0f0f0f0f0f0f0f0f0f0f1"
		showHex = "66a0f0f0f0f0f0f0f0f0f0f2"
	)
	roomOID := mustOID(s, roomHex)
	showOID := mustOID(s, showHex)

	_, err := s.db.Collection("salas").InsertOne(s.ctx, bson.M{"_id": roomOID, "nombre": "Sala Legacy"})
	s.Require().NoError(err)
	_, err = s.db.Collection("asientos").InsertMany(s.ctx, []interface{}{
		bson.M{"id_lugar": roomOID, "codigo": "C1"},
		bson.M{"id_lugar": roomOID, "codigo": "C2"},
	})
	s.Require().NoError(err)
	_, err = s.db.Collection("funciones").InsertOne(s.ctx, bson.M{
		"_id":      showOID,
		"id_lugar": roomOID,
		"Asientos_Ocupados": bson.A{
			bson.M{"codigo_asiento": "C1", "estado": "reserved"},
		},
	})
	s.Require().NoError(err)

	av, err := s.svc.Availability(s.ctx, showHex)
	s.Require().NoError(err)
	s.Equal("Sala Legacy", av.Room)
	s.Equal([]string{"C2"}, av.Available)

	_, err = s.svc.Reserve(s.ctx, showHex, []string{"C2"})
	s.Require().NoError(err)
	s.ElementsMatch([]string{"C1", "C2"}, s.occupied(showHex))
}

func (s *MongoStoreSuite) TestRemoveOccupiedAllOrNothing() {
	id := s.fixture("A1", "A2")
	s.Require().NoError(s.store.AddOccupied(s.ctx, id, model.ReservedEntries([]string{"A1"})))

	n, err := s.store.RemoveOccupied(s.ctx, id, []string{"A1", "A2"})
	s.Require().NoError(err)
	s.Zero(n)
	s.Equal([]string{"A1"}, s.occupied(id))

	_, err = s.store.RemoveOccupied(s.ctx, "missing", []string{"A1"})
	s.ErrorIs(err, repository.ErrShowtimeNotFound)
}
