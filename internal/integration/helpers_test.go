//go:build integration

package integration_test

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mustOID(s *MongoStoreSuite, hex string) primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(hex)
	s.Require().NoError(err)
	return oid
}
