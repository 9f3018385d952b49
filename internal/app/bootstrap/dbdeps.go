// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/campuslink/internal/app/system/changebus"
	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// Docs is always set; the Mongo and Redis handles are nil when the
// configuration does not use them.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Redis         *redis.Client

	Docs docstore.Store
	Bus  changebus.Bus
}
