package auth

import (
	"database/sql"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// RegisterModels registers every model of the package with the
// persistence client, so migrations and fixtures resolve them.
func RegisterModels() {
	persistence.RegisterModel((*Authentication)(nil))
	persistence.RegisterModel((*AuthenticationRealm)(nil))
	persistence.RegisterModel((*Person)(nil))
	persistence.RegisterModel((*PartyGroup)(nil))
	persistence.RegisterModel((*PartyGroupSystem)(nil))
	persistence.RegisterModel((*PersonSystem)(nil))
	persistence.RegisterModel((*InviteToken)(nil))
	persistence.RegisterModel((*Api)(nil))
	persistence.RegisterModel((*AccessLog)(nil))
}

// OpenDatabase opens a sqlite backed bun handle. Production deploys
// hand their own *bun.DB to NewRepositoryManager; this covers local
// development and integration tests.
func OpenDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
