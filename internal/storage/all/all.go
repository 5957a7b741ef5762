// Package all registers every ledger backend with the storage factory.
// cmd binaries blank-import it; config selects which backend actually runs.
package all

import (
	_ "fichegen/internal/storage/mssql"
	_ "fichegen/internal/storage/postgres"
	_ "fichegen/internal/storage/sqlite"
)
