package database

// Table and key names shared by the backends.
const (
	// IdentitiesTable is the SQL table holding identity records.
	IdentitiesTable = "identities"

	// IdentityKeyPrefix prefixes identity records in key-value backends.
	IdentityKeyPrefix = "identity"
)
