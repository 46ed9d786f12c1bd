package sqlstore

import "github.com/goliatone/go-account-links/core"

var (
	_ core.LinkedAccountStore     = (*LinkedAccountStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
