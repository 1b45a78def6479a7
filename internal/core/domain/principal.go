package domain

// Principal is a verified identity supplied by the external identity
// provider. The core never creates, stores, or authenticates principals;
// it only carries the ID as a foreign reference on items and ledger rows.
type Principal struct {
	ID        string
	Name      string
	Email     string
	AvatarRef string
}
