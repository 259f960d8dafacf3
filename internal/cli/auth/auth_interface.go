package auth

// TokenStore defines the interface for token storage operations
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(portalURL, token string) error
	LoadToken(portalURL string) (string, error)
	DeleteToken(portalURL string) error
}

// defaultTokenStore implements TokenStore using the OS keyring
type defaultTokenStore struct{}

var Default TokenStore = &defaultTokenStore{}

func (d *defaultTokenStore) SaveToken(portalURL, token string) error {
	return SaveToken(portalURL, token)
}

func (d *defaultTokenStore) LoadToken(portalURL string) (string, error) {
	return LoadToken(portalURL)
}

func (d *defaultTokenStore) DeleteToken(portalURL string) error {
	return DeleteToken(portalURL)
}
