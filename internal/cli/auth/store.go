package auth

// TokenStore defines the interface for secret storage operations
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(key, value string) error
	LoadToken(key string) (string, error)
	DeleteToken(key string) error
}

// defaultTokenStore implements TokenStore using the OS keyring
type defaultTokenStore struct{}

var Default TokenStore = &defaultTokenStore{}

func (d *defaultTokenStore) SaveToken(key, value string) error {
	return SaveToken(key, value)
}

func (d *defaultTokenStore) LoadToken(key string) (string, error) {
	return LoadToken(key)
}

func (d *defaultTokenStore) DeleteToken(key string) error {
	return DeleteToken(key)
}

// MemoryStore is an in-process TokenStore, used when no keychain is wanted
type MemoryStore map[string]string

func (m MemoryStore) SaveToken(key, value string) error {
	m[key] = value
	return nil
}

func (m MemoryStore) LoadToken(key string) (string, error) {
	value, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m MemoryStore) DeleteToken(key string) error {
	delete(m, key)
	return nil
}
